// Package streamkeeper keeps a single managed livestream alive by rotating
// it before it reaches the provider's maximum broadcast length.
//
// On every tick the keeper reads the persisted record of the managed
// broadcast. With no record it provisions a broadcast, waits for it to become
// ingest-ready, records it, restarts the encoder output until the broadcast
// reports live and announces it. A record older than the configured lifespan
// is rotated: the old broadcast is ended and a new one provisioned the same
// way. Otherwise the tick does nothing.
//
// # Basic Usage
//
//	provider, _ := youtube.New(ctx, identity.TokenSource(ctx), logger)
//
//	sk, err := streamkeeper.New(streamkeeper.Config{
//	    StateDir:    "/var/lib/streamkeeper",
//	    MaxLifespan: 11*time.Hour + 30*time.Minute,
//	    Broadcast:   streamkeeper.BroadcastSpec{Title: "Lobby Cam", Visibility: "unlisted"},
//	}, provider,
//	    streamkeeper.WithOutputController(obs.NewController(obsCfg, logger)),
//	    streamkeeper.WithNotifier(discord.NewNotifier(discordCfg, nil, logger)),
//	    streamkeeper.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := sk.Start(ctx); err != nil {
//	    return err
//	}
//	defer sk.Stop()
//
// Ticks never overlap. A tick requested while another is running is skipped
// and reported through [EventHandler.OnTick] with Skipped set.
//
// # Lifecycle States
//
// A Streamkeeper instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed]. Use
// [Streamkeeper.Status] to query the current state.
//
// # Plugins
//
// Plugins are initialized on Start in registration order and shut down in
// reverse order on Stop. They receive a [PluginConfig] whose Trigger func
// requests an immediate tick.
package streamkeeper
