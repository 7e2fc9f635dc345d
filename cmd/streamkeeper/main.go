package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/streamkeeper/internal/adapters/discord"
	"github.com/bft-labs/streamkeeper/internal/adapters/fs"
	"github.com/bft-labs/streamkeeper/internal/adapters/google"
	"github.com/bft-labs/streamkeeper/internal/adapters/obs"
	"github.com/bft-labs/streamkeeper/internal/adapters/youtube"
	"github.com/bft-labs/streamkeeper/internal/cliconfig"
	"github.com/bft-labs/streamkeeper/internal/metrics"
	"github.com/bft-labs/streamkeeper/pkg/log"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
	"github.com/bft-labs/streamkeeper/plugins/statewatcher"
)

const helpDescription = `
Keep a YouTube livestream running around the clock.

YouTube stops a broadcast once it reaches its maximum length. streamkeeper
watches the broadcast it manages, and well before that limit it ends the old
broadcast, provisions a new one, restarts OBS until the new one is live and
posts the new link to Discord.

Highlights:
  - One small JSON state file; restart at any time without losing track.
  - Reuses your existing stream key, or creates one.
  - Configure via file, env (STREAMKEEPER_*), .env or flags.

Run "streamkeeper login" once to authorize access to your channel.
`

var exampleUsage = strings.TrimSpace(`
  streamkeeper login
  streamkeeper --title "Lobby Cam" --privacy unlisted --discord-webhook https://discord.com/api/webhooks/...
  streamkeeper --config $HOME/.streamkeeper/config.toml --once
  streamkeeper status
  streamkeeper reset --end
`)

const metricsShutdownTimeout = 10 * time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli holds state shared by every command.
type cli struct {
	cfg      cliconfig.Config
	cfgPath  string
	envFiles []string
	log      zerolog.Logger
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig()}
	c.log = cliconfig.Logger(c.cfg.LogLevel)

	root := &cobra.Command{
		Use:           "streamkeeper",
		Short:         "Keep a YouTube livestream running by rotating it before it hits the length limit",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			return c.run(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.streamkeeper/config.toml)")
	pf.StringSliceVar(&c.envFiles, "env-file", []string{".env"}, ".env files to load before reading STREAMKEEPER_* variables")
	pf.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "directory holding the state and token files")
	pf.StringVar(&c.cfg.TokenFile, "token-file", c.cfg.TokenFile, "OAuth token file (default: <state-dir>/token.json)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")

	f := root.Flags()
	f.Float64Var(&c.cfg.MaxLifespanHours, "max-lifespan-hours", c.cfg.MaxLifespanHours, "rotate the broadcast once it is older than this")
	f.DurationVar(&c.cfg.CheckInterval, "check-interval", c.cfg.CheckInterval, "time between checks")
	f.DurationVar(&c.cfg.ReadinessTimeout, "readiness-timeout", c.cfg.ReadinessTimeout, "how long a new broadcast may take to become ready")
	f.DurationVar(&c.cfg.ReadinessPollInterval, "readiness-poll", c.cfg.ReadinessPollInterval, "interval between readiness checks")
	f.IntVar(&c.cfg.GoLiveMaxAttempts, "go-live-attempts", c.cfg.GoLiveMaxAttempts, "encoder restarts before giving up on go-live")
	f.DurationVar(&c.cfg.GoLiveSettle, "go-live-settle", c.cfg.GoLiveSettle, "wait after starting the encoder before checking for live")

	f.StringVar(&c.cfg.Broadcast.Title, "title", c.cfg.Broadcast.Title, "broadcast title")
	f.StringVar(&c.cfg.Broadcast.Description, "description", c.cfg.Broadcast.Description, "broadcast description")
	f.StringVar(&c.cfg.Broadcast.PrivacyStatus, "privacy", c.cfg.Broadcast.PrivacyStatus, "public, unlisted or private")
	f.StringVar(&c.cfg.Broadcast.StreamTitle, "stream-title", c.cfg.Broadcast.StreamTitle, "reuse the stream key with this title")
	f.StringVar(&c.cfg.Broadcast.StreamID, "stream-id", c.cfg.Broadcast.StreamID, "reuse the stream key with this id")

	f.StringVar(&c.cfg.OBS.Address, "obs-address", c.cfg.OBS.Address, "obs-websocket address")
	f.StringVar(&c.cfg.OBS.Password, "obs-password", c.cfg.OBS.Password, "obs-websocket password")
	f.StringVar(&c.cfg.Discord.WebhookURL, "discord-webhook", c.cfg.Discord.WebhookURL, "Discord webhook for new-broadcast announcements")

	f.StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve /metrics, /healthz and /status on this address (disabled when empty)")
	f.BoolVar(&c.cfg.Once, "once", c.cfg.Once, "run a single check and exit")

	root.AddCommand(c.loginCommand(), c.statusCommand(), c.resetCommand())

	if err := root.ExecuteContext(context.Background()); err != nil {
		c.log.Error().Err(err).Msg("streamkeeper")
		os.Exit(1)
	}
}

// load resolves configuration: .env files, then the config file, then
// STREAMKEEPER_* variables, with explicitly set flags winning over all.
func (c *cli) load(cmd *cobra.Command) error {
	loaded, err := cliconfig.LoadDotEnv(c.envFiles...)
	if err != nil {
		return err
	}

	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	} else if c.cfgPath != "" {
		return fmt.Errorf("config file %s not found", c.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.log = cliconfig.Logger(c.cfg.LogLevel)
	if len(loaded) > 0 {
		c.log.Debug().Strs("files", loaded).Msg("loaded env files")
	}
	return nil
}

func (c *cli) logger() log.Logger {
	return log.NewZerologAdapterWithLogger(c.log)
}

func (c *cli) identity(ctx context.Context) (*google.Identity, error) {
	return google.NewIdentity(ctx, google.Config{
		ClientID:     c.cfg.Google.ClientID,
		ClientSecret: c.cfg.Google.ClientSecret,
		RedirectURL:  c.cfg.Google.RedirectURL,
	}, fs.NewTokenFileStore(c.cfg.TokenFile), c.logger())
}

func (c *cli) provider(ctx context.Context) (*youtube.Provider, error) {
	id, err := c.identity(ctx)
	if err != nil {
		return nil, err
	}
	if !id.Authenticated() {
		return nil, fmt.Errorf("%w: run \"streamkeeper login\" first", streamkeeper.ErrNotAuthenticated)
	}
	return youtube.New(ctx, id.TokenSource(ctx), c.logger())
}

func (c *cli) run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Secrets carry json:"-" and are left out.
	c.log.Info().Interface("config", c.cfg).Msg("configuration")

	provider, err := c.provider(ctx)
	if err != nil {
		return err
	}

	logger := c.logger()
	met := metrics.New()

	sk, err := streamkeeper.New(c.cfg.KeeperConfig(), provider,
		streamkeeper.WithLogger(logger),
		streamkeeper.WithEventHandler(met),
		streamkeeper.WithOutputController(obs.NewController(obs.Config{
			Address:        c.cfg.OBS.Address,
			Password:       c.cfg.OBS.Password,
			RequestTimeout: c.cfg.OBS.RequestTimeout,
		}, logger)),
		streamkeeper.WithNotifier(discord.NewNotifier(discord.Config{
			WebhookURL:       c.cfg.Discord.WebhookURL,
			BotName:          c.cfg.Discord.BotName,
			EmbedTitle:       c.cfg.Discord.EmbedTitle,
			EmbedDescription: c.cfg.Discord.EmbedDescription,
			EmbedColor:       c.cfg.Discord.EmbedColor,
		}, nil, logger)),
		statewatcher.WithDefaultStateWatcher(),
	)
	if err != nil {
		return fmt.Errorf("create keeper: %w", err)
	}

	if c.cfg.Once {
		res, err := sk.RunOnce(ctx)
		if err != nil {
			return err
		}
		c.log.Info().
			Str("action", res.Action.String()).
			Bool("live", res.Live).
			Msg("check complete")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := sk.Start(gctx); err != nil {
		return fmt.Errorf("start keeper: %w", err)
	}

	if c.cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              c.cfg.MetricsAddr,
			Handler:           metrics.Router(met, sk, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			c.log.Info().Str("addr", c.cfg.MetricsAddr).Msg("metrics server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		c.log.Info().Msg("stopping...")
		if err := sk.Stop(); err != nil {
			return fmt.Errorf("stop keeper: %w", err)
		}
		return nil
	})

	return g.Wait()
}
