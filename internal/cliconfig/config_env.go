package cliconfig

import "os"

// EnvPrefix prefixes every environment variable streamkeeper reads.
const EnvPrefix = "STREAMKEEPER_"

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (STREAMKEEPER_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", getenv("STATE_DIR"), &cfg.StateDir)
	s.setString("token-file", getenv("TOKEN_FILE"), &cfg.TokenFile)
	s.setString("metrics-addr", getenv("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)
	s.setBoolFromString("once", getenv("ONCE"), &cfg.Once)

	if err := s.setFloatFromString("max-lifespan-hours", getenv("MAX_LIFESPAN_HOURS"), &cfg.MaxLifespanHours); err != nil {
		return err
	}
	if err := s.setIntFromString("go-live-attempts", getenv("GO_LIVE_MAX_ATTEMPTS"), &cfg.GoLiveMaxAttempts); err != nil {
		return err
	}
	if err := s.setDuration("check-interval", getenv("CHECK_INTERVAL"), &cfg.CheckInterval); err != nil {
		return err
	}
	if err := s.setDuration("readiness-timeout", getenv("READINESS_TIMEOUT"), &cfg.ReadinessTimeout); err != nil {
		return err
	}
	if err := s.setDuration("readiness-poll", getenv("READINESS_POLL_INTERVAL"), &cfg.ReadinessPollInterval); err != nil {
		return err
	}
	if err := s.setDuration("go-live-settle", getenv("GO_LIVE_SETTLE"), &cfg.GoLiveSettle); err != nil {
		return err
	}

	s.setString("title", getenv("TITLE"), &cfg.Broadcast.Title)
	s.setString("description", getenv("DESCRIPTION"), &cfg.Broadcast.Description)
	s.setString("privacy", getenv("PRIVACY_STATUS"), &cfg.Broadcast.PrivacyStatus)
	s.setString("stream-title", getenv("STREAM_TITLE"), &cfg.Broadcast.StreamTitle)
	s.setString("stream-id", getenv("STREAM_ID"), &cfg.Broadcast.StreamID)

	s.setString("", getenv("GOOGLE_CLIENT_ID"), &cfg.Google.ClientID)
	s.setString("", getenv("GOOGLE_CLIENT_SECRET"), &cfg.Google.ClientSecret)
	s.setString("", getenv("GOOGLE_REDIRECT_URL"), &cfg.Google.RedirectURL)

	s.setString("obs-address", getenv("OBS_ADDRESS"), &cfg.OBS.Address)
	s.setString("obs-password", getenv("OBS_PASSWORD"), &cfg.OBS.Password)

	s.setString("discord-webhook", getenv("DISCORD_WEBHOOK_URL"), &cfg.Discord.WebhookURL)

	return nil
}
