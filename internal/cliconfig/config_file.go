package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StateDir  string `toml:"state_dir"`
	TokenFile string `toml:"token_file"`

	MaxLifespanHours      float64 `toml:"max_lifespan_hours"`
	CheckInterval         string  `toml:"check_interval"`
	ReadinessTimeout      string  `toml:"readiness_timeout"`
	ReadinessPollInterval string  `toml:"readiness_poll_interval"`
	GoLiveMaxAttempts     int     `toml:"go_live_max_attempts"`
	GoLiveSettle          string  `toml:"go_live_settle"`

	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	Once        *bool  `toml:"once"`

	Broadcast FileBroadcast `toml:"broadcast"`
	Google    FileGoogle    `toml:"google"`
	OBS       FileOBS       `toml:"obs"`
	Discord   FileDiscord   `toml:"discord"`
}

// FileBroadcast is the [broadcast] table.
type FileBroadcast struct {
	Title         string `toml:"title"`
	Description   string `toml:"description"`
	PrivacyStatus string `toml:"privacy_status"`
	Resolution    string `toml:"resolution"`
	FrameRate     string `toml:"frame_rate"`
	AutoStart     *bool  `toml:"auto_start"`
	AutoStop      *bool  `toml:"auto_stop"`
	MadeForKids   *bool  `toml:"made_for_kids"`
	AgeRestricted *bool  `toml:"age_restricted"`
	StreamTitle   string `toml:"stream_title"`
	StreamID      string `toml:"stream_id"`
}

// FileGoogle is the [google] table.
type FileGoogle struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// FileOBS is the [obs] table.
type FileOBS struct {
	Address        string `toml:"address"`
	Password       string `toml:"password"`
	RestartGap     string `toml:"restart_gap"`
	RequestTimeout string `toml:"request_timeout"`
}

// FileDiscord is the [discord] table.
type FileDiscord struct {
	WebhookURL       string `toml:"webhook_url"`
	BotName          string `toml:"bot_name"`
	EmbedTitle       string `toml:"embed_title"`
	EmbedDescription string `toml:"embed_description"`
	EmbedColor       int    `toml:"embed_color"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.streamkeeper/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".streamkeeper", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("token-file", fc.TokenFile, &cfg.TokenFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setBool("once", fc.Once, &cfg.Once)

	s.setFloat("max-lifespan-hours", fc.MaxLifespanHours, &cfg.MaxLifespanHours)
	s.setInt("go-live-attempts", fc.GoLiveMaxAttempts, &cfg.GoLiveMaxAttempts)

	if err := s.setDuration("check-interval", fc.CheckInterval, &cfg.CheckInterval); err != nil {
		return err
	}
	if err := s.setDuration("readiness-timeout", fc.ReadinessTimeout, &cfg.ReadinessTimeout); err != nil {
		return err
	}
	if err := s.setDuration("readiness-poll", fc.ReadinessPollInterval, &cfg.ReadinessPollInterval); err != nil {
		return err
	}
	if err := s.setDuration("go-live-settle", fc.GoLiveSettle, &cfg.GoLiveSettle); err != nil {
		return err
	}

	b := &cfg.Broadcast
	s.setString("title", fc.Broadcast.Title, &b.Title)
	s.setString("description", fc.Broadcast.Description, &b.Description)
	s.setString("privacy", fc.Broadcast.PrivacyStatus, &b.PrivacyStatus)
	s.setString("", fc.Broadcast.Resolution, &b.Resolution)
	s.setString("", fc.Broadcast.FrameRate, &b.FrameRate)
	s.setString("stream-title", fc.Broadcast.StreamTitle, &b.StreamTitle)
	s.setString("stream-id", fc.Broadcast.StreamID, &b.StreamID)
	s.setBool("", fc.Broadcast.AutoStart, &b.AutoStart)
	s.setBool("", fc.Broadcast.AutoStop, &b.AutoStop)
	s.setBool("", fc.Broadcast.MadeForKids, &b.MadeForKids)
	s.setBool("", fc.Broadcast.AgeRestricted, &b.AgeRestricted)

	s.setString("", fc.Google.ClientID, &cfg.Google.ClientID)
	s.setString("", fc.Google.ClientSecret, &cfg.Google.ClientSecret)
	s.setString("", fc.Google.RedirectURL, &cfg.Google.RedirectURL)

	s.setString("obs-address", fc.OBS.Address, &cfg.OBS.Address)
	s.setString("obs-password", fc.OBS.Password, &cfg.OBS.Password)
	if err := s.setDuration("", fc.OBS.RestartGap, &cfg.OBS.RestartGap); err != nil {
		return err
	}
	if err := s.setDuration("", fc.OBS.RequestTimeout, &cfg.OBS.RequestTimeout); err != nil {
		return err
	}

	s.setString("discord-webhook", fc.Discord.WebhookURL, &cfg.Discord.WebhookURL)
	s.setString("", fc.Discord.BotName, &cfg.Discord.BotName)
	s.setString("", fc.Discord.EmbedTitle, &cfg.Discord.EmbedTitle)
	s.setString("", fc.Discord.EmbedDescription, &cfg.Discord.EmbedDescription)
	s.setInt("", fc.Discord.EmbedColor, &cfg.Discord.EmbedColor)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
