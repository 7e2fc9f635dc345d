package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

// Broadcast defaults.
const (
	DefaultTitle         = "My Managed Livestream"
	DefaultDescription   = "This stream is managed by an automated script."
	DefaultPrivacyStatus = domain.VisibilityUnlisted
	DefaultResolution    = "720p"
	DefaultFrameRate     = "30fps"
)

// TokenFileName is the token file name inside the state directory.
const TokenFileName = "token.json"

// Config holds CLI configuration for streamkeeper.
type Config struct {
	StateDir  string
	TokenFile string

	MaxLifespanHours      float64
	CheckInterval         time.Duration
	ReadinessTimeout      time.Duration
	ReadinessPollInterval time.Duration
	GoLiveMaxAttempts     int
	GoLiveSettle          time.Duration

	Broadcast BroadcastConfig
	Google    GoogleConfig
	OBS       OBSConfig
	Discord   DiscordConfig

	MetricsAddr string
	LogLevel    string
	Once        bool
}

// BroadcastConfig describes every broadcast the keeper creates.
type BroadcastConfig struct {
	Title         string
	Description   string
	PrivacyStatus string
	Resolution    string
	FrameRate     string
	AutoStart     bool
	AutoStop      bool
	MadeForKids   bool
	AgeRestricted bool
	StreamTitle   string
	StreamID      string
}

// GoogleConfig is the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string `json:"-"`
	RedirectURL  string
}

// OBSConfig locates the obs-websocket server.
type OBSConfig struct {
	Address        string
	Password       string `json:"-"`
	RestartGap     time.Duration
	RequestTimeout time.Duration
}

// DiscordConfig configures the webhook announcement.
type DiscordConfig struct {
	WebhookURL       string `json:"-"`
	BotName          string
	EmbedTitle       string
	EmbedDescription string
	EmbedColor       int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StateDir:              DefaultStateDir(),
		MaxLifespanHours:      11.5,
		CheckInterval:         time.Minute,
		ReadinessTimeout:      2 * time.Minute,
		ReadinessPollInterval: 5 * time.Second,
		GoLiveMaxAttempts:     3,
		GoLiveSettle:          15 * time.Second,
		Broadcast: BroadcastConfig{
			Title:         DefaultTitle,
			Description:   DefaultDescription,
			PrivacyStatus: DefaultPrivacyStatus,
			Resolution:    DefaultResolution,
			FrameRate:     DefaultFrameRate,
			AutoStart:     true,
			AutoStop:      true,
		},
		OBS: OBSConfig{
			Address:        "ws://localhost:4455",
			RestartGap:     3 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		LogLevel: zerolog.InfoLevel.String(),
	}
}

// DefaultStateDir returns ~/.streamkeeper, or the working directory if the
// home directory cannot be determined.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".streamkeeper")
	}
	return "."
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return invalid("state-dir is required")
	}
	if c.TokenFile == "" {
		c.TokenFile = filepath.Join(c.StateDir, TokenFileName)
	}

	if c.MaxLifespanHours <= 0 {
		return invalid("max lifespan must be positive")
	}
	if c.CheckInterval <= 0 {
		return invalid("check interval must be positive")
	}
	if c.ReadinessTimeout <= 0 {
		return invalid("readiness timeout must be positive")
	}
	if c.ReadinessPollInterval <= 0 {
		return invalid("readiness poll interval must be positive")
	}
	if c.GoLiveMaxAttempts <= 0 {
		return invalid("go-live attempts must be positive")
	}
	if c.GoLiveSettle < 0 {
		return invalid("go-live settle must not be negative")
	}
	if c.OBS.RestartGap < 0 {
		return invalid("obs restart gap must not be negative")
	}

	switch c.Broadcast.PrivacyStatus {
	case domain.VisibilityPublic, domain.VisibilityUnlisted, domain.VisibilityPrivate:
	default:
		return invalid(fmt.Sprintf("privacy status %q must be public, unlisted or private", c.Broadcast.PrivacyStatus))
	}
	if c.Broadcast.Title == "" {
		return invalid("broadcast title is required")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid(fmt.Sprintf("log level: %v", err))
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

// MaxLifespan returns MaxLifespanHours as a duration.
func (c *Config) MaxLifespan() time.Duration {
	return time.Duration(c.MaxLifespanHours * float64(time.Hour))
}

// Spec returns the broadcast creation spec.
func (c *Config) Spec() domain.CreateSpec {
	b := c.Broadcast
	return domain.CreateSpec{
		Title:         b.Title,
		Description:   b.Description,
		Visibility:    b.PrivacyStatus,
		Resolution:    b.Resolution,
		FrameRate:     b.FrameRate,
		AutoStart:     b.AutoStart,
		AutoStop:      b.AutoStop,
		MadeForKids:   b.MadeForKids,
		AgeRestricted: b.AgeRestricted,
		StreamID:      b.StreamID,
		StreamTitle:   b.StreamTitle,
	}
}

// KeeperConfig returns the library configuration for the keeper.
func (c *Config) KeeperConfig() streamkeeper.Config {
	return streamkeeper.Config{
		StateDir:              c.StateDir,
		MaxLifespan:           c.MaxLifespan(),
		CheckInterval:         c.CheckInterval,
		ReadinessTimeout:      c.ReadinessTimeout,
		ReadinessPollInterval: c.ReadinessPollInterval,
		GoLiveMaxAttempts:     c.GoLiveMaxAttempts,
		GoLiveSettle:          explicitDelay(c.GoLiveSettle),
		RestartGap:            explicitDelay(c.OBS.RestartGap),
		Broadcast:             c.Spec(),
	}
}

// explicitDelay keeps a configured zero pause from being replaced by the
// library default.
func explicitDelay(d time.Duration) time.Duration {
	if d == 0 {
		return streamkeeper.NoDelay
	}
	return d
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
// An empty flag name means the value has no flag.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) locked(flag string) bool {
	return flag != "" && s.changed[flag]
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.locked(flag) {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.locked(flag) {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.locked(flag) {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.locked(flag) {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.locked(flag) {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.locked(flag) {
		return nil
	}
	i, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = int(i)
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.locked(flag) {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.locked(flag) {
		return
	}
	*dst = value == "true" || value == "1"
}
