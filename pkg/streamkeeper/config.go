package streamkeeper

import (
	"fmt"
	"time"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// Default bounds.
const (
	DefaultMaxLifespan           = 11*time.Hour + 30*time.Minute
	DefaultCheckInterval         = time.Minute
	DefaultReadinessTimeout      = 2 * time.Minute
	DefaultReadinessPollInterval = 5 * time.Second
	DefaultGoLiveMaxAttempts     = 3
	DefaultGoLiveSettle          = 15 * time.Second
	DefaultRestartGap            = 3 * time.Second
)

// NoDelay requests no pause for GoLiveSettle or RestartGap, where a zero
// value would select the default.
const NoDelay time.Duration = -1

// Config configures a Streamkeeper instance. Zero values are replaced by the
// defaults above.
type Config struct {
	// StateDir holds the state file. Required unless a repository is
	// supplied with WithStateRepository.
	StateDir string

	// MaxLifespan is the age past which the managed broadcast is rotated.
	MaxLifespan time.Duration

	// CheckInterval is the time between scheduled ticks.
	CheckInterval time.Duration

	ReadinessTimeout      time.Duration
	ReadinessPollInterval time.Duration

	GoLiveMaxAttempts int

	// GoLiveSettle is the wait after starting the encoder before checking
	// for live. Use NoDelay to check immediately.
	GoLiveSettle time.Duration

	// RestartGap is the pause between stopping and restarting the encoder
	// output on a go-live retry. Use NoDelay to restart immediately.
	RestartGap time.Duration

	// Broadcast describes every broadcast the keeper provisions.
	Broadcast BroadcastSpec
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.MaxLifespan == 0 {
		c.MaxLifespan = DefaultMaxLifespan
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.ReadinessTimeout == 0 {
		c.ReadinessTimeout = DefaultReadinessTimeout
	}
	if c.ReadinessPollInterval == 0 {
		c.ReadinessPollInterval = DefaultReadinessPollInterval
	}
	if c.GoLiveMaxAttempts == 0 {
		c.GoLiveMaxAttempts = DefaultGoLiveMaxAttempts
	}
	if c.GoLiveSettle == 0 {
		c.GoLiveSettle = DefaultGoLiveSettle
	}
	if c.RestartGap == 0 {
		c.RestartGap = DefaultRestartGap
	}
	if c.Broadcast.Visibility == "" {
		c.Broadcast.Visibility = domain.VisibilityUnlisted
	}
}

// Validate checks the configuration. It is called by New after SetDefaults.
func (c *Config) Validate() error {
	if c.MaxLifespan < 0 {
		return invalid("MaxLifespan must be positive")
	}
	if c.CheckInterval < 0 {
		return invalid("CheckInterval must be positive")
	}
	if c.ReadinessTimeout < 0 || c.ReadinessPollInterval < 0 {
		return invalid("readiness bounds must be positive")
	}
	if c.GoLiveMaxAttempts < 0 {
		return invalid("GoLiveMaxAttempts must be positive")
	}
	if !validDelay(c.GoLiveSettle) || !validDelay(c.RestartGap) {
		return invalid("go-live delays must not be negative")
	}
	if c.Broadcast.Title == "" {
		return invalid("Broadcast.Title is required")
	}
	switch c.Broadcast.Visibility {
	case domain.VisibilityPublic, domain.VisibilityUnlisted, domain.VisibilityPrivate:
	default:
		return invalid(fmt.Sprintf("Broadcast.Visibility %q must be public, unlisted or private", c.Broadcast.Visibility))
	}
	return nil
}

func validDelay(d time.Duration) bool {
	return d >= 0 || d == NoDelay
}

// delay resolves NoDelay to a zero pause.
func delay(d time.Duration) time.Duration {
	if d == NoDelay {
		return 0
	}
	return d
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}
