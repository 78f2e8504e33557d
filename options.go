package reqsched

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPollAfter        = 250 * time.Millisecond
	DefaultPromoteAfter     = 3000 * time.Millisecond
	DefaultTimeoutAfter     = 15000 * time.Millisecond
	DefaultConcurrencyLimit = 4
)

// Config configures a Scheduler.
//
// All zero values are replaced with defaults in FillDefaults. DefaultPriority
// has no replacement: zero is a valid priority.
type Config struct {
	// PollAfter is the tick interval of the scheduler loop. It is also the
	// unit by which pending age and active time advance.
	PollAfter time.Duration `yaml:"pollAfter"`

	// PromoteAfter is the pending wait after which a request's priority
	// number drops by one.
	PromoteAfter time.Duration `yaml:"promoteAfter"`

	// TimeoutAfter is the default per-request active time limit.
	TimeoutAfter time.Duration `yaml:"timeoutAfter"`

	// ConcurrencyLimit caps the number of simultaneously active requests.
	ConcurrencyLimit int `yaml:"concurrencyLimit"`

	DefaultPriority int `yaml:"defaultPriority"`

	// Headers are merged into every request; caller headers win.
	Headers map[string]string `yaml:"headers"`

	// OnInternalError and OnRequestError are invoked from the loop
	// goroutine and must not block. They must not call back into the
	// Scheduler (Submit, Abort, Future.Abort, Stop): those wait on the loop
	// and would deadlock.
	OnInternalError func(error)              `yaml:"-"`
	OnRequestError  func(id string, e error) `yaml:"-"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	c := Config{}
	c.FillDefaults()
	return c
}

func (c *Config) FillDefaults() {
	if c.PollAfter <= 0 {
		c.PollAfter = DefaultPollAfter
	}
	if c.PromoteAfter <= 0 {
		c.PromoteAfter = DefaultPromoteAfter
	}
	if c.TimeoutAfter <= 0 {
		c.TimeoutAfter = DefaultTimeoutAfter
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = DefaultConcurrencyLimit
	}
}

// Validate rejects negative durations and limits. Zero values are valid
// and mean "default".
func (c *Config) Validate() error {
	switch {
	case c.PollAfter < 0:
		return fmt.Errorf("%w: pollAfter must be >= 0", ErrInvalidConfig)
	case c.PromoteAfter < 0:
		return fmt.Errorf("%w: promoteAfter must be >= 0", ErrInvalidConfig)
	case c.TimeoutAfter < 0:
		return fmt.Errorf("%w: timeoutAfter must be >= 0", ErrInvalidConfig)
	case c.ConcurrencyLimit < 0:
		return fmt.Errorf("%w: concurrencyLimit must be >= 0", ErrInvalidConfig)
	}
	for name := range c.Headers {
		if !validHeaderName(name) {
			return fmt.Errorf("%w: invalid header name %q", ErrInvalidConfig, name)
		}
	}
	return nil
}

// ParseConfig decodes a YAML document into a Config with defaults filled.
// Durations use Go syntax, e.g. "250ms".
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.FillDefaults()
	return c, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reqsched: read config: %w", err)
	}
	return ParseConfig(data)
}
