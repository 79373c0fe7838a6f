package assist

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls the LLM mapping assistant.
type Config struct {
	Enabled  bool   `toml:"enabled"`
	Timeout  string `toml:"timeout"`
	CacheTTL string `toml:"cache_ttl"`
	Samples  int    `toml:"samples"`
}

// Env maps Config fields to environment variable names.
type Env struct {
	Enabled  string
	Timeout  string
	CacheTTL string
	Samples  string
}

// Finalize applies defaults, environment overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
	if overlay.Samples > 0 {
		c.Samples = overlay.Samples
	}
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// CacheTTLDuration returns CacheTTL as a time.Duration. Zero means replies
// are not cached.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "20s"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "30m"
	}
	if c.Samples <= 0 {
		c.Samples = 5
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.CacheTTL != "" {
		if v := os.Getenv(env.CacheTTL); v != "" {
			c.CacheTTL = v
		}
	}
	if env.Samples != "" {
		if v := os.Getenv(env.Samples); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Samples = n
			}
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	ttl, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	if ttl < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.Samples < 1 {
		return fmt.Errorf("samples must be positive")
	}
	return nil
}
