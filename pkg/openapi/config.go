package openapi

import "os"

// Config holds the document metadata served at the spec endpoint.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// ConfigEnv names the environment variables read during Finalize.
type ConfigEnv struct {
	Title       string
	Description string
}

// Finalize applies defaults and env overrides.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Tally API"
	}
	if c.Description == "" {
		c.Description = "Spreadsheet import service: header mapping against learned schema profiles, duplicate detection, and atomic record upserts."
	}
	if env == nil {
		return nil
	}
	if v := os.Getenv(env.Title); env.Title != "" && v != "" {
		c.Title = v
	}
	if v := os.Getenv(env.Description); env.Description != "" && v != "" {
		c.Description = v
	}
	return nil
}

// Merge overwrites fields set in overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
}
