package imports

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/tally/pkg/dedupe"
	"github.com/JaimeStill/tally/pkg/mapping"
	"github.com/JaimeStill/tally/pkg/schema"
)

// Config tunes the inspect and commit pipeline.
type Config struct {
	Entities            []string `toml:"entities"`
	SampleRows          int      `toml:"sample_rows"`
	ColdStartRows       int      `toml:"cold_start_rows"`
	CandidateLimit      int      `toml:"candidate_limit"`
	AutoMapThreshold    float64  `toml:"auto_map_threshold"`
	AutoInsertThreshold float64  `toml:"auto_insert_threshold"`
	MinSupport          float64  `toml:"min_support"`
	PreviewAutoInsert   int      `toml:"preview_auto_insert"`
	PreviewReview       int      `toml:"preview_review"`
	AssistSamples       int      `toml:"assist_samples"`
	Workers             int      `toml:"workers"`
}

// Env maps Config fields to environment variable names.
type Env struct {
	Entities            string
	CandidateLimit      string
	AutoInsertThreshold string
	Workers             string
}

// Finalize applies defaults, environment overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	c.normalize()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if len(overlay.Entities) > 0 {
		c.Entities = overlay.Entities
	}
	if overlay.SampleRows > 0 {
		c.SampleRows = overlay.SampleRows
	}
	if overlay.ColdStartRows > 0 {
		c.ColdStartRows = overlay.ColdStartRows
	}
	if overlay.CandidateLimit > 0 {
		c.CandidateLimit = overlay.CandidateLimit
	}
	if overlay.AutoMapThreshold > 0 {
		c.AutoMapThreshold = overlay.AutoMapThreshold
	}
	if overlay.AutoInsertThreshold > 0 {
		c.AutoInsertThreshold = overlay.AutoInsertThreshold
	}
	if overlay.MinSupport > 0 {
		c.MinSupport = overlay.MinSupport
	}
	if overlay.PreviewAutoInsert > 0 {
		c.PreviewAutoInsert = overlay.PreviewAutoInsert
	}
	if overlay.PreviewReview > 0 {
		c.PreviewReview = overlay.PreviewReview
	}
	if overlay.AssistSamples > 0 {
		c.AssistSamples = overlay.AssistSamples
	}
	if overlay.Workers > 0 {
		c.Workers = overlay.Workers
	}
}

// Allows reports whether entity is a configured import target.
func (c *Config) Allows(entity string) bool {
	return slices.Contains(c.Entities, entity)
}

func (c *Config) loadDefaults() {
	if len(c.Entities) == 0 {
		c.Entities = []string{"inventory", "shipments"}
	}
	if c.SampleRows <= 0 {
		c.SampleRows = mapping.DefaultSampleRows
	}
	if c.ColdStartRows <= 0 {
		c.ColdStartRows = 200
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = dedupe.DefaultCandidateLimit
	}
	if c.AutoMapThreshold <= 0 {
		c.AutoMapThreshold = mapping.AutoMapThreshold
	}
	if c.AutoInsertThreshold <= 0 {
		c.AutoInsertThreshold = dedupe.DefaultThreshold
	}
	if c.MinSupport <= 0 {
		c.MinSupport = schema.DefaultMinSupport
	}
	if c.PreviewAutoInsert <= 0 {
		c.PreviewAutoInsert = 50
	}
	if c.PreviewReview <= 0 {
		c.PreviewReview = 200
	}
	if c.AssistSamples <= 0 {
		c.AssistSamples = mapping.DefaultAssistSamples
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Entities != "" {
		if v := os.Getenv(env.Entities); v != "" {
			c.Entities = strings.Split(v, ",")
		}
	}
	if env.CandidateLimit != "" {
		if v := os.Getenv(env.CandidateLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.CandidateLimit = n
			}
		}
	}
	if env.AutoInsertThreshold != "" {
		if v := os.Getenv(env.AutoInsertThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.AutoInsertThreshold = f
			}
		}
	}
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
}

func (c *Config) normalize() {
	entities := make([]string, 0, len(c.Entities))
	for _, e := range c.Entities {
		e = normalizeEntity(e)
		if e != "" && !slices.Contains(entities, e) {
			entities = append(entities, e)
		}
	}
	c.Entities = entities
}

func (c *Config) validate() error {
	if len(c.Entities) == 0 {
		return fmt.Errorf("entities required")
	}
	if c.AutoMapThreshold > 1 {
		return fmt.Errorf("auto_map_threshold must be within (0, 1]")
	}
	if c.AutoInsertThreshold > 1 {
		return fmt.Errorf("auto_insert_threshold must be within (0, 1]")
	}
	if c.MinSupport > 1 {
		return fmt.Errorf("min_support must be within (0, 1]")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	return nil
}

func normalizeEntity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
