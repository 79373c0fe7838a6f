package assist_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/tally/internal/assist"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	var cfg assist.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.Enabled {
		t.Error("Enabled = true, want false by default")
	}
	if cfg.TimeoutDuration() != 20*time.Second {
		t.Errorf("timeout = %v, want 20s", cfg.TimeoutDuration())
	}
	if cfg.CacheTTLDuration() != 30*time.Minute {
		t.Errorf("cache ttl = %v, want 30m", cfg.CacheTTLDuration())
	}
	if cfg.Samples != 5 {
		t.Errorf("samples = %d, want 5", cfg.Samples)
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("TEST_ASSIST_ENABLED", "true")
	t.Setenv("TEST_ASSIST_TIMEOUT", "3s")
	t.Setenv("TEST_ASSIST_SAMPLES", "8")

	env := &assist.Env{
		Enabled:  "TEST_ASSIST_ENABLED",
		Timeout:  "TEST_ASSIST_TIMEOUT",
		CacheTTL: "TEST_ASSIST_CACHE_TTL",
		Samples:  "TEST_ASSIST_SAMPLES",
	}

	var cfg assist.Config
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !cfg.Enabled {
		t.Error("Enabled = false, want true")
	}
	if cfg.TimeoutDuration() != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.TimeoutDuration())
	}
	if cfg.Samples != 8 {
		t.Errorf("samples = %d, want 8", cfg.Samples)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  assist.Config
	}{
		{"bad timeout", assist.Config{Timeout: "soon"}},
		{"negative timeout", assist.Config{Timeout: "-1s"}},
		{"bad cache ttl", assist.Config{CacheTTL: "forever"}},
		{"negative cache ttl", assist.Config{CacheTTL: "-5m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize succeeded, want error")
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := assist.Config{Timeout: "20s", CacheTTL: "30m", Samples: 5}
	base.Merge(&assist.Config{Enabled: true, Timeout: "5s"})

	if !base.Enabled || base.Timeout != "5s" || base.CacheTTL != "30m" || base.Samples != 5 {
		t.Errorf("merged = %+v", base)
	}
}

func TestConfigZeroCacheTTL(t *testing.T) {
	cfg := assist.Config{CacheTTL: "0s"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.CacheTTLDuration() != 0 {
		t.Errorf("cache ttl = %v, want 0", cfg.CacheTTLDuration())
	}
}
