package assist_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/tally/internal/assist"
	"github.com/JaimeStill/tally/internal/metrics"
	"github.com/JaimeStill/tally/pkg/mapping"
	"github.com/JaimeStill/tally/pkg/schema"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() assist.Config {
	cfg := assist.Config{Enabled: true, Timeout: "200ms", CacheTTL: "1m"}
	if err := cfg.Finalize(nil); err != nil {
		panic(err)
	}
	return cfg
}

func request() mapping.AssistRequest {
	return mapping.AssistRequest{
		Entity: "inventory",
		Fields: []schema.Field{
			{Name: "vendor", Type: schema.TypeString},
			{Name: "quantity", Type: schema.TypeInteger, Aliases: []string{"qty"}},
		},
		Headers: []string{"Supplier"},
		Samples: map[string][]string{"Supplier": {"Aaaa Aaaa", "Aaaaa"}},
	}
}

func TestSuggest(t *testing.T) {
	reply := "```json\n[{\"incoming\":\"Supplier\",\"mapTo\":\"vendor\",\"nameConfidence\":0.97,\"typeConfidence\":0.99}," +
		"{\"incoming\":\"Invented\",\"mapTo\":\"vendor\",\"nameConfidence\":1,\"typeConfidence\":1}]\n```"

	var prompt string
	chat := func(_ context.Context, p string) (string, error) {
		prompt = p
		return reply, nil
	}

	m := metrics.New()
	a := assist.New(chat, testConfig(), m, discard())
	got := a.Suggest(context.Background(), request())

	if len(got) != 1 {
		t.Fatalf("len(suggestions) = %d, want 1 (unknown headers dropped)", len(got))
	}
	if got[0].MapTo == nil || *got[0].MapTo != "vendor" {
		t.Errorf("mapTo = %v, want vendor", got[0].MapTo)
	}
	if !strings.Contains(prompt, `"Supplier"`) || !strings.Contains(prompt, "canonicalFields") {
		t.Errorf("prompt missing request payload:\n%s", prompt)
	}
	if v := testutil.ToFloat64(m.AssistCallsTotal.WithLabelValues("ok")); v != 1 {
		t.Errorf("ok calls = %v, want 1", v)
	}
}

func TestSuggestCaches(t *testing.T) {
	var calls atomic.Int32
	chat := func(context.Context, string) (string, error) {
		calls.Add(1)
		return `{"suggestions":[{"incoming":"Supplier","mapTo":"vendor","nameConfidence":0.9,"typeConfidence":0.9}]}`, nil
	}

	m := metrics.New()
	a := assist.New(chat, testConfig(), m, discard())

	first := a.Suggest(context.Background(), request())
	second := a.Suggest(context.Background(), request())

	if calls.Load() != 1 {
		t.Errorf("chat calls = %d, want 1", calls.Load())
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("results = %d, %d, want 1, 1", len(first), len(second))
	}
	if v := testutil.ToFloat64(m.AssistCallsTotal.WithLabelValues("cached")); v != 1 {
		t.Errorf("cached calls = %v, want 1", v)
	}

	other := request()
	other.Headers = []string{"Supplier", "Units"}
	a.Suggest(context.Background(), other)
	if calls.Load() != 2 {
		t.Errorf("chat calls = %d, want 2 for a different request", calls.Load())
	}
}

func TestSuggestZeroTTLSkipsCache(t *testing.T) {
	var calls atomic.Int32
	chat := func(context.Context, string) (string, error) {
		calls.Add(1)
		return `{"suggestions":[{"incoming":"Supplier","mapTo":"vendor","nameConfidence":0.9,"typeConfidence":0.9}]}`, nil
	}

	cfg := testConfig()
	cfg.CacheTTL = "0s"

	m := metrics.New()
	a := assist.New(chat, cfg, m, discard())

	for range 3 {
		if got := a.Suggest(context.Background(), request()); len(got) != 1 {
			t.Fatalf("results = %d, want 1", len(got))
		}
	}

	if calls.Load() != 3 {
		t.Errorf("chat calls = %d, want 3 with caching disabled", calls.Load())
	}
	if v := testutil.ToFloat64(m.AssistCallsTotal.WithLabelValues("cached")); v != 0 {
		t.Errorf("cached calls = %v, want 0", v)
	}
	if v := testutil.ToFloat64(m.AssistCallsTotal.WithLabelValues("ok")); v != 3 {
		t.Errorf("ok calls = %v, want 3", v)
	}
}

func TestSuggestDegrades(t *testing.T) {
	tests := []struct {
		name    string
		chat    assist.ChatFunc
		outcome string
	}{
		{
			name: "transport error",
			chat: func(context.Context, string) (string, error) {
				return "", errors.New("connection refused")
			},
			outcome: "error",
		},
		{
			name: "malformed reply",
			chat: func(context.Context, string) (string, error) {
				return "I think Supplier is the vendor.", nil
			},
			outcome: "error",
		},
		{
			name: "wrong shape",
			chat: func(context.Context, string) (string, error) {
				return `{"mapping":"vendor"}`, nil
			},
			outcome: "error",
		},
		{
			name: "timeout",
			chat: func(ctx context.Context, _ string) (string, error) {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(5 * time.Second):
					return "[]", nil
				}
			},
			outcome: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			a := assist.New(tt.chat, testConfig(), m, discard())

			if got := a.Suggest(context.Background(), request()); len(got) != 0 {
				t.Errorf("suggestions = %+v, want none", got)
			}
			if v := testutil.ToFloat64(m.AssistCallsTotal.WithLabelValues(tt.outcome)); v != 1 {
				t.Errorf("%s calls = %v, want 1", tt.outcome, v)
			}
		})
	}
}

func TestSuggestSkipsEmptyRequest(t *testing.T) {
	chat := func(context.Context, string) (string, error) {
		t.Fatal("chat should not be called without headers")
		return "", nil
	}

	a := assist.New(chat, testConfig(), nil, discard())
	req := request()
	req.Headers = nil

	if got := a.Suggest(context.Background(), req); got != nil {
		t.Errorf("suggestions = %+v, want nil", got)
	}
}

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"incoming":"a","mapTo":null}]`, 1, false},
		{"envelope", `{"suggestions":[{"incoming":"a"},{"incoming":"b"}]}`, 2, false},
		{"fenced envelope", "```\n{\"suggestions\":[]}\n```", 0, false},
		{"prose", "no idea", 0, true},
		{"object without suggestions", `{"other":1}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assist.ParseSuggestions(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}
