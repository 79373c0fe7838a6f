// Package assist implements the LLM-backed mapping assistant. It only ever
// degrades: timeouts, transport failures, and malformed replies all yield
// no suggestions.
package assist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/patrickmn/go-cache"

	"github.com/JaimeStill/tally/internal/metrics"
	"github.com/JaimeStill/tally/pkg/formatting"
	"github.com/JaimeStill/tally/pkg/mapping"
)

// ChatFunc sends one prompt to a model and returns the text of its reply.
type ChatFunc func(ctx context.Context, prompt string) (string, error)

// AgentChat returns a ChatFunc backed by a go-agents agent built from cfg.
func AgentChat(cfg gaconfig.AgentConfig) ChatFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		a, err := agent.New(&cfg)
		if err != nil {
			return "", fmt.Errorf("create agent: %w", err)
		}

		resp, err := a.Chat(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("chat call: %w", err)
		}
		return resp.Content(), nil
	}
}

var _ mapping.Assistant = (*Assistant)(nil)

type envelope struct {
	Suggestions []mapping.Suggestion `json:"suggestions"`
}

// Assistant implements mapping.Assistant over a ChatFunc.
type Assistant struct {
	chat    ChatFunc
	timeout time.Duration
	cache   *cache.Cache
	metrics *metrics.Registry
	logger  *slog.Logger
}

// New creates an Assistant. m may be nil. A zero cache TTL disables the
// reply cache.
func New(chat ChatFunc, cfg Config, m *metrics.Registry, logger *slog.Logger) *Assistant {
	a := &Assistant{
		chat:    chat,
		timeout: cfg.TimeoutDuration(),
		metrics: m,
		logger:  logger.With("system", "assist"),
	}
	if ttl := cfg.CacheTTLDuration(); ttl > 0 {
		a.cache = cache.New(ttl, 2*ttl)
	}
	return a
}

// Suggest asks the model about req.Headers. Replies are cached by request
// digest, and anything naming a header outside the request is dropped.
func (a *Assistant) Suggest(ctx context.Context, req mapping.AssistRequest) []mapping.Suggestion {
	if len(req.Headers) == 0 {
		return nil
	}

	key, err := digest(req)
	if err != nil {
		a.logger.Warn("assist request not serializable", "error", err)
		return nil
	}

	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			a.observe("cached", 0)
			return slices.Clone(cached.([]mapping.Suggestion))
		}
	}

	start := time.Now()
	suggestions, err := a.ask(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		a.observe(outcome, elapsed)
		a.logger.Warn(
			"assist degraded to no suggestions",
			"entity", req.Entity,
			"headers", len(req.Headers),
			"outcome", outcome,
			"error", err,
		)
		return nil
	}

	a.observe("ok", elapsed)
	if a.cache != nil {
		a.cache.SetDefault(key, suggestions)
	}

	a.logger.Info(
		"assist suggestions received",
		"entity", req.Entity,
		"headers", len(req.Headers),
		"suggestions", len(suggestions),
		"duration", elapsed,
	)
	return slices.Clone(suggestions)
}

func (a *Assistant) ask(ctx context.Context, req mapping.AssistRequest) ([]mapping.Suggestion, error) {
	prompt, err := ComposePrompt(req)
	if err != nil {
		return nil, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	content, err := a.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := ParseSuggestions(content)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(req.Headers))
	for _, h := range req.Headers {
		known[h] = true
	}

	out := make([]mapping.Suggestion, 0, len(parsed))
	for _, s := range parsed {
		if known[s.Incoming] {
			out = append(out, s)
		}
	}
	return out, nil
}

// ParseSuggestions reads a model reply as either a bare JSON array or an
// object with a "suggestions" array, fenced or not.
func ParseSuggestions(content string) ([]mapping.Suggestion, error) {
	if list, err := formatting.Parse[[]mapping.Suggestion](content); err == nil {
		return list, nil
	}

	env, err := formatting.Parse[envelope](content)
	if err != nil {
		return nil, err
	}
	if env.Suggestions == nil {
		return nil, fmt.Errorf("%w: missing suggestions", formatting.ErrParseFailed)
	}
	return env.Suggestions, nil
}

func (a *Assistant) observe(outcome string, elapsed time.Duration) {
	if a.metrics == nil {
		return
	}
	a.metrics.AssistCallsTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		a.metrics.AssistDuration.Observe(elapsed.Seconds())
	}
}

func digest(req mapping.AssistRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
