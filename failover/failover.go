// Package failover implements automatic fallback across LLM backends:
// error classification, cooldown application, and candidate selection,
// wrapping a provider.Registry.
package failover

import (
	"context"
	"strings"
	"time"

	"github.com/relsen/agentgraph/provider"
)

// Reason classifies why a provider call failed.
type Reason string

const (
	ReasonRateLimit       Reason = "rate_limit"
	ReasonTimeout         Reason = "timeout"
	ReasonAPIError        Reason = "api_error"
	ReasonAuthentication  Reason = "authentication"
	ReasonQuotaExceeded   Reason = "quota_exceeded"
	ReasonModelUnavailable Reason = "model_unavailable"
	ReasonUnknown         Reason = "unknown"
)

// cooldowns mirrors the original's exact per-reason cooldown table.
var cooldowns = map[Reason]time.Duration{
	ReasonRateLimit:        300 * time.Second,
	ReasonQuotaExceeded:    3600 * time.Second,
	ReasonTimeout:          60 * time.Second,
	ReasonAPIError:         120 * time.Second,
	ReasonAuthentication:   0,
	ReasonModelUnavailable: 600 * time.Second,
	ReasonUnknown:          60 * time.Second,
}

// CooldownFor returns the fixed cooldown duration for reason.
func CooldownFor(reason Reason) time.Duration {
	if d, ok := cooldowns[reason]; ok {
		return d
	}
	return cooldowns[ReasonUnknown]
}

// classifiers holds, per reason, the substring patterns that identify it
// in a lowercased error/result string. Order matters: the first match
// wins, same as the original's if/elif chain.
var classifiers = []struct {
	reason   Reason
	patterns []string
}{
	{ReasonRateLimit, []string{"rate limit", "429", "too many requests"}},
	{ReasonQuotaExceeded, []string{"quota", "insufficient_quota", "billing"}},
	{ReasonAuthentication, []string{"authentication", "unauthorized", "401", "invalid api key", "invalid_api_key"}},
	{ReasonModelUnavailable, []string{"model unavailable", "model_not_found", "not_found", "unavailable"}},
	{ReasonTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ReasonAPIError, []string{"500", "502", "503", "internal server error", "api error"}},
}

// DetectFailureReason classifies a failure message by substring pattern,
// the same scheme as the original's detect_failure_reason.
func DetectFailureReason(message string) Reason {
	lower := strings.ToLower(message)
	for _, c := range classifiers {
		for _, pattern := range c.patterns {
			if strings.Contains(lower, pattern) {
				return c.reason
			}
		}
	}
	return ReasonUnknown
}

// Group is one of the three fixed model capability groups used for
// step-3 candidate selection.
type Group string

const (
	GroupHighCapability Group = "high_capability"
	GroupBalanced       Group = "balanced"
	GroupFast           Group = "fast"
)

// modelGroups mirrors the original's model_groups table: which models
// belong to which capability tier, for same-group fallback ordering.
var modelGroups = map[Group][]string{
	GroupHighCapability: {"claude-opus-4-1", "gpt-4o", "gemini-1.5-pro", "claude-sonnet-4-5-20250929"},
	GroupBalanced:       {"claude-sonnet-4-5-20250929", "gpt-4o-mini", "gemini-1.5-flash"},
	GroupFast:           {"gpt-3.5-turbo", "gemini-1.5-flash-8b", "claude-haiku-3-5"},
}

// GroupOf returns the capability group containing model, or "" if none.
func GroupOf(model string) Group {
	for group, models := range modelGroups {
		for _, m := range models {
			if m == model {
				return group
			}
		}
	}
	return ""
}

// ModelsIn returns the configured model list for group.
func ModelsIn(group Group) []string {
	return modelGroups[group]
}

// CategoryHint lets a caller (e.g. a tier manager) steer candidate
// selection toward a specific (provider, model) before group/priority
// fallback is consulted — step 2 of the candidate order.
type CategoryHint func(category string) (provider.Key, bool)

// Config holds the knobs execute_with_failover needs.
type Config struct {
	MaxRetries int           // default 3
	RetryDelay time.Duration // default 1s
}

// DefaultConfig matches the original's FailoverConfig defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: time.Second}
}

// Manager wraps a provider.Registry with classification, cooldown
// application, and candidate selection.
type Manager struct {
	registry *provider.Registry
	cfg      Config
}

// New returns a Manager over registry using cfg (zero-value Config is
// replaced with DefaultConfig()).
func New(registry *provider.Registry, cfg Config) *Manager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Manager{registry: registry, cfg: cfg}
}

// candidates returns the fallback order for key, per §4.10:
//  1. explicit chain, if configured
//  2. category hint, if given and it resolves
//  3. same-group available providers by (priority asc, success_rate desc)
//  4. any available provider by priority
func (m *Manager) candidates(key provider.Key, category string, hint CategoryHint) []provider.Key {
	if chain, ok := m.registry.FallbackChain(key); ok {
		return chain
	}
	if category != "" && hint != nil {
		if k, ok := hint(category); ok {
			return []provider.Key{k}
		}
	}
	group := GroupOf(key.Model)
	if group != "" {
		inGroup := func(model string) bool { return GroupOf(model) == group }
		if keys := m.registry.AvailableInGroup(string(group), inGroup, key); len(keys) > 0 {
			return keys
		}
	}
	return m.registry.AnyAvailable(key)
}

// FailoverEvent is passed to the on-failover callback between attempts.
type FailoverEvent struct {
	OldProvider, OldModel string
	NewProvider, NewModel string
	Reason                Reason
}

// Result is what ExecuteWithFailover returns: the generation output, the
// (provider, model) that actually produced it, and the number of
// attempts made.
type Result struct {
	Output        string
	FinalProvider string
	FinalModel    string
	Attempts      int
}

// ExecuteWithFailover tries key first, and on a classifiable failure
// (either a Go error or a provider.ErrorPrefix-convention string)
// classifies the reason, applies its cooldown, and tries the next
// candidate — up to cfg.MaxRetries distinct attempts, with cfg.RetryDelay
// between them. Authentication failures stop retrying on the same key
// immediately (their cooldown is 0, since the credential, not the
// backend, is presumably what needs fixing) but do not abort the overall
// attempt loop. onFailover, if non-nil, is invoked before each retry.
func (m *Manager) ExecuteWithFailover(
	ctx context.Context,
	key provider.Key,
	category string,
	hint CategoryHint,
	req provider.GenerateRequest,
	onFailover func(FailoverEvent),
) (Result, error) {
	current := key
	tried := map[provider.Key]bool{}
	var lastErr error

	for attempt := 0; attempt < m.cfg.MaxRetries; attempt++ {
		tried[current] = true
		p, ok := m.registry.Provider(current.ProviderID)
		if !ok {
			lastErr = &UnregisteredProviderError{ProviderID: current.ProviderID}
			break
		}
		health := m.registry.RegisterModel(current, 0)

		req.Model = current.Model
		start := time.Now()
		out, err := p.Generate(ctx, req)
		latency := time.Since(start)

		failed := err != nil || provider.IsErrorResult(out)
		if !failed {
			health.RecordSuccess(latency)
			return Result{Output: out, FinalProvider: current.ProviderID, FinalModel: current.Model, Attempts: attempt + 1}, nil
		}

		message := out
		if err != nil {
			message = err.Error()
		} else {
			message = provider.AsError(out)
		}
		reason := DetectFailureReason(message)
		health.RecordFailure(CooldownFor(reason))
		lastErr = &ClassifiedError{Reason: reason, Message: message}

		next := m.nextUntried(current, category, hint, tried)
		if next == nil {
			break
		}
		if onFailover != nil {
			onFailover(FailoverEvent{
				OldProvider: current.ProviderID, OldModel: current.Model,
				NewProvider: next.ProviderID, NewModel: next.Model,
				Reason: reason,
			})
		}
		current = *next

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(m.cfg.RetryDelay):
		}
	}

	return Result{}, lastErr
}

func (m *Manager) nextUntried(current provider.Key, category string, hint CategoryHint, tried map[provider.Key]bool) *provider.Key {
	for _, c := range m.candidates(current, category, hint) {
		if !tried[c] {
			return &c
		}
	}
	return nil
}

// ClassifiedError wraps a detected failure reason and the underlying
// message, returned when every candidate is exhausted.
type ClassifiedError struct {
	Reason  Reason
	Message string
}

func (e *ClassifiedError) Error() string {
	return string(e.Reason) + ": " + e.Message
}

// UnregisteredProviderError is returned when a candidate key names a
// provider_id with no registered Provider implementation.
type UnregisteredProviderError struct {
	ProviderID string
}

func (e *UnregisteredProviderError) Error() string {
	return "failover: no provider registered for id " + e.ProviderID
}
