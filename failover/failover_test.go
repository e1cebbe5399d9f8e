package failover

import (
	"context"
	"testing"
	"time"

	"github.com/relsen/agentgraph/provider"
)

func TestDetectFailureReasonMatchesExpectedBuckets(t *testing.T) {
	cases := map[string]Reason{
		"Error: rate limit exceeded, please retry": ReasonRateLimit,
		"429 Too Many Requests":                    ReasonRateLimit,
		"insufficient_quota for this account":      ReasonQuotaExceeded,
		"401 Unauthorized: invalid api key":        ReasonAuthentication,
		"model_not_found: no such model":           ReasonModelUnavailable,
		"request timed out after 30s":              ReasonTimeout,
		"502 bad gateway":                          ReasonAPIError,
		"something totally unexpected happened":    ReasonUnknown,
	}
	for msg, want := range cases {
		if got := DetectFailureReason(msg); got != want {
			t.Errorf("DetectFailureReason(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestCooldownForExactTable(t *testing.T) {
	cases := map[Reason]time.Duration{
		ReasonRateLimit:        300 * time.Second,
		ReasonQuotaExceeded:    3600 * time.Second,
		ReasonTimeout:          60 * time.Second,
		ReasonAPIError:         120 * time.Second,
		ReasonAuthentication:   0,
		ReasonModelUnavailable: 600 * time.Second,
		ReasonUnknown:          60 * time.Second,
	}
	for reason, want := range cases {
		if got := CooldownFor(reason); got != want {
			t.Errorf("CooldownFor(%v) = %v, want %v", reason, got, want)
		}
	}
}

func TestGroupOfFindsConfiguredModels(t *testing.T) {
	if g := GroupOf("gpt-3.5-turbo"); g != GroupFast {
		t.Fatalf("expected gpt-3.5-turbo in fast group, got %v", g)
	}
	if g := GroupOf("totally-unknown-model"); g != "" {
		t.Fatalf("expected empty group for unknown model, got %v", g)
	}
}

func newRegistryWithTwo(t *testing.T) (*provider.Registry, provider.Key, provider.Key, *provider.Mock, *provider.Mock) {
	t.Helper()
	r := provider.NewRegistry()
	primary := &provider.Mock{Responses: []string{provider.ErrorPrefix + "429 rate limit exceeded"}}
	backup := &provider.Mock{Responses: []string{"fallback answer"}}
	r.RegisterProvider("primary", primary)
	r.RegisterProvider("backup", backup)
	pk := provider.Key{ProviderID: "primary", Model: "gpt-3.5-turbo"}
	bk := provider.Key{ProviderID: "backup", Model: "gemini-1.5-flash-8b"}
	r.RegisterModel(pk, 0)
	r.RegisterModel(bk, 1)
	return r, pk, bk, primary, backup
}

func TestExecuteWithFailoverFallsBackToNextCandidate(t *testing.T) {
	r, pk, _, _, backup := newRegistryWithTwo(t)
	m := New(r, Config{MaxRetries: 3, RetryDelay: time.Millisecond})

	var events []FailoverEvent
	result, err := m.ExecuteWithFailover(context.Background(), pk, "", nil, provider.GenerateRequest{UserMessage: "hi"}, func(e FailoverEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "fallback answer" {
		t.Fatalf("expected fallback answer, got %q", result.Output)
	}
	if result.FinalProvider != "backup" {
		t.Fatalf("expected final provider backup, got %s", result.FinalProvider)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Attempts)
	}
	if len(events) != 1 || events[0].Reason != ReasonRateLimit {
		t.Fatalf("expected one rate_limit failover event, got %v", events)
	}
	if backup.CallCount() != 1 {
		t.Fatalf("expected backup called once, got %d", backup.CallCount())
	}
}

func TestExecuteWithFailoverReturnsClassifiedErrorWhenExhausted(t *testing.T) {
	r := provider.NewRegistry()
	only := &provider.Mock{Responses: []string{provider.ErrorPrefix + "request timed out"}}
	r.RegisterProvider("only", only)
	key := provider.Key{ProviderID: "only", Model: "no-group-model"}
	r.RegisterModel(key, 0)
	m := New(r, Config{MaxRetries: 2, RetryDelay: time.Millisecond})

	_, err := m.ExecuteWithFailover(context.Background(), key, "", nil, provider.GenerateRequest{UserMessage: "hi"}, nil)
	if err == nil {
		t.Fatal("expected error when no candidates remain")
	}
	ce, ok := err.(*ClassifiedError)
	if !ok {
		t.Fatalf("expected *ClassifiedError, got %T", err)
	}
	if ce.Reason != ReasonTimeout {
		t.Fatalf("expected timeout reason, got %v", ce.Reason)
	}
}

func TestExecuteWithFailoverUsesExplicitFallbackChain(t *testing.T) {
	r, pk, bk, _, _ := newRegistryWithTwo(t)
	r.SetFallbackChain(pk, []provider.Key{bk})
	m := New(r, Config{MaxRetries: 3, RetryDelay: time.Millisecond})

	result, err := m.ExecuteWithFailover(context.Background(), pk, "", nil, provider.GenerateRequest{UserMessage: "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalProvider != "backup" {
		t.Fatalf("expected explicit chain to route to backup, got %s", result.FinalProvider)
	}
}

func TestExecuteWithFailoverSucceedsOnFirstTryRecordsSuccess(t *testing.T) {
	r := provider.NewRegistry()
	mock := &provider.Mock{Responses: []string{"all good"}}
	r.RegisterProvider("solo", mock)
	key := provider.Key{ProviderID: "solo", Model: "claude-haiku-3-5"}
	r.RegisterModel(key, 0)
	m := New(r, DefaultConfig())

	result, err := m.ExecuteWithFailover(context.Background(), key, "", nil, provider.GenerateRequest{UserMessage: "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempts != 1 || result.Output != "all good" {
		t.Fatalf("unexpected result: %+v", result)
	}
	h, _ := r.Health(key)
	if h.SuccessRate() != 1.0 {
		t.Fatalf("expected success recorded, got rate %v", h.SuccessRate())
	}
}
