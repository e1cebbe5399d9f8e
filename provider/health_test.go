package provider

import (
	"testing"
	"time"
)

func TestHealthAvailableAfterCooldownExpires(t *testing.T) {
	h := &Health{Key: Key{ProviderID: "p", Model: "m"}}
	h.RecordFailure(10 * time.Millisecond)
	if h.IsAvailable() {
		t.Fatalf("expected unavailable immediately after failure")
	}
	time.Sleep(20 * time.Millisecond)
	if !h.IsAvailable() {
		t.Fatalf("expected available after cooldown elapses")
	}
}

func TestSuccessRateDefaultsToOneWithNoHistory(t *testing.T) {
	h := &Health{}
	if h.SuccessRate() != 1.0 {
		t.Fatalf("expected default success rate 1.0, got %v", h.SuccessRate())
	}
	h.RecordSuccess(time.Millisecond)
	h.RecordFailure(0)
	if got := h.SuccessRate(); got != 0.5 {
		t.Fatalf("expected success rate 0.5, got %v", got)
	}
}

func TestAvailableInGroupOrdersByPriorityThenSuccessRate(t *testing.T) {
	r := NewRegistry()
	low := r.RegisterModel(Key{ProviderID: "a", Model: "fast-1"}, 10)
	high := r.RegisterModel(Key{ProviderID: "b", Model: "fast-2"}, 5)
	low.RecordSuccess(time.Millisecond)
	high.RecordSuccess(time.Millisecond)

	group := func(model string) bool { return true }
	keys := r.AvailableInGroup("fast", group, Key{})
	if len(keys) != 2 || keys[0].ProviderID != "b" {
		t.Fatalf("expected provider b (lower priority number) first, got %v", keys)
	}
}
