// Package blackboard implements the engine's shared key/value state: a
// process-local map mutated by <set_state> tags and by interventions, with
// every write producing a change notification.
package blackboard

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/zeebo/blake3"
)

var (
	shortTag = regexp.MustCompile(`(?s)<set_state\s+key=["']([^"']+)["']\s+value=["']([^"']*)["']\s*/>`)
	longTag  = regexp.MustCompile(`(?s)<set_state\s+key=["']([^"']+)["']>(.*?)</set_state>`)
)

// Blackboard is safe for concurrent use; Set notifies registered watchers
// synchronously with a full snapshot, never a raw reference.
type Blackboard struct {
	mu       sync.RWMutex
	values   map[string]interface{}
	watchers []func(map[string]interface{})
}

// New returns an empty Blackboard.
func New() *Blackboard {
	return &Blackboard{values: make(map[string]interface{})}
}

// Watch registers fn to be called with a full snapshot after every Set.
func (b *Blackboard) Watch(fn func(map[string]interface{})) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, fn)
}

// Set writes key=value and notifies watchers.
func (b *Blackboard) Set(key string, value interface{}) {
	b.mu.Lock()
	b.values[key] = value
	snapshot := b.snapshotLocked()
	watchers := append([]func(map[string]interface{}){}, b.watchers...)
	b.mu.Unlock()

	for _, w := range watchers {
		w(snapshot)
	}
}

// Get returns the current value for key and whether it was present.
func (b *Blackboard) Get(key string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Snapshot returns a deep-enough copy of the current map for use in an
// ExecutionSnapshot; observers must never receive the live map.
func (b *Blackboard) Snapshot() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Blackboard) snapshotLocked() map[string]interface{} {
	out := make(map[string]interface{}, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Restore replaces the map wholesale (used by replay) without individually
// notifying watchers per key — callers emit one blackboard-update after.
func (b *Blackboard) Restore(values map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string]interface{}, len(values))
	for k, v := range values {
		b.values[k] = v
	}
}

// FeedbackKey is the reserved blackboard key an intervention writes to for
// nodeID; the engine appends rather than overwrites on re-intervention.
func FeedbackKey(nodeID string) string {
	return nodeID + "_feedback"
}

// AppendFeedback writes (or appends to) the reserved feedback key for
// nodeID.
func (b *Blackboard) AppendFeedback(nodeID, text string) {
	key := FeedbackKey(nodeID)
	b.mu.Lock()
	existing, _ := b.values[key].(string)
	if existing != "" {
		b.values[key] = existing + "\n" + text
	} else {
		b.values[key] = text
	}
	snapshot := b.snapshotLocked()
	watchers := append([]func(map[string]interface{}){}, b.watchers...)
	b.mu.Unlock()
	for _, w := range watchers {
		w(snapshot)
	}
}

// ExtractSetState scans text for <set_state> tags (both the short
// self-closing form and the long open/close form) and applies every match
// to b, returning the keys written: all short-form tags first, then all
// long-form tags, each group in document order. A long-form value that is
// itself valid JSON (an agent emitting a structured payload between the
// tags) is stored as the parsed value rather than the raw string, so
// downstream router conditions can address its fields directly.
func ExtractSetState(b *Blackboard, text string) []string {
	var written []string
	for _, m := range shortTag.FindAllStringSubmatch(text, -1) {
		b.Set(m[1], m[2])
		written = append(written, m[1])
	}
	for _, m := range longTag.FindAllStringSubmatch(text, -1) {
		b.Set(m[1], parseSetStateValue(m[2]))
		written = append(written, m[1])
	}
	return written
}

// parseSetStateValue returns the JSON-decoded form of raw when it is a
// valid JSON object or array, otherwise raw unchanged.
func parseSetStateValue(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	first := trimmed[0]
	if (first == '{' || first == '[') && gjson.Valid(trimmed) {
		return gjson.Parse(trimmed).Value()
	}
	return raw
}

// IdempotenceHash returns a stable hash of a snapshot's map content,
// independent of map iteration order.
func IdempotenceHash(values map[string]interface{}) string {
	h := blake3.New()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	// sort for determinism regardless of map iteration order
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v\n", k, values[k])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
