package blackboard

import "testing"

func TestSetAndGetRoundTrips(t *testing.T) {
	b := New()
	b.Set("mood", "curious")
	v, ok := b.Get("mood")
	if !ok || v != "curious" {
		t.Fatalf("Get() = (%v, %v), want (curious, true)", v, ok)
	}
}

func TestSnapshotIsACopyNotALiveReference(t *testing.T) {
	b := New()
	b.Set("count", 1)
	snap := b.Snapshot()
	snap["count"] = 999
	v, _ := b.Get("count")
	if v != 1 {
		t.Fatalf("expected Snapshot to be independent of live state, got %v", v)
	}
}

func TestWatchNotifiesOnSet(t *testing.T) {
	b := New()
	var seen map[string]interface{}
	b.Watch(func(snapshot map[string]interface{}) { seen = snapshot })
	b.Set("k", "v")
	if seen["k"] != "v" {
		t.Fatalf("expected watcher to observe the write, got %v", seen)
	}
}

func TestAppendFeedbackAccumulates(t *testing.T) {
	b := New()
	b.AppendFeedback("node1", "first note")
	b.AppendFeedback("node1", "second note")
	v, _ := b.Get(FeedbackKey("node1"))
	if v != "first note\nsecond note" {
		t.Fatalf("expected accumulated feedback, got %q", v)
	}
}

func TestExtractSetStateShortForm(t *testing.T) {
	b := New()
	written := ExtractSetState(b, `Some text <set_state key="status" value="done"/> trailing`)
	if len(written) != 1 || written[0] != "status" {
		t.Fatalf("expected one key written, got %v", written)
	}
	v, _ := b.Get("status")
	if v != "done" {
		t.Fatalf("expected status=done, got %v", v)
	}
}

func TestExtractSetStateLongFormParsesEmbeddedJSON(t *testing.T) {
	b := New()
	text := `<set_state key="result">{"score": 42, "ok": true}</set_state>`
	ExtractSetState(b, text)
	v, ok := b.Get("result")
	if !ok {
		t.Fatal("expected result key to be set")
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("expected parsed JSON object, got %T: %v", v, v)
	}
	if m["score"] != float64(42) || m["ok"] != true {
		t.Fatalf("unexpected parsed values: %v", m)
	}
}

func TestExtractSetStateLongFormKeepsPlainTextAsString(t *testing.T) {
	b := New()
	text := `<set_state key="note">just a plain sentence</set_state>`
	ExtractSetState(b, text)
	v, _ := b.Get("note")
	if v != "just a plain sentence" {
		t.Fatalf("expected plain string preserved, got %v", v)
	}
}

func TestIdempotenceHashStableForSameContent(t *testing.T) {
	a := map[string]interface{}{"x": 1, "y": "two"}
	c := map[string]interface{}{"y": "two", "x": 1}
	if IdempotenceHash(a) != IdempotenceHash(c) {
		t.Fatal("expected hash to be independent of map iteration order")
	}
}

func TestIdempotenceHashChangesWithContent(t *testing.T) {
	a := map[string]interface{}{"x": 1}
	b := map[string]interface{}{"x": 2}
	if IdempotenceHash(a) == IdempotenceHash(b) {
		t.Fatal("expected different content to hash differently")
	}
}
