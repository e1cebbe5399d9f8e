package emit

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, false)
	e.Emit(Event{Kind: KindNodeStatus, RunID: "run-1", Step: 2, NodeID: "a", Message: "running"})
	out := buf.String()
	if !strings.Contains(out, "run=run-1") || !strings.Contains(out, "node=a") {
		t.Fatalf("unexpected text output: %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewLogEmitter(&buf, true)
	e.Emit(Event{Kind: KindLog, RunID: "run-2"})
	if !strings.Contains(buf.String(), `"run_id":"run-2"`) {
		t.Fatalf("expected JSON line with run_id, got %q", buf.String())
	}
}

func TestLogEmitterDefaultsToStdoutWithoutPanic(t *testing.T) {
	e := NewLogEmitter(nil, false)
	if e.writer == nil {
		t.Fatalf("expected default writer to be set")
	}
}

func TestBufferedFlushDeliversInOrder(t *testing.T) {
	var buf bytes.Buffer
	inner := NewLogEmitter(&buf, false)
	b := NewBuffered(inner, 0)
	b.Emit(Event{Kind: KindLog, NodeID: "1"})
	b.Emit(Event{Kind: KindLog, NodeID: "2"})
	if len(b.Pending()) != 2 {
		t.Fatalf("expected 2 pending events")
	}
	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(b.Pending()) != 0 {
		t.Fatalf("expected buffer drained after flush")
	}
}
