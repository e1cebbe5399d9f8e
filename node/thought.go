package node

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// ThoughtExtractor is a resumable state machine that strips
// <think>...</think> blocks from agent output, tolerating the tags
// being split across separate Feed calls (§4.6's thought-streaming
// extraction). Completed blocks are reported to onThought in order;
// everything outside a block passes through Feed's return value.
type ThoughtExtractor struct {
	onThought func(thought string)
	inThink   bool
	pending   string // bytes held back because they might be a partial tag
	thought   strings.Builder
}

// NewThoughtExtractor returns an extractor that calls onThought once per
// completed <think>...</think> block, in order.
func NewThoughtExtractor(onThought func(thought string)) *ThoughtExtractor {
	return &ThoughtExtractor{onThought: onThought}
}

// Feed processes a fragment of text and returns the portion of it (plus
// any previously held-back bytes) known not to belong to a thought block
// and not to be part of a still-forming tag.
func (t *ThoughtExtractor) Feed(fragment string) string {
	s := t.pending + fragment
	t.pending = ""

	var out strings.Builder
	for {
		tag := thinkClose
		if !t.inThink {
			tag = thinkOpen
		}
		idx := strings.Index(s, tag)
		if idx < 0 {
			safe, rest := splitSafeTail(s, tag)
			if t.inThink {
				t.thought.WriteString(safe)
			} else {
				out.WriteString(safe)
			}
			t.pending = rest
			return out.String()
		}

		before := s[:idx]
		if t.inThink {
			t.thought.WriteString(before)
			if t.onThought != nil {
				t.onThought(t.thought.String())
			}
			t.thought.Reset()
		} else {
			out.WriteString(before)
		}
		t.inThink = !t.inThink
		s = s[idx+len(tag):]
	}
}

// Flush returns any bytes still held back as ordinary output (an
// unterminated <think> block's opening tag turns out to just be text)
// and resets the extractor.
func (t *ThoughtExtractor) Flush() string {
	out := t.pending
	if t.inThink && t.thought.Len() > 0 {
		if t.onThought != nil {
			t.onThought(t.thought.String())
		}
	}
	t.pending = ""
	t.inThink = false
	t.thought.Reset()
	return out
}

// splitSafeTail holds back the longest suffix of s that is a prefix of
// tag (and so could still grow into a full match on the next Feed),
// returning the rest as safe to emit now.
func splitSafeTail(s, tag string) (safe, held string) {
	maxHold := len(tag) - 1
	if maxHold > len(s) {
		maxHold = len(s)
	}
	for n := maxHold; n > 0; n-- {
		if strings.HasPrefix(tag, s[len(s)-n:]) {
			return s[:len(s)-n], s[len(s)-n:]
		}
	}
	return s, ""
}
