package dag

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dispatchTag = regexp.MustCompile(`<dispatch_task\s+node=["']([^"']+)["']\s+input=["']([^"']*)["']\s*/>`)
	sleepTag    = regexp.MustCompile(`<sleep\s+duration=["']([^"']+)["']\s*/>`)
)

// dispatchCall is one parsed <dispatch_task> tag.
type dispatchCall struct {
	Node  string
	Input string
}

// parseDispatchTasks extracts every <dispatch_task node="..." input="..."/>
// tag from text, in document order.
func parseDispatchTasks(text string) []dispatchCall {
	matches := dispatchTag.FindAllStringSubmatch(text, -1)
	calls := make([]dispatchCall, 0, len(matches))
	for _, m := range matches {
		calls = append(calls, dispatchCall{Node: m[1], Input: m[2]})
	}
	return calls
}

// parseSleeps extracts every <sleep duration="..."/> tag's duration, in
// document order.
func parseSleeps(text string) []time.Duration {
	matches := sleepTag.FindAllStringSubmatch(text, -1)
	out := make([]time.Duration, 0, len(matches))
	for _, m := range matches {
		out = append(out, parseSleepDuration(m[1]))
	}
	return out
}

// parseSleepDuration parses a duration string whose suffix is s/m/h, or a
// bare number meaning seconds — the grammar §4.1 specifies for <sleep>.
func parseSleepDuration(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	unit := time.Second
	numeric := raw
	switch raw[len(raw)-1] {
	case 's':
		numeric = raw[:len(raw)-1]
	case 'm':
		unit = time.Minute
		numeric = raw[:len(raw)-1]
	case 'h':
		unit = time.Hour
		numeric = raw[:len(raw)-1]
	}
	n, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0
	}
	return time.Duration(n * float64(unit))
}

// rejectionMarkers and approvalMarkers drive auditor conditional routing
// (§4.1): an auditor's feedback edges fire on rejection language, its
// forward edges on approval language.
var (
	rejectionMarkers = []string{"incomplete", "needs_rework", "rejected", "not valid", "placeholder detected"}
	approvalMarkers  = []string{"validated", "approved", "complete", "ready", "passed"}
)

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
