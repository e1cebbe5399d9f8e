// Package agreement validates a node's generated output against its
// configured AgreementRules.
package agreement

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/relsen/agentgraph/workflow"
)

// RuleResult is one rule's verdict against an output.
type RuleResult struct {
	Name     string
	Kind     workflow.AgreementRuleKind
	Passed   bool
	Required bool
	Detail   string
}

// Report is the full validation outcome: every rule's result plus the
// aggregate pass/fail.
type Report struct {
	Passed         bool
	Results        []RuleResult
	FailedRequired []RuleResult
}

// Validate checks output against every rule, in order. Unknown rule
// kinds pass by default, per spec.
func Validate(output string, rules []workflow.AgreementRule) Report {
	report := Report{Passed: true}
	for _, rule := range rules {
		result := checkRule(output, rule)
		report.Results = append(report.Results, result)
		if !result.Passed {
			if rule.Required {
				report.Passed = false
				report.FailedRequired = append(report.FailedRequired, result)
			}
		}
	}
	return report
}

func checkRule(output string, rule workflow.AgreementRule) RuleResult {
	base := RuleResult{Name: rule.Name, Kind: rule.Kind, Required: rule.Required}

	switch rule.Kind {
	case workflow.RuleContains:
		substr := toString(rule.Value)
		ok := strings.Contains(strings.ToLower(output), strings.ToLower(substr))
		base.Passed = ok
		if !ok {
			base.Detail = fmt.Sprintf("expected output to contain %q", substr)
		}
		return base

	case workflow.RuleNotContains:
		substr := toString(rule.Value)
		ok := !strings.Contains(strings.ToLower(output), strings.ToLower(substr))
		base.Passed = ok
		if !ok {
			base.Detail = fmt.Sprintf("output must not contain %q", substr)
		}
		return base

	case workflow.RuleMinWords:
		n := toInt(rule.Value)
		count := len(strings.Fields(output))
		base.Passed = count >= n
		if !base.Passed {
			base.Detail = fmt.Sprintf("expected at least %d words, got %d", n, count)
		}
		return base

	case workflow.RuleMaxWords:
		n := toInt(rule.Value)
		count := len(strings.Fields(output))
		base.Passed = count <= n
		if !base.Passed {
			base.Detail = fmt.Sprintf("expected at most %d words, got %d", n, count)
		}
		return base

	case workflow.RuleRegex:
		pattern := toString(rule.Value)
		re, err := regexp.Compile(pattern)
		if err != nil {
			base.Passed = false
			base.Detail = fmt.Sprintf("invalid regex %q: %v", pattern, err)
			return base
		}
		base.Passed = re.MatchString(output)
		if !base.Passed {
			base.Detail = fmt.Sprintf("no match for pattern %q", pattern)
		}
		return base

	case workflow.RuleJSON:
		if !findJSONValue(output).Exists() {
			base.Passed = false
			base.Detail = "no embedded JSON object or array found"
		} else {
			base.Passed = true
		}
		return base

	case workflow.RuleSchema:
		ok, detail := checkSchema(output, rule.Value)
		base.Passed = ok
		base.Detail = detail
		return base

	default:
		base.Passed = true
		return base
	}
}

// findJSONValue locates the first balanced {...} or [...] substring in s
// that gjson considers valid JSON, returning the zero gjson.Result (whose
// Exists() is false) if none validates.
func findJSONValue(s string) gjson.Result {
	for i, c := range s {
		if c != '{' && c != '[' {
			continue
		}
		closer := byte('}')
		if c == '[' {
			closer = ']'
		}
		depth := 0
		for j := i; j < len(s); j++ {
			switch s[j] {
			case byte(c):
				depth++
			case closer:
				depth--
				if depth == 0 {
					candidate := s[i : j+1]
					if gjson.Valid(candidate) {
						return gjson.Parse(candidate)
					}
				}
			}
		}
	}
	return gjson.Result{}
}

// checkSchema implements the `schema` rule. When rule.Value is a full
// JSON Schema document (carries a "type" or "properties" keyword) the
// embedded JSON is compiled and validated against it with jsonschema/v6.
// Otherwise rule.Value is treated as the original flat required-keys
// form: either a []any of key names, or a map whose keys are the
// required names (values ignored) — all listed keys must be present in
// the parsed top-level object.
func checkSchema(output string, value interface{}) (bool, string) {
	found := findJSONValue(output)
	if !found.Exists() {
		return false, "no top-level JSON value found to check against schema"
	}

	if schemaMap, ok := value.(map[string]interface{}); ok {
		if _, hasType := schemaMap["type"]; hasType {
			return validateAgainstJSONSchema(found, schemaMap)
		}
		if _, hasProps := schemaMap["properties"]; hasProps {
			return validateAgainstJSONSchema(found, schemaMap)
		}
	}

	obj := found.Value()
	asMap, ok := obj.(map[string]interface{})
	if !ok {
		return false, "no top-level JSON object found to check against schema"
	}

	var required []string
	switch v := value.(type) {
	case []interface{}:
		for _, k := range v {
			required = append(required, toString(k))
		}
	case map[string]interface{}:
		for k := range v {
			required = append(required, k)
		}
	default:
		return true, ""
	}

	var missing []string
	for _, k := range required {
		if _, present := asMap[k]; !present {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("missing required keys: %s", strings.Join(missing, ", "))
	}
	return true, ""
}

// validateAgainstJSONSchema compiles schemaDoc as a JSON Schema document
// and validates found's decoded value against it.
func validateAgainstJSONSchema(found gjson.Result, schemaDoc map[string]interface{}) (bool, string) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("rule.json", schemaDoc); err != nil {
		return false, fmt.Sprintf("invalid schema document: %v", err)
	}
	compiled, err := c.Compile("rule.json")
	if err != nil {
		return false, fmt.Sprintf("invalid schema document: %v", err)
	}

	var instance interface{}
	if err := json.Unmarshal([]byte(found.Raw), &instance); err != nil {
		return false, fmt.Sprintf("could not decode embedded JSON: %v", err)
	}

	if err := compiled.Validate(instance); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		var i int
		fmt.Sscanf(n, "%d", &i)
		return i
	default:
		return 0
	}
}

// CorrectionPreamble builds the prompt prefix prepended before a retry,
// naming every failed required rule — with JSON hints for json/schema
// failures, per spec §4.7's validation loop.
func CorrectionPreamble(failed []RuleResult) string {
	if len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Your previous response failed the following required checks:\n")
	for _, r := range failed {
		b.WriteString("- ")
		b.WriteString(r.Name)
		b.WriteString(" (")
		b.WriteString(string(r.Kind))
		b.WriteString("): ")
		b.WriteString(r.Detail)
		b.WriteString("\n")
		if r.Kind == workflow.RuleJSON || r.Kind == workflow.RuleSchema {
			b.WriteString("  Respond with a single valid JSON value, without surrounding prose or code fences.\n")
		}
	}
	b.WriteString("Please correct your response and try again.\n\n")
	return b.String()
}
