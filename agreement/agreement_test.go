package agreement

import (
	"testing"

	"github.com/relsen/agentgraph/workflow"
)

func rule(kind workflow.AgreementRuleKind, value interface{}, required bool) workflow.AgreementRule {
	return workflow.AgreementRule{Name: "r", Kind: kind, Value: value, Required: required}
}

func TestContainsIsCaseInsensitive(t *testing.T) {
	r := Validate("The Answer is FOO", []workflow.AgreementRule{rule(workflow.RuleContains, "foo", true)})
	if !r.Passed {
		t.Fatalf("expected contains to pass case-insensitively: %+v", r)
	}
}

func TestNotContainsFailsWhenPresent(t *testing.T) {
	r := Validate("this has banned text", []workflow.AgreementRule{rule(workflow.RuleNotContains, "banned", true)})
	if r.Passed {
		t.Fatalf("expected not_contains to fail")
	}
	if len(r.FailedRequired) != 1 {
		t.Fatalf("expected one failed required rule, got %v", r.FailedRequired)
	}
}

func TestMinMaxWords(t *testing.T) {
	out := "one two three four five"
	r := Validate(out, []workflow.AgreementRule{
		rule(workflow.RuleMinWords, 3, true),
		rule(workflow.RuleMaxWords, 10, true),
	})
	if !r.Passed {
		t.Fatalf("expected both word-count rules to pass: %+v", r)
	}
	r2 := Validate(out, []workflow.AgreementRule{rule(workflow.RuleMaxWords, 2, true)})
	if r2.Passed {
		t.Fatalf("expected max_words to fail on 5-word output")
	}
}

func TestRegexRule(t *testing.T) {
	r := Validate("order #12345 confirmed", []workflow.AgreementRule{rule(workflow.RuleRegex, `#\d+`, true)})
	if !r.Passed {
		t.Fatalf("expected regex match to pass: %+v", r)
	}
}

func TestJSONRuleFindsEmbeddedObject(t *testing.T) {
	out := "Here is the result:\n```json\n{\"status\": \"ok\", \"count\": 3}\n```\nDone."
	r := Validate(out, []workflow.AgreementRule{rule(workflow.RuleJSON, nil, true)})
	if !r.Passed {
		t.Fatalf("expected json rule to find embedded object: %+v", r)
	}
}

func TestSchemaRuleChecksRequiredKeys(t *testing.T) {
	out := `{"name": "widget", "price": 9.99}`
	ok := Validate(out, []workflow.AgreementRule{rule(workflow.RuleSchema, []interface{}{"name", "price"}, true)})
	if !ok.Passed {
		t.Fatalf("expected schema rule to pass: %+v", ok)
	}
	missing := Validate(out, []workflow.AgreementRule{rule(workflow.RuleSchema, []interface{}{"name", "sku"}, true)})
	if missing.Passed {
		t.Fatalf("expected schema rule to fail on missing key")
	}
}

func TestSchemaRuleValidatesFullJSONSchemaDocument(t *testing.T) {
	schemaDoc := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name", "price"},
		"properties": map[string]interface{}{
			"price": map[string]interface{}{"type": "number"},
		},
	}
	out := `{"name": "widget", "price": 9.99}`
	ok := Validate(out, []workflow.AgreementRule{rule(workflow.RuleSchema, schemaDoc, true)})
	if !ok.Passed {
		t.Fatalf("expected full schema document to validate: %+v", ok)
	}

	badOut := `{"name": "widget", "price": "expensive"}`
	bad := Validate(badOut, []workflow.AgreementRule{rule(workflow.RuleSchema, schemaDoc, true)})
	if bad.Passed {
		t.Fatalf("expected type mismatch to fail schema validation")
	}
}

func TestUnknownRuleKindPassesByDefault(t *testing.T) {
	r := Validate("anything", []workflow.AgreementRule{rule(workflow.AgreementRuleKind("made_up"), nil, true)})
	if !r.Passed {
		t.Fatalf("expected unknown rule kind to pass by default")
	}
}

func TestCorrectionPreambleNamesFailedRules(t *testing.T) {
	r := Validate("short", []workflow.AgreementRule{rule(workflow.RuleMinWords, 10, true)})
	preamble := CorrectionPreamble(r.FailedRequired)
	if preamble == "" {
		t.Fatal("expected non-empty preamble for a failed required rule")
	}
}
