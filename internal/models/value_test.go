package models

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"string", `{"value":"abc"}`, StringValue("abc")},
		{"empty string", `{"value":""}`, StringValue("")},
		{"integer", `{"value":8}`, NumberValue(8)},
		{"float", `{"value":2.5}`, NumberValue(2.5)},
		{"null", `{"value":null}`, Value{}},
		{"missing", `{}`, Value{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var holder struct {
				Value Value `json:"value"`
			}
			if err := json.Unmarshal([]byte(tt.input), &holder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if holder.Value != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, holder.Value)
			}
		})
	}
}

func TestValue_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Error("expected error for object value")
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	rule := ValidationRule{Field: "name", Kind: RuleMinLength, Value: NumberValue(3)}
	data, err := json.Marshal(rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded ValidationRule
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Value != NumberValue(3) {
		t.Errorf("expected number 3, got %+v", decoded.Value)
	}
	if decoded.Kind != RuleMinLength {
		t.Errorf("expected kind minLength, got %q", decoded.Kind)
	}
}

func TestValue_UnmarshalYAML(t *testing.T) {
	src := `
- field: age
  type: conditional
  conditions:
    - field: country
      operator: equals
      value: US
    - field: age
      operator: greaterThan
      value: 17
    - field: nickname
      operator: exists
`
	var rules []ValidationRule
	if err := yaml.Unmarshal([]byte(src), &rules); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conds := rules[0].Conditions
	if len(conds) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conds))
	}
	if conds[0].Value != StringValue("US") {
		t.Errorf("expected string US, got %+v", conds[0].Value)
	}
	if conds[1].Value != NumberValue(17) {
		t.Errorf("expected number 17, got %+v", conds[1].Value)
	}
	if !conds[2].Value.IsAbsent() {
		t.Errorf("expected absent value, got %+v", conds[2].Value)
	}
}

func TestValue_Number(t *testing.T) {
	if n, ok := NumberValue(4).Number(); !ok || n != 4 {
		t.Errorf("expected 4, got %v (%v)", n, ok)
	}
	if n, ok := StringValue("12.5").Number(); !ok || n != 12.5 {
		t.Errorf("expected 12.5, got %v (%v)", n, ok)
	}
	if _, ok := StringValue("abc").Number(); ok {
		t.Error("expected non-numeric string to fail")
	}
	if _, ok := (Value{}).Number(); ok {
		t.Error("expected absent value to fail")
	}
}

func TestIsMutating(t *testing.T) {
	for _, m := range []string{"POST", "put", "Patch"} {
		if !IsMutating(m) {
			t.Errorf("expected %s to be mutating", m)
		}
	}
	for _, m := range []string{"GET", "DELETE", "HEAD", "OPTIONS"} {
		if IsMutating(m) {
			t.Errorf("expected %s not to be mutating", m)
		}
	}
}

func TestEndpoint_ApplyDefaults(t *testing.T) {
	ep := &Endpoint{ID: "e1", Method: "post", Path: "/users"}
	ep.ApplyDefaults()

	if ep.Method != "POST" {
		t.Errorf("expected method POST, got %q", ep.Method)
	}
	if ep.ResponseBody != "{}" {
		t.Errorf("expected default body, got %q", ep.ResponseBody)
	}
	if ep.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", ep.StatusCode)
	}
	if ep.Delay.Enabled || ep.Delay.Min != 100 || ep.Delay.Max != 1000 {
		t.Errorf("unexpected default delay %+v", ep.Delay)
	}
}

func TestValidOperators(t *testing.T) {
	if len(ValidOperators()) != 8 {
		t.Errorf("Expected 8 operators, got %d", len(ValidOperators()))
	}
	if len(ValidRuleKinds()) != 8 {
		t.Errorf("Expected 8 rule kinds, got %d", len(ValidRuleKinds()))
	}
}
