package models

// RuleKind names the check a validation rule performs
type RuleKind string

// Supported rule kinds
const (
	RuleRequired    RuleKind = "required"
	RuleEmail       RuleKind = "email"
	RuleMinLength   RuleKind = "minLength"
	RuleMaxLength   RuleKind = "maxLength"
	RulePattern     RuleKind = "pattern"
	RuleNumeric     RuleKind = "numeric"
	RuleConditional RuleKind = "conditional"
	RuleCustom      RuleKind = "custom"
)

// Operator names the comparison a condition performs
type Operator string

// Supported condition operators
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "notExists"
)

// Logic combines the conditions of a conditional rule
type Logic string

// Supported combination logic. An empty Logic means LogicAnd.
const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// ValidationRule is one field-level check
type ValidationRule struct {
	ID               string      `json:"id,omitempty" yaml:"id,omitempty"`
	Field            string      `json:"field" yaml:"field" validate:"required"`
	Kind             RuleKind    `json:"type" yaml:"type" validate:"oneof=required email minLength maxLength pattern numeric conditional custom"`
	Value            Value       `json:"value" yaml:"value,omitempty"`
	Message          string      `json:"message" yaml:"message"`
	Enabled          bool        `json:"enabled" yaml:"enabled"`
	Conditions       []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty" validate:"dive"`
	ConditionalLogic Logic       `json:"conditionalLogic,omitempty" yaml:"conditionalLogic,omitempty" validate:"omitempty,oneof=and or"`
}

// Condition is one sub-comparison inside a conditional rule
type Condition struct {
	Field    string   `json:"field" yaml:"field" validate:"required"`
	Operator Operator `json:"operator" yaml:"operator" validate:"oneof=equals notEquals contains notContains greaterThan lessThan exists notExists"`
	Value    Value    `json:"value" yaml:"value,omitempty"`
}

// ErrorScenario is a canned failure the engine may inject
type ErrorScenario struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string  `json:"name" yaml:"name"`
	Condition   string  `json:"condition" yaml:"condition"`
	StatusCode  int     `json:"statusCode" yaml:"statusCode" validate:"min=100,max=599"`
	Response    string  `json:"response" yaml:"response" validate:"json"`
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Probability float64 `json:"probability" yaml:"probability" validate:"min=0,max=100"`
}

// ValidationConfig is the validation policy of one endpoint
type ValidationConfig struct {
	Enabled        bool             `json:"enabled" yaml:"enabled"`
	Rules          []ValidationRule `json:"rules" yaml:"rules" validate:"dive"`
	ErrorScenarios []ErrorScenario  `json:"errorScenarios" yaml:"errorScenarios" validate:"dive"`
	StrictMode     bool             `json:"strictMode" yaml:"strictMode"`
}

// ValidRuleKinds returns all supported rule kinds
func ValidRuleKinds() []RuleKind {
	return []RuleKind{
		RuleRequired, RuleEmail, RuleMinLength, RuleMaxLength,
		RulePattern, RuleNumeric, RuleConditional, RuleCustom,
	}
}

// ValidOperators returns all supported condition operators
func ValidOperators() []Operator {
	return []Operator{
		OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpGreaterThan, OpLessThan, OpExists, OpNotExists,
	}
}
