package validation

import (
	"regexp"
	"unicode/utf8"

	"github.com/prasenjit/go-mockapi/internal/condition"
	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/payload"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Evaluator applies validation rules to request bodies
type Evaluator struct {
	conditions *condition.Evaluator
}

// NewEvaluator creates a new rule evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{conditions: condition.NewEvaluator()}
}

// Evaluate checks one rule and returns its message when the body fails it
func (e *Evaluator) Evaluate(rule Rule, body payload.Body) (string, bool) {
	if e.passes(rule, body) {
		return "", false
	}
	return rule.Message, true
}

func (e *Evaluator) passes(rule Rule, body payload.Body) bool {
	field := body.Field(rule.Field)

	switch rule.Kind {
	case models.RuleRequired:
		return field.Present()

	case models.RuleEmail:
		return !field.Present() || emailPattern.MatchString(field.Text())

	case models.RuleMinLength:
		if !field.IsString() || !field.Present() {
			return true
		}
		return float64(utf8.RuneCountInString(field.Str())) >= rule.threshold

	case models.RuleMaxLength:
		if !field.IsString() || !field.Present() {
			return true
		}
		return float64(utf8.RuneCountInString(field.Str())) <= rule.threshold

	case models.RulePattern:
		if !field.IsString() || !field.Present() || rule.pattern == nil {
			return true
		}
		return rule.pattern.MatchString(field.Str())

	case models.RuleNumeric:
		if !field.Present() {
			return true
		}
		_, ok := field.Number()
		return ok

	case models.RuleConditional:
		if len(rule.Conditions) == 0 {
			return true
		}
		if !e.conditions.Combine(rule.Conditions, rule.ConditionalLogic, body) {
			return true
		}
		return field.Present()

	default:
		// custom and unknown kinds carry no built-in check
		return true
	}
}
