package condition

import (
	"strings"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/payload"
)

// Evaluator evaluates conditions against a request body
type Evaluator struct{}

// NewEvaluator creates a new condition evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Combine evaluates all conditions and reduces them with the given logic.
// An empty logic means AND. An empty list is true under AND and false under OR.
func (e *Evaluator) Combine(conditions []models.Condition, logic models.Logic, body payload.Body) bool {
	if logic == models.LogicOr {
		for _, cond := range conditions {
			if e.Evaluate(cond, body) {
				return true
			}
		}
		return false
	}

	for _, cond := range conditions {
		if !e.Evaluate(cond, body) {
			return false
		}
	}
	return true
}

// Evaluate evaluates a single condition against the request body.
// Unknown operators evaluate to false.
func (e *Evaluator) Evaluate(cond models.Condition, body payload.Body) bool {
	field := body.Field(cond.Field)

	switch cond.Operator {
	case models.OpEquals:
		return equals(field, cond.Value)
	case models.OpNotEquals:
		return !equals(field, cond.Value)
	case models.OpContains:
		return contains(field, cond.Value)
	case models.OpNotContains:
		return !contains(field, cond.Value)
	case models.OpGreaterThan:
		a, b, ok := numbers(field, cond.Value)
		return ok && a > b
	case models.OpLessThan:
		a, b, ok := numbers(field, cond.Value)
		return ok && a < b
	case models.OpExists:
		return field.Present()
	case models.OpNotExists:
		return !field.Present()
	default:
		return false
	}
}

// equals compares without coercion, except that a string literal is
// compared with the JSON text of non-string scalars
func equals(field payload.Field, want models.Value) bool {
	if want.IsAbsent() {
		return !field.Exists()
	}
	if !field.Exists() {
		return false
	}

	switch want.Kind {
	case models.ValueString:
		if field.IsString() {
			return field.Str() == want.Str
		}
		return field.Text() == want.Str
	case models.ValueNumber:
		return field.IsNumber() && field.Num() == want.Num
	default:
		return false
	}
}

// contains only holds when both sides are strings
func contains(field payload.Field, want models.Value) bool {
	if !field.IsString() || want.Kind != models.ValueString {
		return false
	}
	return strings.Contains(field.Str(), want.Str)
}

// numbers coerces both sides for an ordering comparison
func numbers(field payload.Field, want models.Value) (float64, float64, bool) {
	a, ok := field.Number()
	if !ok {
		return 0, 0, false
	}

	var b float64
	switch want.Kind {
	case models.ValueNumber:
		b = want.Num
	case models.ValueString:
		if b, ok = payload.ParseNumber(want.Str); !ok {
			return 0, 0, false
		}
	default:
		return 0, 0, false
	}
	return a, b, true
}
