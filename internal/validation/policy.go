// Package validation compiles endpoint validation policies and evaluates
// their rules against request bodies.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/payload"
	"github.com/prasenjit/go-mockapi/internal/scenario"
)

// ErrInvalidConfig is wrapped by every configuration error
var ErrInvalidConfig = errors.New("invalid validation config")

// ConfigError lists the problems found while compiling a policy
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(e.Issues, "; "))
}

// Unwrap lets errors.Is match ErrInvalidConfig
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Rule is an enabled validation rule ready for evaluation
type Rule struct {
	models.ValidationRule
	threshold float64
	pattern   *regexp.Regexp
}

// Policy is a compiled validation config. Only enabled rules and scenarios
// are kept, in configuration order.
type Policy struct {
	Enabled    bool
	StrictMode bool
	Rules      []Rule
	Scenarios  []scenario.Scenario

	declared map[string]struct{}
}

var structValidator = validator.New()

// Compile checks the enabled parts of cfg and prepares them for evaluation.
// All problems are reported together in a *ConfigError.
func Compile(cfg models.ValidationConfig) (*Policy, error) {
	p := &Policy{
		Enabled:    cfg.Enabled,
		StrictMode: cfg.StrictMode,
		declared:   make(map[string]struct{}, len(cfg.Rules)),
	}

	var issues []string
	for i, r := range cfg.Rules {
		p.declared[topLevel(r.Field)] = struct{}{}
		if !r.Enabled {
			continue
		}

		rule, problems := CompileRule(r)
		for _, problem := range problems {
			issues = append(issues, fmt.Sprintf("rule %d (%s): %s", i, r.Field, problem))
		}
		if len(problems) == 0 {
			p.Rules = append(p.Rules, rule)
		}
	}

	for i, s := range cfg.ErrorScenarios {
		if !s.Enabled {
			continue
		}

		sc, err := scenario.Compile(s)
		if err != nil {
			issues = append(issues, fmt.Sprintf("scenario %d (%s): %v", i, s.Name, err))
			continue
		}
		p.Scenarios = append(p.Scenarios, sc)
	}

	if len(issues) > 0 {
		return nil, &ConfigError{Issues: issues}
	}
	return p, nil
}

// CompileRule checks a single rule and returns its problems, if any
func CompileRule(r models.ValidationRule) (Rule, []string) {
	var problems []string
	if err := structValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, describe(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	rule := Rule{ValidationRule: r}
	switch r.Kind {
	case models.RuleMinLength, models.RuleMaxLength:
		n, ok := r.Value.Number()
		if !ok {
			problems = append(problems, fmt.Sprintf("%s needs a numeric value", r.Kind))
		}
		rule.threshold = n
	case models.RulePattern:
		if r.Value.Kind != models.ValueString {
			problems = append(problems, "pattern needs a regular expression value")
			break
		}
		re, err := regexp.Compile(r.Value.Str)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid pattern: %v", err))
			break
		}
		rule.pattern = re
	case models.RuleConditional:
		for i, c := range r.Conditions {
			if c.Value.IsAbsent() && c.Operator != models.OpExists && c.Operator != models.OpNotExists {
				problems = append(problems, fmt.Sprintf("condition %d (%s): %s needs a value", i, c.Field, c.Operator))
			}
		}
	}

	return rule, problems
}

func describe(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}

// UnknownFields returns the top-level body keys not declared by any rule
func (p *Policy) UnknownFields(body payload.Body) []string {
	var unknown []string
	for _, key := range body.Keys() {
		if _, ok := p.declared[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

// DeclaredFields returns the sorted top-level names declared by the rules
func (p *Policy) DeclaredFields() []string {
	fields := make([]string, 0, len(p.declared))
	for f := range p.declared {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// UnknownFieldsMessage formats the strict mode error
func UnknownFieldsMessage(fields []string) string {
	return "Unknown fields: " + strings.Join(fields, ", ")
}

// topLevel returns the first segment of a field path, honouring \. escapes
func topLevel(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '\\':
			if i+1 < len(path) {
				i++
				b.WriteByte(path[i])
			}
		case '.':
			return b.String()
		default:
			b.WriteByte(path[i])
		}
	}
	return b.String()
}

// Summary describes a validation config in one line
func Summary(cfg models.ValidationConfig) string {
	if !cfg.Enabled {
		return "Validation disabled"
	}

	var rules, conditional, scenarios int
	for _, r := range cfg.Rules {
		if r.Enabled {
			rules++
			if r.Kind == models.RuleConditional {
				conditional++
			}
		}
	}
	for _, s := range cfg.ErrorScenarios {
		if s.Enabled {
			scenarios++
		}
	}

	summary := fmt.Sprintf("%d rules (%d conditional), %d error scenarios", rules, conditional, scenarios)
	if cfg.StrictMode {
		summary += ", strict mode"
	}
	return summary
}
