// Package engine synthesizes mock responses from endpoint definitions.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/modulator"
	"github.com/prasenjit/go-mockapi/internal/payload"
	"github.com/prasenjit/go-mockapi/internal/random"
	"github.com/prasenjit/go-mockapi/internal/scenario"
	"github.com/prasenjit/go-mockapi/internal/template"
	"github.com/prasenjit/go-mockapi/internal/validation"
)

// ErrBodyNotObject is returned when a validated request body is not a JSON object
var ErrBodyNotObject = errors.New("request body must be a JSON object")

const contentTypeJSON = "application/json"

// Engine decides the status and body of a mock response and renders it
type Engine struct {
	expander  *template.Expander
	selector  *scenario.Selector
	rules     *validation.Evaluator
	modulator *modulator.Modulator
	logger    *zap.Logger
}

// Option configures an Engine
type Option func(*options)

type options struct {
	registry *template.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// WithRegistry replaces the built-in tag table
func WithRegistry(r *template.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used by date tags
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an engine drawing all randomness from rng
func New(rng random.Source, opts ...Option) *Engine {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = template.DefaultRegistry(rng, o.now)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	expander := template.NewExpander(o.registry)
	return &Engine{
		expander:  expander,
		selector:  scenario.NewSelector(rng),
		rules:     validation.NewEvaluator(),
		modulator: modulator.New(rng, expander),
		logger:    o.logger,
	}
}

// Expander returns the tag expander used for success responses
func (e *Engine) Expander() *template.Expander {
	return e.expander
}

// Validate compiles cfg and runs it against a request body. Configuration
// problems are returned as errors; validation failures and injected
// scenarios are ordinary results.
func (e *Engine) Validate(body payload.Body, cfg models.ValidationConfig) (models.EvaluationResult, error) {
	if !cfg.Enabled {
		return passed(), nil
	}

	policy, err := validation.Compile(cfg)
	if err != nil {
		return models.EvaluationResult{}, err
	}
	return e.Evaluate(body, policy), nil
}

// Evaluate runs a compiled policy against a request body
func (e *Engine) Evaluate(body payload.Body, policy *validation.Policy) models.EvaluationResult {
	if policy == nil || !policy.Enabled {
		return passed()
	}

	if sc, ok := e.selector.Roll(policy.Scenarios); ok {
		e.logger.Debug("error scenario injected", zap.String("scenario", sc.Name), zap.Float64("probability", sc.Probability))
		return injected(sc, []string{sc.Name})
	}

	var errs []string
	for _, rule := range policy.Rules {
		msg, failed := e.rules.Evaluate(rule, body)
		if !failed {
			continue
		}
		errs = append(errs, msg)

		if sc, ok := scenario.MatchField(policy.Scenarios, rule.Field); ok {
			e.logger.Debug("error scenario matched failing field", zap.String("scenario", sc.Name), zap.String("field", rule.Field))
			return injected(sc, []string{msg})
		}
	}

	if policy.StrictMode {
		if unknown := policy.UnknownFields(body); len(unknown) > 0 {
			errs = append(errs, validation.UnknownFieldsMessage(unknown))
		}
	}

	if len(errs) > 0 {
		e.logger.Debug("validation failed", zap.Strings("errors", errs))
		return models.EvaluationResult{
			Outcome:    models.OutcomeFailed,
			StatusCode: http.StatusBadRequest,
			Body: models.ValidationErrorBody{
				Error:   models.ValidationErrorMessage,
				Details: errs,
				Code:    models.ValidationErrorCode,
			},
			Errors: errs,
		}
	}

	return passed()
}

// Respond evaluates a request against an endpoint and renders the response.
// Only POST, PUT and PATCH requests are validated; their body must be a JSON
// object when validation is enabled. The validation policy is compiled on
// every call; use RespondWith to reuse a compiled one.
func (e *Engine) Respond(ep *models.Endpoint, method string, rawBody []byte) (*models.Response, error) {
	var policy *validation.Policy
	if models.IsMutating(method) && ep.Validation.Enabled {
		p, err := validation.Compile(ep.Validation)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	return e.RespondWith(ep, policy, method, rawBody)
}

// RespondWith is Respond with the endpoint's policy compiled in advance.
// A nil policy skips validation.
func (e *Engine) RespondWith(ep *models.Endpoint, policy *validation.Policy, method string, rawBody []byte) (*models.Response, error) {
	delayMs, err := e.modulator.Delay(ep.Delay)
	if err != nil {
		return nil, err
	}

	result := passed()
	if models.IsMutating(method) && policy != nil && policy.Enabled {
		body, err := payload.Parse(rawBody)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBodyNotObject, err)
		}
		result = e.Evaluate(body, policy)
	}

	if !result.Passed() {
		data, err := json.Marshal(result.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode error body: %w", err)
		}
		return &models.Response{
			StatusCode: result.StatusCode,
			Headers:    map[string]string{"Content-Type": contentTypeJSON},
			Body:       data,
			DelayMs:    delayMs,
			Outcome:    result.Outcome,
			Errors:     result.Errors,
			Scenario:   result.Scenario,
		}, nil
	}

	body, err := e.render(ep)
	if err != nil {
		return nil, err
	}

	headers := e.expander.ExpandHeaders(ep.Headers)
	if !hasHeader(headers, "Content-Type") && json.Valid([]byte(body)) {
		headers["Content-Type"] = contentTypeJSON
	}

	status := ep.StatusCode
	if status == 0 {
		status = models.DefaultStatusCode
	}

	return &models.Response{
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(body),
		DelayMs:    delayMs,
		Outcome:    models.OutcomePassed,
	}, nil
}

// render expands the success template of an endpoint
func (e *Engine) render(ep *models.Endpoint) (string, error) {
	tmpl := ep.ResponseBody
	if strings.TrimSpace(tmpl) == "" {
		tmpl = models.DefaultResponseBody
	}

	if ep.Array != nil && modulator.IsArrayShaped(tmpl) {
		return e.modulator.Repeat(tmpl, *ep.Array)
	}
	if looksLikeJSON(tmpl) {
		return e.expander.Expand(tmpl), nil
	}
	return e.expander.ExpandText(tmpl), nil
}

func passed() models.EvaluationResult {
	return models.EvaluationResult{Outcome: models.OutcomePassed, StatusCode: http.StatusOK}
}

func injected(sc scenario.Scenario, errs []string) models.EvaluationResult {
	return models.EvaluationResult{
		Outcome:    models.OutcomeInjected,
		StatusCode: sc.StatusCode,
		Body:       sc.Body,
		Errors:     errs,
		Scenario:   sc.Name,
	}
}

func looksLikeJSON(tmpl string) bool {
	t := strings.TrimSpace(tmpl)
	return t != "" && (t[0] == '{' || t[0] == '[')
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
