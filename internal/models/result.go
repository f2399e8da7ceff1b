package models

// Outcome says which path an evaluation took
type Outcome string

// Evaluation outcomes
const (
	OutcomePassed   Outcome = "passed"
	OutcomeFailed   Outcome = "failed"
	OutcomeInjected Outcome = "injected"
	OutcomeError    Outcome = "error" // Bad request body or malformed endpoint definition
)

// Validation error body constants
const (
	ValidationErrorMessage = "Validation failed"
	ValidationErrorCode    = "VALIDATION_ERROR"
)

// EvaluationResult is the outcome of running a validation policy against a request
type EvaluationResult struct {
	Outcome    Outcome     `json:"outcome"`
	StatusCode int         `json:"statusCode"`
	Body       interface{} `json:"body,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Scenario   string      `json:"scenario,omitempty"` // Name of the injected scenario
}

// Passed reports whether the request may proceed to the success response
func (r EvaluationResult) Passed() bool {
	return r.Outcome == OutcomePassed
}

// ValidationErrorBody is the body returned when validation rules fail
type ValidationErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
	Code    string   `json:"code"`
}

// Response is the synthesized mock response handed to the transport
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"-"`
	DelayMs    int               `json:"delayMs"`
	Outcome    Outcome           `json:"outcome"`
	Errors     []string          `json:"errors,omitempty"`
	Scenario   string            `json:"scenario,omitempty"`
}
