package engine

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/modulator"
	"github.com/prasenjit/go-mockapi/internal/validation"
)

// Error body codes
const (
	EvaluationErrorCode  = "EVALUATION_ERROR"
	InvalidJSONErrorCode = "INVALID_JSON"
)

// ErrorBody is the JSON body of engine level error responses
type ErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	Code    string   `json:"code"`
}

// IsConfigError reports whether err was caused by a malformed endpoint definition
func IsConfigError(err error) bool {
	return errors.Is(err, validation.ErrInvalidConfig) || errors.Is(err, modulator.ErrInvalidRange)
}

// ErrorResponse maps an error returned by Respond to the response to send.
// Bad request bodies become 400 and everything else a 500 evaluation error.
func ErrorResponse(err error) *models.Response {
	if errors.Is(err, ErrBodyNotObject) {
		return errorResponse(http.StatusBadRequest, ErrorBody{
			Error: "Invalid JSON body",
			Code:  InvalidJSONErrorCode,
		})
	}

	var details []string
	var cerr *validation.ConfigError
	if errors.As(err, &cerr) {
		details = cerr.Issues
	} else {
		details = []string{err.Error()}
	}

	return errorResponse(http.StatusInternalServerError, ErrorBody{
		Error:   "Evaluation error",
		Details: details,
		Code:    EvaluationErrorCode,
	})
}

func errorResponse(status int, body ErrorBody) *models.Response {
	data, _ := json.Marshal(body)
	return &models.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": contentTypeJSON},
		Body:       data,
		Outcome:    models.OutcomeError,
		Errors:     append([]string{body.Error}, body.Details...),
	}
}
