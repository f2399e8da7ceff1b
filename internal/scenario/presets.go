package scenario

import (
	"net/http"

	"github.com/prasenjit/go-mockapi/internal/models"
)

// PresetProbability is the probability new scenarios start with
const PresetProbability = 10

// Presets returns the canned error scenarios offered when editing an endpoint
func Presets() []models.ErrorScenario {
	return []models.ErrorScenario{
		preset("Missing Required Field", "missing email", http.StatusBadRequest,
			`{"error":"Email is required","code":"MISSING_EMAIL"}`),
		preset("Invalid Email Format", "invalid email format", http.StatusBadRequest,
			`{"error":"Invalid email format","code":"INVALID_EMAIL"}`),
		preset("Duplicate Entry", "email already exists", http.StatusConflict,
			`{"error":"Email already exists","code":"DUPLICATE_EMAIL"}`),
		preset("Password Mismatch", "password confirmation mismatch", http.StatusBadRequest,
			`{"error":"Password confirmation does not match","code":"PASSWORD_MISMATCH"}`),
		preset("Age Restriction", "age below minimum", http.StatusBadRequest,
			`{"error":"Must be 18 or older","code":"AGE_RESTRICTION"}`),
		preset("Rate Limit Exceeded", "too many requests", http.StatusTooManyRequests,
			`{"error":"Rate limit exceeded","code":"RATE_LIMIT"}`),
		preset("Server Error", "random server error", http.StatusInternalServerError,
			`{"error":"Internal server error","code":"SERVER_ERROR"}`),
	}
}

func preset(name, condition string, status int, response string) models.ErrorScenario {
	return models.ErrorScenario{
		Name:        name,
		Condition:   condition,
		StatusCode:  status,
		Response:    response,
		Enabled:     true,
		Probability: PresetProbability,
	}
}
