// Package scenario picks error scenarios to inject into mock responses.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/random"
)

// Scenario is an enabled error scenario with its response already parsed
type Scenario struct {
	Name        string
	Condition   string
	StatusCode  int
	Body        json.RawMessage
	Probability float64
}

// Compile parses the stored response of an error scenario
func Compile(s models.ErrorScenario) (Scenario, error) {
	if s.StatusCode < 100 || s.StatusCode > 599 {
		return Scenario{}, fmt.Errorf("status code %d out of range [100,599]", s.StatusCode)
	}
	if s.Probability < 0 || s.Probability > 100 {
		return Scenario{}, fmt.Errorf("probability %v out of range [0,100]", s.Probability)
	}

	raw := []byte(strings.TrimSpace(s.Response))
	if !json.Valid(raw) {
		return Scenario{}, fmt.Errorf("response is not valid JSON")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Scenario{}, err
	}

	return Scenario{
		Name:        s.Name,
		Condition:   s.Condition,
		StatusCode:  s.StatusCode,
		Body:        json.RawMessage(buf.Bytes()),
		Probability: s.Probability,
	}, nil
}

// Selector makes the probabilistic scenario draws
type Selector struct {
	rng random.Source
}

// NewSelector creates a selector drawing from rng
func NewSelector(rng random.Source) *Selector {
	return &Selector{rng: rng}
}

// Roll draws once per scenario in order and returns the first scenario whose
// draw in [0,100) falls below its probability. Scenarios with a probability
// of zero or less are skipped without a draw.
func (s *Selector) Roll(scenarios []Scenario) (Scenario, bool) {
	for _, sc := range scenarios {
		if sc.Probability <= 0 {
			continue
		}
		if s.rng.Float64()*100 < sc.Probability {
			return sc, true
		}
	}
	return Scenario{}, false
}

// MatchField returns the first scenario whose condition label contains the
// field name, ignoring case
func MatchField(scenarios []Scenario, field string) (Scenario, bool) {
	needle := strings.ToLower(field)
	for _, sc := range scenarios {
		if strings.Contains(strings.ToLower(sc.Condition), needle) {
			return sc, true
		}
	}
	return Scenario{}, false
}
