// Package modulator repeats array-shaped templates and draws response delays.
package modulator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prasenjit/go-mockapi/internal/models"
	"github.com/prasenjit/go-mockapi/internal/random"
	"github.com/prasenjit/go-mockapi/internal/template"
)

// ErrInvalidRange is returned for ranges with a negative bound or min > max
var ErrInvalidRange = errors.New("invalid range")

// Modulator applies array repetition and delay policies
type Modulator struct {
	rng      random.Source
	expander *template.Expander
}

// New creates a modulator. Each repeated element is expanded with expander.
func New(rng random.Source, expander *template.Expander) *Modulator {
	return &Modulator{rng: rng, expander: expander}
}

// CheckRange validates a [min,max] range
func CheckRange(min, max int) error {
	if min < 0 || max < 0 || min > max {
		return fmt.Errorf("%w: [%d,%d]", ErrInvalidRange, min, max)
	}
	return nil
}

// IsArrayShaped reports whether a template is a JSON array
func IsArrayShaped(tmpl string) bool {
	t := strings.TrimSpace(tmpl)
	return len(t) >= 2 && t[0] == '[' && t[len(t)-1] == ']'
}

// Repeat expands the elements of an array-shaped template a number of times
// drawn from [min,max]. Every copy is expanded independently.
func (m *Modulator) Repeat(tmpl string, cfg models.ArrayConfig) (string, error) {
	if err := CheckRange(cfg.Min, cfg.Max); err != nil {
		return "", fmt.Errorf("array: %w", err)
	}
	if !IsArrayShaped(tmpl) {
		return m.expander.Expand(tmpl), nil
	}

	t := strings.TrimSpace(tmpl)
	inner := strings.TrimSpace(t[1 : len(t)-1])
	if inner == "" {
		return "[]", nil
	}

	count := random.Between(m.rng, cfg.Min, cfg.Max)
	items := make([]string, count)
	for i := range items {
		items[i] = m.expander.Expand(inner)
	}
	return "[" + strings.Join(items, ",") + "]", nil
}

// Delay draws a delay in milliseconds. Disabled policies yield zero.
func (m *Modulator) Delay(cfg models.DelayConfig) (int, error) {
	if !cfg.Enabled {
		return 0, nil
	}
	if err := CheckRange(cfg.Min, cfg.Max); err != nil {
		return 0, fmt.Errorf("delay: %w", err)
	}
	return random.Between(m.rng, cfg.Min, cfg.Max), nil
}
