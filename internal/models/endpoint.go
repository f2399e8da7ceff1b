package models

import (
	"net/http"
	"strings"
	"time"
)

// Collection groups endpoints under a common name
type Collection struct {
	ID          string      `json:"id" yaml:"id" validate:"required"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Endpoints   []*Endpoint `json:"endpoints,omitempty" yaml:"endpoints,omitempty" validate:"dive"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// Endpoint is one mocked route with its response and validation policy
type Endpoint struct {
	ID           string            `json:"id" yaml:"id" validate:"required"`
	CollectionID string            `json:"collectionId" yaml:"collectionId,omitempty"`
	Name         string            `json:"name" yaml:"name"`
	Method       string            `json:"method" yaml:"method" validate:"required"`
	Path         string            `json:"path" yaml:"path" validate:"required,startswith=/"`
	ResponseBody string            `json:"responseBody" yaml:"responseBody"` // Can contain <<tag>> placeholders
	StatusCode   int               `json:"statusCode" yaml:"statusCode" validate:"omitempty,min=100,max=599"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Validation   ValidationConfig  `json:"validation" yaml:"validation"`
	Array        *ArrayConfig      `json:"array,omitempty" yaml:"array,omitempty"`
	Delay        DelayConfig       `json:"delay" yaml:"delay"`
	CreatedAt    time.Time         `json:"createdAt" yaml:"createdAt,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt" yaml:"updatedAt,omitempty"`
}

// DelayConfig is the artificial latency policy, in milliseconds
type DelayConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Min     int  `json:"min" yaml:"min" validate:"min=0"`
	Max     int  `json:"max" yaml:"max" validate:"min=0"`
}

// ArrayConfig bounds how many times an array-shaped template is repeated
type ArrayConfig struct {
	Min int `json:"min" yaml:"min" validate:"min=0"`
	Max int `json:"max" yaml:"max" validate:"min=0"`
}

// Endpoint defaults
const (
	DefaultResponseBody = "{}"
	DefaultStatusCode   = http.StatusOK
	DefaultDelayMin     = 100
	DefaultDelayMax     = 1000
	DefaultArrayMin     = 1
	DefaultArrayMax     = 5
)

// DefaultDelay returns the delay policy new endpoints start with
func DefaultDelay() DelayConfig {
	return DelayConfig{Enabled: false, Min: DefaultDelayMin, Max: DefaultDelayMax}
}

// DefaultArray returns the repetition bounds new array templates start with
func DefaultArray() *ArrayConfig {
	return &ArrayConfig{Min: DefaultArrayMin, Max: DefaultArrayMax}
}

// ApplyDefaults fills unset fields with their defaults
func (e *Endpoint) ApplyDefaults() {
	e.Method = strings.ToUpper(e.Method)
	if strings.TrimSpace(e.ResponseBody) == "" {
		e.ResponseBody = DefaultResponseBody
	}
	if e.StatusCode == 0 {
		e.StatusCode = DefaultStatusCode
	}
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	if !e.Delay.Enabled && e.Delay.Min == 0 && e.Delay.Max == 0 {
		e.Delay = DefaultDelay()
	}
}

// IsMutating reports whether requests with this method carry a body that
// goes through validation
func IsMutating(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
