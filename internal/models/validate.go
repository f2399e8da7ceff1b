package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every struct validation failure
var ErrInvalid = errors.New("invalid")

var structValidator = validator.New()

// Validate checks the struct tags of a collection and its endpoints
func (c *Collection) Validate() error {
	return validateStruct(c)
}

// Validate checks the struct tags of an endpoint and its validation config
func (e *Endpoint) Validate() error {
	return validateStruct(e)
}

func validateStruct(v interface{}) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
