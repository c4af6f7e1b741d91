package event

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// typePattern defines the valid format for event type strings.
// Types must be lowercase snake_case starting with a letter.
// Examples: "auth_failed", "rate_limit_exceeded", "unauthorized".
var typePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Input is the caller-supplied shape of an event before ingestion.
type Input struct {
	Type      string         `json:"event_type" validate:"required,max=128,event_type_format"`
	UserID    string         `json:"user_id,omitempty" validate:"omitempty,max=256"`
	IPAddress string         `json:"ip_address,omitempty" validate:"omitempty,ip"`
	Data      map[string]any `json:"additional_data,omitempty"`
}

// Validator validates event inputs arriving over the API boundary.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	v := validator.New()

	// Register custom validation for event type format
	v.RegisterValidation("event_type_format", func(fl validator.FieldLevel) bool {
		return typePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate validates an event input.
// Returns an error if validation fails.
func (v *Validator) Validate(in *Input) error {
	if err := v.validate.Struct(in); err != nil {
		return fmt.Errorf("event validation failed: %w", err)
	}
	return nil
}

// ValidType checks if an event type string matches the required format.
func ValidType(eventType string) bool {
	return typePattern.MatchString(eventType)
}
