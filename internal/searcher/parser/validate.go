package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/errors"
)

// ValidationError reports a query rejected before compilation. Message is
// safe to show to end users as-is.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, apperrors.ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func newValidationError(value any, message string) *ValidationError {
	return &ValidationError{
		Field:   "query",
		Value:   value,
		Message: message,
	}
}

// Validate checks emptiness and length. Length is counted in characters,
// not bytes.
func (c *Compiler) Validate(query string) error {
	if strings.TrimSpace(query) == "" {
		return newValidationError(query, "Query cannot be empty")
	}
	if utf8.RuneCountInString(query) > c.maxLen {
		return newValidationError(query, fmt.Sprintf("Query exceeds maximum length of %d characters", c.maxLen))
	}
	return nil
}

// ValidateAny validates a loosely typed value, such as a decoded JSON field,
// and returns the query string when it is acceptable.
func (c *Compiler) ValidateAny(v any) (string, error) {
	query, ok := v.(string)
	if !ok {
		return "", newValidationError(v, "Query must be a non-empty string")
	}
	if err := c.Validate(query); err != nil {
		return "", err
	}
	return query, nil
}
