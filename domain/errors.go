package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedFormat marks provider responses that could not be decoded
var ErrUnexpectedFormat = errors.New("unexpected response format")

// ServiceError is returned when a remote provider answers with an error status
type ServiceError struct {
	Provider   string
	StatusCode int
	Message    string
}

// NewServiceError builds a ServiceError from a raw error body
func NewServiceError(provider string, statusCode int, body []byte) *ServiceError {
	message := strings.TrimSpace(string(body))
	if len(message) > 512 {
		message = message[:512]
	}
	return &ServiceError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
	}
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// FormatError wraps a decode failure so that errors.Is(err, ErrUnexpectedFormat) holds
func FormatError(provider string, err error) error {
	if err == nil {
		return fmt.Errorf("%w from %s", ErrUnexpectedFormat, provider)
	}
	return fmt.Errorf("%w from %s: %v", ErrUnexpectedFormat, provider, err)
}
