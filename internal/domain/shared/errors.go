package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps cause in its chain
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Error codes
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeProviderError     = "PROVIDER_ERROR"
	CodeEncryptionError   = "ENCRYPTION_ERROR"
	CodeInvalidState      = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists     = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation        = NewDomainError(CodeValidationFailed, "Validation failed")
	ErrInvalidState      = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
)

// NewNotFoundError reports a missing resource of the given kind
func NewNotFoundError(resource string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id))
}

// NewValidationError reports a rejected input
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidationFailed, message)
}

// ProviderError is a failure reported by, or while talking to, an external provider.
type ProviderError struct {
	Provider     string
	Operation    string
	ProviderCode string
	StatusCode   int
	Retryable    bool
	Err          error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Provider, e.Operation)
	if e.ProviderCode != "" {
		msg += " (" + e.ProviderCode + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a failure of operation against provider
func NewProviderError(provider, operation string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Operation: operation, Err: err}
}

// EncryptionError is a failure to seal or open a stored credential.
// It never carries the plaintext or the key.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	if e.Err == nil {
		return "credential " + e.Op + " failed"
	}
	return fmt.Sprintf("credential %s failed: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation reports whether err rejects caller input
func IsValidation(err error) bool {
	return hasCode(err, CodeValidationFailed) ||
		hasCode(err, CodeInvalidInput) ||
		hasCode(err, CodeInsufficientStock)
}

// IsProviderError reports whether err originates from an external provider
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsRetryable reports whether a provider failure may succeed on retry
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// IsEncryptionError reports whether err is a credential vault failure
func IsEncryptionError(err error) bool {
	var ee *EncryptionError
	return errors.As(err, &ee)
}

func hasCode(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}
