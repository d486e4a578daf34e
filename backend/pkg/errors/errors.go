package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStore represents entity/relationship store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeExpansion represents expansion loading errors
	ErrorTypeExpansion ErrorType = "expansion"
	// ErrorTypeSession represents explorer session errors
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Base returns the underlying BaseError. Promoted through embedding so
// typed errors can be matched by category without enumerating types.
func (e *BaseError) Base() *BaseError {
	return e
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Store Errors

// ErrEntityNotFound is returned when a figure is missing from the store.
// For a root expansion this is user-visible and halts loading for that
// root; a missing neighbor never fails the whole expansion.
type ErrEntityNotFound struct {
	*BaseError
	EntityID string
}

func NewEntityNotFound(entityID string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("entity not found: %s", entityID), nil),
		EntityID:  entityID,
	}
}

// ErrTransport is returned when a store fetch fails for transport
// reasons. Root fetches surface it as a retryable error state; non-root
// fetches degrade silently to a partial graph.
type ErrTransport struct {
	*BaseError
	EntityID string
}

func NewTransport(entityID string, err error) *ErrTransport {
	return &ErrTransport{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("fetch failed for entity: %s", entityID), err),
		EntityID:  entityID,
	}
}

// ErrStoreConnectionFailed is returned when the Neo4j connection fails
type ErrStoreConnectionFailed struct {
	*BaseError
	URI string
}

func NewStoreConnectionFailed(uri string, err error) *ErrStoreConnectionFailed {
	return &ErrStoreConnectionFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// Session Errors

// ErrSessionNotFound is returned when a session id is unknown
type ErrSessionNotFound struct {
	*BaseError
	SessionID string
}

func NewSessionNotFound(sessionID string) *ErrSessionNotFound {
	return &ErrSessionNotFound{
		BaseError: NewBaseError(ErrorTypeSession, fmt.Sprintf("session not found: %s", sessionID), nil),
		SessionID: sessionID,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error belongs to a category
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if be, ok := err.(interface{ Base() *BaseError }); ok {
			return be.Base().Type == errType
		}
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

// IsNotFound checks if an error is an entity-not-found error
func IsNotFound(err error) bool {
	for err != nil {
		if _, ok := err.(*ErrEntityNotFound); ok {
			return true
		}
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

// IsRetryable checks if an error is retryable. Transport and connection
// failures are; a missing entity is not.
func IsRetryable(err error) bool {
	if IsNotFound(err) {
		return false
	}
	return IsErrorType(err, ErrorTypeStore)
}
