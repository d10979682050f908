package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConnection represents graph store connectivity errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeQuery represents malformed statements or constraint violations
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeCycle represents prerequisite cycles found during path generation
	ErrorTypeCycle ErrorType = "cycle"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeAI represents generative collaborator errors
	ErrorTypeAI ErrorType = "ai"
	// ErrorTypeWeb represents resource metadata fetch errors
	ErrorTypeWeb ErrorType = "web"
	// ErrorTypeValidation represents rejected domain input
	ErrorTypeValidation ErrorType = "validation"
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

// Kind returns the error category. Types embedding BaseError inherit it.
func (e *BaseError) Kind() ErrorType {
	return e.Type
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

// ErrStoreConnectionFailed is returned when the graph store is unreachable
type ErrStoreConnectionFailed struct {
	*BaseError
	URI string
}

func NewStoreConnectionFailed(uri string, err error) *ErrStoreConnectionFailed {
	return &ErrStoreConnectionFailed{
		BaseError: NewBaseError(ErrorTypeConnection, fmt.Sprintf("graph store unreachable: %s", uri), err),
		URI:       uri,
	}
}

// ErrStoreQueryFailed is returned on a malformed statement or constraint violation
type ErrStoreQueryFailed struct {
	*BaseError
	Query string
}

func NewStoreQueryFailed(query string, err error) *ErrStoreQueryFailed {
	return &ErrStoreQueryFailed{
		BaseError: NewBaseError(ErrorTypeQuery, "query failed", err),
		Query:     query,
	}
}

// Path Errors

// ErrCycleDetected is returned when path generation finds a prerequisite cycle
type ErrCycleDetected struct {
	*BaseError
	GoalConceptID string
	Remaining     []string
}

func NewCycleDetected(goalConceptID string, remaining []string) *ErrCycleDetected {
	return &ErrCycleDetected{
		BaseError:     NewBaseError(ErrorTypeCycle, fmt.Sprintf("prerequisite cycle reachable from concept %s", goalConceptID), nil),
		GoalConceptID: goalConceptID,
		Remaining:     remaining,
	}
}

// Context Errors

// ErrContextTimeout is returned when a store call exceeds its deadline
type ErrContextTimeout struct {
	*BaseError
	Operation string
}

func NewContextTimeout(operation string, err error) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("deadline exceeded: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextCancelled is returned when a store call is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Validation Errors

// ErrInvalidConcept is returned when a concept fails domain validation
type ErrInvalidConcept struct {
	*BaseError
	ConceptID string
	Reason    string
}

func NewInvalidConcept(conceptID, reason string) *ErrInvalidConcept {
	return &ErrInvalidConcept{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid concept %s: %s", conceptID, reason), nil),
		ConceptID: conceptID,
		Reason:    reason,
	}
}

// ErrInvalidRelationship is returned for relationship types outside the closed set
type ErrInvalidRelationship struct {
	*BaseError
	RelType string
}

func NewInvalidRelationship(relType string) *ErrInvalidRelationship {
	return &ErrInvalidRelationship{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("unknown relationship type: %s", relType), nil),
		RelType:   relType,
	}
}

// AI Errors

// ErrAIRequestFailed is returned when the generative collaborator fails
type ErrAIRequestFailed struct {
	*BaseError
	Model string
}

func NewAIRequestFailed(model string, err error) *ErrAIRequestFailed {
	return &ErrAIRequestFailed{
		BaseError: NewBaseError(ErrorTypeAI, "generative request failed", err),
		Model:     model,
	}
}

// Web Errors

// ErrMetadataFetchFailed is returned when a resource URL cannot be inspected
type ErrMetadataFetchFailed struct {
	*BaseError
	URL string
}

func NewMetadataFetchFailed(url string, err error) *ErrMetadataFetchFailed {
	return &ErrMetadataFetchFailed{
		BaseError: NewBaseError(ErrorTypeWeb, fmt.Sprintf("failed to fetch metadata: %s", url), err),
		URL:       url,
	}
}

// Helper functions

// IsErrorType checks if an error (or anything it wraps) is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if kinded, ok := err.(interface{ Kind() ErrorType }); ok {
			return kinded.Kind() == errType
		}
		wrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapper.Unwrap()
	}
	return false
}

// IsRetryable checks if an error is worth retrying with backoff
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	// Connection errors are retryable; query errors are not
	if IsErrorType(err, ErrorTypeConnection) {
		return true
	}
	return false
}
