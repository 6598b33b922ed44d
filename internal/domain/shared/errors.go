// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")
	ErrInvalidFormat = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrConflict         = errors.New("conflicting state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrPrecondition     = errors.New("precondition not met")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrGateway            = errors.New("payment gateway error")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")

	// Infrastructure errors
	ErrInternal = errors.New("internal error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "enrollment", "payment", "progress"
	Op      string // Operation that failed, e.g., "Activate", "Refund"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Register", ErrAlreadyExists, "student already exists")
	ErrStudentInactive      = NewDomainError("student", "CheckStatus", ErrInvalidState, "student is not active")
	ErrInvalidEmail         = NewDomainError("student", "Validate", ErrInvalidFormat, "invalid email address")
)

// Enrollment domain errors
var (
	ErrEnrollmentNotFound  = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled     = NewDomainError("enrollment", "Create", ErrConflict, "student already has a non-cancelled enrollment in this course")
	ErrEnrollmentNotActive = NewDomainError("enrollment", "CheckStatus", ErrInvalidState, "enrollment is not active")
	ErrEnrollmentTerminal  = NewDomainError("enrollment", "Transition", ErrStateTransition, "enrollment is in a terminal state")
)

// Payment domain errors
var (
	ErrPaymentNotFound      = NewDomainError("payment", "Find", ErrNotFound, "payment not found")
	ErrPaymentNotPending    = NewDomainError("payment", "Process", ErrInvalidState, "enrollment is not awaiting payment")
	ErrAlreadyRefunded      = NewDomainError("payment", "Refund", ErrConflict, "payment already refunded")
	ErrPaymentNotRefundable = NewDomainError("payment", "Refund", ErrInvalidState, "only successful payments can be refunded")
	ErrPaymentDeclined      = NewDomainError("payment", "Charge", ErrGateway, "payment declined by gateway")
)

// Progress domain errors
var (
	ErrProgressNotFound   = NewDomainError("progress", "Find", ErrNotFound, "course progress not found")
	ErrLessonNotInCourse  = NewDomainError("progress", "Validate", ErrInvalidInput, "lesson does not belong to course")
	ErrCourseNotCompleted = NewDomainError("progress", "CompleteCourse", ErrPrecondition, "not all lessons are completed")
)

// Certificate domain errors
var (
	ErrCertificateNotFound = NewDomainError("certificate", "Find", ErrNotFound, "certificate not found")
	ErrCertificateExists   = NewDomainError("certificate", "Issue", ErrAlreadyExists, "certificate already issued for this course")
)

// Course catalog collaborator errors
var (
	ErrCourseNotFound        = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrLessonNotFound        = NewDomainError("course", "FindLesson", ErrNotFound, "lesson not found")
	ErrCatalogUnavailable    = NewDomainError("course", "Request", ErrServiceUnavailable, "course catalog is unavailable")
	ErrCatalogInvalidPayload = NewDomainError("course", "Parse", ErrInvalidFormat, "invalid response from course catalog")
)

// Payment gateway collaborator errors
var (
	ErrGatewayUnavailable = NewDomainError("paygate", "Request", ErrServiceUnavailable, "payment gateway is unavailable")
	ErrGatewayTimeout     = NewDomainError("paygate", "Request", ErrTimeout, "payment gateway request timeout")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflicting-state error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}

// IsInvalidState checks if the error is an illegal-transition error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsPrecondition checks if the error reports an unmet business precondition.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsGatewayError checks if the error originates from the payment gateway.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrGateway)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
