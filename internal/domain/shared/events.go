// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Student events
	EventStudentRegistered  EventType = "student.registered"
	EventStudentActivated   EventType = "student.activated"
	EventStudentDeactivated EventType = "student.deactivated"

	// Enrollment events
	EventStudentEnrolled     EventType = "enrollment.student_enrolled"
	EventEnrollmentActivated EventType = "enrollment.activated"
	EventEnrollmentCompleted EventType = "enrollment.completed"
	EventEnrollmentCancelled EventType = "enrollment.cancelled"

	// Payment events
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentRefunded  EventType = "payment.refunded"

	// Progress events
	EventLessonCompleted EventType = "progress.lesson_completed"
	EventCourseCompleted EventType = "progress.course_completed"

	// Certificate events
	EventCertificateIssued EventType = "certificate.issued"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentRegisteredEvent is emitted when a new student account is created.
type StudentRegisteredEvent struct {
	BaseEvent
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Payload implements Event interface.
func (e StudentRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"email":        e.Email,
		"display_name": e.DisplayName,
	}
}

// NewStudentRegisteredEvent creates a new StudentRegisteredEvent.
func NewStudentRegisteredEvent(studentID, email, displayName string) StudentRegisteredEvent {
	return StudentRegisteredEvent{
		BaseEvent:   NewBaseEvent(EventStudentRegistered, studentID),
		Email:       email,
		DisplayName: displayName,
	}
}

// StudentStatusChangedEvent is emitted when a student is activated or deactivated.
// The event type distinguishes the direction of the change.
type StudentStatusChangedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Active    bool   `json:"active"`
	Reason    string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e StudentStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"active":     e.Active,
		"reason":     e.Reason,
	}
}

// NewStudentStatusChangedEvent creates a new StudentStatusChangedEvent.
func NewStudentStatusChangedEvent(studentID string, active bool, reason string) StudentStatusChangedEvent {
	eventType := EventStudentDeactivated
	if active {
		eventType = EventStudentActivated
	}
	return StudentStatusChangedEvent{
		BaseEvent: NewBaseEvent(eventType, studentID),
		StudentID: studentID,
		Active:    active,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentEnrolledEvent is emitted when a new enrollment is created (PendingPayment).
type StudentEnrolledEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
}

// Payload implements Event interface.
func (e StudentEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"price_cents":   e.PriceCents,
		"currency":      e.Currency,
	}
}

// NewStudentEnrolledEvent creates a new StudentEnrolledEvent.
func NewStudentEnrolledEvent(enrollmentID, studentID, courseID string, priceCents int64, currency string) StudentEnrolledEvent {
	return StudentEnrolledEvent{
		BaseEvent:    NewBaseEvent(EventStudentEnrolled, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		PriceCents:   priceCents,
		Currency:     currency,
	}
}

// EnrollmentActivatedEvent is emitted when payment succeeds and the enrollment
// transitions to Active.
type EnrollmentActivatedEvent struct {
	BaseEvent
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     string    `json:"course_id"`
	PaymentID    string    `json:"payment_id"`
	ActivatedAt  time.Time `json:"activated_at"`
}

// Payload implements Event interface.
func (e EnrollmentActivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"payment_id":    e.PaymentID,
		"activated_at":  e.ActivatedAt.Format(time.RFC3339),
	}
}

// NewEnrollmentActivatedEvent creates a new EnrollmentActivatedEvent.
func NewEnrollmentActivatedEvent(enrollmentID, studentID, courseID, paymentID string, activatedAt time.Time) EnrollmentActivatedEvent {
	return EnrollmentActivatedEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentActivated, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		PaymentID:    paymentID,
		ActivatedAt:  activatedAt,
	}
}

// EnrollmentCompletedEvent is emitted when all lessons are done and the
// enrollment transitions to Completed.
type EnrollmentCompletedEvent struct {
	BaseEvent
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     string    `json:"course_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Payload implements Event interface.
func (e EnrollmentCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"completed_at":  e.CompletedAt.Format(time.RFC3339),
	}
}

// NewEnrollmentCompletedEvent creates a new EnrollmentCompletedEvent.
func NewEnrollmentCompletedEvent(enrollmentID, studentID, courseID string, completedAt time.Time) EnrollmentCompletedEvent {
	return EnrollmentCompletedEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentCompleted, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		CompletedAt:  completedAt,
	}
}

// EnrollmentCancelledEvent is emitted when an enrollment is cancelled.
type EnrollmentCancelledEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseID     string `json:"course_id"`
	Reason       string `json:"reason"`
}

// Payload implements Event interface.
func (e EnrollmentCancelledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"reason":        e.Reason,
	}
}

// NewEnrollmentCancelledEvent creates a new EnrollmentCancelledEvent.
func NewEnrollmentCancelledEvent(enrollmentID, studentID, courseID, reason string) EnrollmentCancelledEvent {
	return EnrollmentCancelledEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentCancelled, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		Reason:       reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Payment Events
// ═══════════════════════════════════════════════════════════════════════════

// PaymentSucceededEvent is emitted when the gateway confirms a charge.
type PaymentSucceededEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	EnrollmentID  string `json:"enrollment_id"`
	StudentID     string `json:"student_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
}

// Payload implements Event interface.
func (e PaymentSucceededEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"payment_id":     e.PaymentID,
		"enrollment_id":  e.EnrollmentID,
		"student_id":     e.StudentID,
		"amount_cents":   e.AmountCents,
		"currency":       e.Currency,
		"transaction_id": e.TransactionID,
	}
}

// NewPaymentSucceededEvent creates a new PaymentSucceededEvent.
func NewPaymentSucceededEvent(paymentID, enrollmentID, studentID string, amountCents int64, currency, transactionID string) PaymentSucceededEvent {
	return PaymentSucceededEvent{
		BaseEvent:     NewBaseEvent(EventPaymentSucceeded, paymentID),
		PaymentID:     paymentID,
		EnrollmentID:  enrollmentID,
		StudentID:     studentID,
		AmountCents:   amountCents,
		Currency:      currency,
		TransactionID: transactionID,
	}
}

// PaymentFailedEvent is emitted when the gateway declines a charge or the
// call fails. The enrollment stays pending, so the student may retry.
type PaymentFailedEvent struct {
	BaseEvent
	PaymentID    string `json:"payment_id"`
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	Reason       string `json:"reason"`
}

// Payload implements Event interface.
func (e PaymentFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"payment_id":    e.PaymentID,
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"reason":        e.Reason,
	}
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent.
func NewPaymentFailedEvent(paymentID, enrollmentID, studentID, reason string) PaymentFailedEvent {
	return PaymentFailedEvent{
		BaseEvent:    NewBaseEvent(EventPaymentFailed, paymentID),
		PaymentID:    paymentID,
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		Reason:       reason,
	}
}

// PaymentRefundedEvent is emitted when a refund is confirmed by the gateway.
type PaymentRefundedEvent struct {
	BaseEvent
	PaymentID    string `json:"payment_id"`
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	Reason       string `json:"reason"`
}

// Payload implements Event interface.
func (e PaymentRefundedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"payment_id":    e.PaymentID,
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"reason":        e.Reason,
	}
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent.
func NewPaymentRefundedEvent(paymentID, enrollmentID, studentID, reason string) PaymentRefundedEvent {
	return PaymentRefundedEvent{
		BaseEvent:    NewBaseEvent(EventPaymentRefunded, paymentID),
		PaymentID:    paymentID,
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		Reason:       reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonCompletedEvent is emitted when a lesson completion fact is first
// recorded. Re-recording the same lesson does not emit a second event.
type LessonCompletedEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	CourseID       string `json:"course_id"`
	LessonID       string `json:"lesson_id"`
	CompletedCount int    `json:"completed_count"`
	TotalCount     int    `json:"total_count"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"course_id":       e.CourseID,
		"lesson_id":       e.LessonID,
		"completed_count": e.CompletedCount,
		"total_count":     e.TotalCount,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(studentID, courseID, lessonID string, completed, total int) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:      NewBaseEvent(EventLessonCompleted, studentID),
		StudentID:      studentID,
		CourseID:       courseID,
		LessonID:       lessonID,
		CompletedCount: completed,
		TotalCount:     total,
	}
}

// CourseCompletedEvent is emitted when the progress aggregate is marked completed.
type CourseCompletedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(studentID, courseID string) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent: NewBaseEvent(EventCourseCompleted, studentID),
		StudentID: studentID,
		CourseID:  courseID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateIssuedEvent is emitted exactly once per (student, course) when a
// certificate is created.
type CertificateIssuedEvent struct {
	BaseEvent
	CertificateID     string `json:"certificate_id"`
	StudentID         string `json:"student_id"`
	CourseID          string `json:"course_id"`
	CertificateNumber string `json:"certificate_number"`
}

// Payload implements Event interface.
func (e CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certificate_id":     e.CertificateID,
		"student_id":         e.StudentID,
		"course_id":          e.CourseID,
		"certificate_number": e.CertificateNumber,
	}
}

// NewCertificateIssuedEvent creates a new CertificateIssuedEvent.
func NewCertificateIssuedEvent(certificateID, studentID, courseID, number string) CertificateIssuedEvent {
	return CertificateIssuedEvent{
		BaseEvent:         NewBaseEvent(EventCertificateIssued, certificateID),
		CertificateID:     certificateID,
		StudentID:         studentID,
		CourseID:          courseID,
		CertificateNumber: number,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
//
// Commands publish only after their repository writes have succeeded, so
// subscribers never observe an event for a change that was rolled back.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
