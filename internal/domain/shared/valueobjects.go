// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// CourseID identifies a course in the external catalog. The catalog is an
// external collaborator, so the ID is held by value with no navigation.
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "invalid course ID format")
	}
	return cid, nil
}

// LessonID identifies a lesson in the external catalog.
type LessonID string

// IsValid checks if the lesson ID is a valid UUID.
func (l LessonID) IsValid() bool {
	return uuidRegex.MatchString(string(l))
}

// String returns the string representation.
func (l LessonID) String() string {
	return string(l)
}

// NewLessonID creates a new LessonID with validation.
func NewLessonID(id string) (LessonID, error) {
	lid := LessonID(strings.ToLower(strings.TrimSpace(id)))
	if !lid.IsValid() {
		return "", NewDomainError("shared", "NewLessonID", ErrInvalidID, "invalid lesson ID format")
	}
	return lid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Email
// ═══════════════════════════════════════════════════════════════════════════

// Email represents a validated email address.
type Email string

// Email validation regex (pragmatic, not RFC 5322).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValid checks if the email address is valid.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// Normalize returns a normalized (lowercase, trimmed) version of the email.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(strings.TrimSpace(string(e))))
}

// NewEmail creates a new Email with validation.
func NewEmail(raw string) (Email, error) {
	e := Email(raw).Normalize()
	if !e.IsValid() {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Money
// ═══════════════════════════════════════════════════════════════════════════

// Money represents a monetary amount in the smallest currency unit.
// The system is single-currency by design; the currency code travels with
// the amount only so receipts and gateway calls carry it explicitly.
type Money struct {
	// Cents is the amount in the smallest currency unit (e.g. cents).
	Cents int64

	// Currency is the ISO 4217 currency code (e.g. "EUR").
	Currency string
}

// NewMoney creates a Money value with validation.
func NewMoney(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, NewDomainError("shared", "NewMoney", ErrNegativeValue, "amount cannot be negative")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, NewDomainError("shared", "NewMoney", ErrInvalidFormat, "currency must be a 3-letter ISO code")
	}
	return Money{Cents: cents, Currency: currency}, nil
}

// IsZero returns true for a zero amount.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Equals compares two Money values.
func (m Money) Equals(other Money) bool {
	return m.Cents == other.Cents && m.Currency == other.Currency
}

// String returns a human-readable representation, e.g. "49.90 EUR".
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency)
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Number
// ═══════════════════════════════════════════════════════════════════════════

// CertificateNumber is the human-facing serial printed on a certificate,
// e.g. "LS-2026-0F3A9C1B".
type CertificateNumber string

var certNumberRegex = regexp.MustCompile(`^LS-\d{4}-[0-9A-F]{8}$`)

// IsValid checks the certificate number format.
func (n CertificateNumber) IsValid() bool {
	return certNumberRegex.MatchString(string(n))
}

// String returns the string representation.
func (n CertificateNumber) String() string {
	return string(n)
}

// NewCertificateNumber builds a certificate number from the issue year and a
// unique 8-hex-digit suffix (typically derived from the certificate UUID).
func NewCertificateNumber(year int, suffix string) (CertificateNumber, error) {
	n := CertificateNumber(fmt.Sprintf("LS-%04d-%s", year, strings.ToUpper(suffix)))
	if !n.IsValid() {
		return "", NewDomainError("shared", "NewCertificateNumber", ErrInvalidFormat, "invalid certificate number")
	}
	return n, nil
}
