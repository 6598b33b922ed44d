// Package projections implements read models for the CQRS read side.
package projections

import (
	"sync"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT SUMMARY VIEW - Denormalized Read Model for Learning Activity
// ══════════════════════════════════════════════════════════════════════════════

// StudentSummaryView maintains a denormalized per-student learning summary,
// built incrementally from domain events. It backs dashboards that need
// counts without joining four tables: active courses, lessons done today,
// certificates earned.
//
// The view is eventually consistent with the write side. On process restart
// it starts empty and fills as new events arrive; it is an accelerator, not
// a source of truth.
type StudentSummaryView struct {
	mu sync.RWMutex

	// summaries holds all student summaries indexed by student ID.
	summaries map[string]*StudentSummary

	// lastUpdated is the timestamp of the last applied event.
	lastUpdated time.Time

	// version is incremented on each update.
	version int64
}

// StudentSummary is the denormalized learning activity of one student.
type StudentSummary struct {
	StudentID string `json:"student_id"`

	// Enrollment lifecycle counters
	ActiveCourses    int `json:"active_courses"`
	CompletedCourses int `json:"completed_courses"`
	CancelledCourses int `json:"cancelled_courses"`

	// Progress counters
	LessonsCompleted int `json:"lessons_completed"`

	// Payments
	FailedPayments int `json:"failed_payments"`

	// Certificates
	Certificates      int       `json:"certificates"`
	LastCertificateAt time.Time `json:"last_certificate_at"`

	// LastActivity is the time of the last event for this student.
	LastActivity time.Time `json:"last_activity"`
}

// NewStudentSummaryView creates an empty view.
func NewStudentSummaryView() *StudentSummaryView {
	return &StudentSummaryView{
		summaries: make(map[string]*StudentSummary),
	}
}

// Apply folds a domain event into the view.
// Implements shared.EventHandler; unknown event types are ignored.
func (v *StudentSummaryView) Apply(event shared.Event) error {
	switch e := event.(type) {
	case shared.EnrollmentActivatedEvent:
		v.update(e.StudentID, event.OccurredAt(), func(s *StudentSummary) {
			s.ActiveCourses++
		})

	case shared.EnrollmentCompletedEvent:
		v.update(e.StudentID, event.OccurredAt(), func(s *StudentSummary) {
			if s.ActiveCourses > 0 {
				s.ActiveCourses--
			}
			s.CompletedCourses++
		})

	case shared.EnrollmentCancelledEvent:
		v.update(e.StudentID, event.OccurredAt(), func(s *StudentSummary) {
			if s.ActiveCourses > 0 {
				s.ActiveCourses--
			}
			s.CancelledCourses++
		})

	case shared.LessonCompletedEvent:
		v.update(e.StudentID, event.OccurredAt(), func(s *StudentSummary) {
			s.LessonsCompleted++
		})

	case shared.PaymentFailedEvent:
		v.update(e.StudentID, event.OccurredAt(), func(s *StudentSummary) {
			s.FailedPayments++
		})

	case shared.CertificateIssuedEvent:
		v.update(e.StudentID, event.OccurredAt(), func(s *StudentSummary) {
			s.Certificates++
			s.LastCertificateAt = event.OccurredAt()
		})
	}

	return nil
}

// update applies fn to the summary of studentID, creating it if needed.
func (v *StudentSummaryView) update(studentID string, at time.Time, fn func(*StudentSummary)) {
	if studentID == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	s, ok := v.summaries[studentID]
	if !ok {
		s = &StudentSummary{StudentID: studentID}
		v.summaries[studentID] = s
	}

	fn(s)

	if at.After(s.LastActivity) {
		s.LastActivity = at
	}

	v.version++
	v.lastUpdated = time.Now().UTC()
}

// Get returns a copy of the summary for a student, and whether it exists.
func (v *StudentSummaryView) Get(studentID string) (StudentSummary, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s, ok := v.summaries[studentID]
	if !ok {
		return StudentSummary{}, false
	}
	return *s, true
}

// ActiveSince returns summaries with activity after the given time.
func (v *StudentSummaryView) ActiveSince(t time.Time) []StudentSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()

	result := make([]StudentSummary, 0)
	for _, s := range v.summaries {
		if s.LastActivity.After(t) {
			result = append(result, *s)
		}
	}
	return result
}

// Size returns the number of tracked students.
func (v *StudentSummaryView) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.summaries)
}

// Version returns the number of applied updates.
func (v *StudentSummaryView) Version() int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// LastUpdated returns the time of the last applied event.
func (v *StudentSummaryView) LastUpdated() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastUpdated
}
