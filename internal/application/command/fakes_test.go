package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/certificate"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/payment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY TEST DOUBLES
// The fakes honor the same error contracts as the postgres implementations
// (not-found sentinels, unique-index conflicts, optimistic locking).
// ══════════════════════════════════════════════════════════════════════════════

func seqIDGen(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// capturePublisher records every published event.
type capturePublisher struct {
	events []shared.Event
}

func (p *capturePublisher) Publish(e shared.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) eventTypes() []shared.EventType {
	types := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// ─── students ────────────────────────────────────────────────────────────────

type memStudentRepo struct {
	students map[string]*student.Student
}

func newMemStudentRepo() *memStudentRepo {
	return &memStudentRepo{students: make(map[string]*student.Student)}
}

func (r *memStudentRepo) Create(_ context.Context, s *student.Student) error {
	for _, existing := range r.students {
		if existing.Email.String() == s.Email.String() {
			return shared.ErrStudentAlreadyExists
		}
	}
	cp := *s
	r.students[s.ID] = &cp
	return nil
}

func (r *memStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memStudentRepo) GetByEmail(_ context.Context, email shared.Email) (*student.Student, error) {
	for _, s := range r.students {
		if s.Email.String() == email.String() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (r *memStudentRepo) Update(_ context.Context, s *student.Student) error {
	if _, ok := r.students[s.ID]; !ok {
		return shared.ErrStudentNotFound
	}
	cp := *s
	r.students[s.ID] = &cp
	return nil
}

// ─── enrollments ─────────────────────────────────────────────────────────────

type memEnrollmentRepo struct {
	enrollments map[string]*enrollment.Enrollment
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{enrollments: make(map[string]*enrollment.Enrollment)}
}

func (r *memEnrollmentRepo) put(e *enrollment.Enrollment) {
	cp := *e
	r.enrollments[e.ID] = &cp
}

func (r *memEnrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	for _, existing := range r.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID &&
			existing.Status != enrollment.StatusCancelled {
			return shared.ErrAlreadyEnrolled
		}
	}
	r.put(e)
	return nil
}

func (r *memEnrollmentRepo) GetByID(_ context.Context, id string) (*enrollment.Enrollment, error) {
	e, ok := r.enrollments[id]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status != enrollment.StatusCancelled {
			cp := *e
			return &cp, nil
		}
	}
	return nil, shared.ErrEnrollmentNotFound
}

func (r *memEnrollmentRepo) ListByStudent(_ context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.StudentID == studentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memEnrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	stored, ok := r.enrollments[e.ID]
	if !ok {
		return shared.ErrEnrollmentNotFound
	}
	if stored.Version != e.Version {
		return shared.ErrConcurrentModification
	}
	e.Version++
	r.put(e)
	return nil
}

func (r *memEnrollmentRepo) ListPendingPaymentOlderThan(_ context.Context, cutoff time.Time) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.Status == enrollment.StatusPendingPayment && e.EnrollmentDate.Before(cutoff) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memEnrollmentRepo) ListActiveCourseIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.enrollments {
		if e.Status == enrollment.StatusActive && !seen[e.CourseID] {
			seen[e.CourseID] = true
			out = append(out, e.CourseID)
		}
	}
	return out, nil
}

// ─── payments ────────────────────────────────────────────────────────────────

type memPaymentRepo struct {
	payments map[string]*payment.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]*payment.Payment)}
}

func (r *memPaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) GetByID(_ context.Context, id string) (*payment.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPaymentRepo) ListByEnrollment(_ context.Context, enrollmentID string) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.EnrollmentID == enrollmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return shared.ErrPaymentNotFound
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) ListPendingOlderThan(_ context.Context, cutoff time.Time) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range r.payments {
		if p.Status == payment.StatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─── certificates ────────────────────────────────────────────────────────────

type memCertificateRepo struct {
	certificates map[string]*certificate.Certificate // keyed by studentID+"/"+courseID
}

func newMemCertificateRepo() *memCertificateRepo {
	return &memCertificateRepo{certificates: make(map[string]*certificate.Certificate)}
}

func (r *memCertificateRepo) Create(_ context.Context, c *certificate.Certificate) error {
	key := c.StudentID + "/" + c.CourseID
	if _, ok := r.certificates[key]; ok {
		return shared.ErrCertificateExists
	}
	cp := *c
	r.certificates[key] = &cp
	return nil
}

func (r *memCertificateRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID string) (*certificate.Certificate, error) {
	c, ok := r.certificates[studentID+"/"+courseID]
	if !ok {
		return nil, shared.ErrCertificateNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCertificateRepo) ListByStudent(_ context.Context, studentID string) ([]*certificate.Certificate, error) {
	var out []*certificate.Certificate
	for _, c := range r.certificates {
		if c.StudentID == studentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ─── progress ────────────────────────────────────────────────────────────────

type memProgressRepo struct {
	histories map[string]*progress.LearningHistory
	progress  map[string]*progress.CourseProgress // keyed by studentID+"/"+courseID
	lessons   map[string]map[string]bool          // courseProgressID -> lessonID set
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{
		histories: make(map[string]*progress.LearningHistory),
		progress:  make(map[string]*progress.CourseProgress),
		lessons:   make(map[string]map[string]bool),
	}
}

func (r *memProgressRepo) EnsureHistory(_ context.Context, studentID string) (*progress.LearningHistory, error) {
	if h, ok := r.histories[studentID]; ok {
		return h, nil
	}
	h, err := progress.NewLearningHistory(studentID)
	if err != nil {
		return nil, err
	}
	r.histories[studentID] = h
	return h, nil
}

func (r *memProgressRepo) EnsureCourseProgress(_ context.Context, studentID, courseID string) (*progress.CourseProgress, error) {
	key := studentID + "/" + courseID
	if cp, ok := r.progress[key]; ok {
		return cp, nil
	}
	cp, err := progress.NewCourseProgress(fmt.Sprintf("cp-%d", len(r.progress)+1), studentID, courseID)
	if err != nil {
		return nil, err
	}
	r.progress[key] = cp
	r.lessons[cp.ID] = make(map[string]bool)
	return cp, nil
}

func (r *memProgressRepo) GetCourseProgress(ctx context.Context, studentID, courseID string) (*progress.CourseProgress, error) {
	if _, ok := r.progress[studentID+"/"+courseID]; !ok {
		return nil, shared.ErrProgressNotFound
	}
	return r.EnsureCourseProgress(ctx, studentID, courseID)
}

func (r *memProgressRepo) AppendCompletedLesson(_ context.Context, lesson progress.CompletedLesson) (bool, error) {
	set := r.lessons[lesson.CourseProgressID]
	if set[lesson.LessonID] {
		return false, nil
	}
	set[lesson.LessonID] = true
	return true, nil
}

func (r *memProgressRepo) CountCompleted(_ context.Context, studentID, courseID string) (int, error) {
	cp, ok := r.progress[studentID+"/"+courseID]
	if !ok {
		return 0, nil
	}
	return len(r.lessons[cp.ID]), nil
}

func (r *memProgressRepo) ListCompletedLessonIDs(_ context.Context, studentID, courseID string) ([]string, error) {
	cp, ok := r.progress[studentID+"/"+courseID]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(r.lessons[cp.ID]))
	for id := range r.lessons[cp.ID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memProgressRepo) MarkCourseCompleted(ctx context.Context, studentID, courseID string) error {
	cp, err := r.EnsureCourseProgress(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	cp.MarkCompleted()
	return nil
}

func (r *memProgressRepo) ListCourseSummaries(_ context.Context, studentID string) ([]progress.CourseSummary, error) {
	var out []progress.CourseSummary
	for key, cp := range r.progress {
		if !strings.HasPrefix(key, studentID+"/") {
			continue
		}
		out = append(out, progress.CourseSummary{
			CourseID:       cp.CourseID,
			CompletedCount: len(r.lessons[cp.ID]),
			IsCompleted:    cp.IsCompleted,
			LastUpdated:    cp.LastUpdated,
		})
	}
	return out, nil
}

// ─── catalog ─────────────────────────────────────────────────────────────────

type stubCatalog struct {
	courses map[string]*course.Course
	lessons map[string]*course.Lesson
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		courses: make(map[string]*course.Course),
		lessons: make(map[string]*course.Lesson),
	}
}

func (c *stubCatalog) addCourse(id, title string, lessonCount int, priceCents int64) {
	c.courses[id] = &course.Course{
		ID:          id,
		Title:       title,
		LessonCount: lessonCount,
		PriceCents:  priceCents,
		Currency:    "EUR",
	}
}

func (c *stubCatalog) addLesson(id, courseID string) {
	c.lessons[id] = &course.Lesson{ID: id, CourseID: courseID, Title: "lesson " + id}
}

func (c *stubCatalog) GetCourse(_ context.Context, courseID string) (*course.Course, error) {
	crs, ok := c.courses[courseID]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return crs, nil
}

func (c *stubCatalog) GetLessonCount(_ context.Context, courseID string) (int, error) {
	crs, ok := c.courses[courseID]
	if !ok {
		return 0, shared.ErrCourseNotFound
	}
	return crs.LessonCount, nil
}

func (c *stubCatalog) GetLesson(_ context.Context, lessonID string) (*course.Lesson, error) {
	lesson, ok := c.lessons[lessonID]
	if !ok {
		return nil, shared.ErrLessonNotFound
	}
	return lesson, nil
}

// ─── payment gateway ─────────────────────────────────────────────────────────

type stubGateway struct {
	chargeResult *payment.ChargeResult
	chargeErr    error
	chargeCalls  int

	refundResult *payment.RefundResult
	refundErr    error
	refundCalls  int
}

func (g *stubGateway) Charge(_ context.Context, _ payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.chargeCalls++
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return g.chargeResult, nil
}

func (g *stubGateway) Refund(_ context.Context, _ string, _ int64, _ string) (*payment.RefundResult, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return g.refundResult, nil
}
