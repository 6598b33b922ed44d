// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/enrollment"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/progress"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT PROGRESS QUERY
// Сводка обучения студента: записи на курсы и прогресс по каждой.
// Read-сторона собирает данные из нескольких репозиториев без изменения
// состояния; число уроков курса берётся живым из внешнего каталога.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentProgressQuery содержит параметры запроса прогресса.
type GetStudentProgressQuery struct {
	// StudentID - внутренний ID студента.
	StudentID string

	// CourseID - опциональный фильтр по одному курсу.
	CourseID string
}

// Validate проверяет корректность параметров.
func (q *GetStudentProgressQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// CourseProgressView - прогресс по одному курсу для read-стороны.
type CourseProgressView struct {
	// CourseID - идентификатор курса.
	CourseID string

	// EnrollmentID - идентификатор записи на курс.
	EnrollmentID string

	// EnrollmentStatus - состояние записи.
	EnrollmentStatus enrollment.Status

	// CompletedLessons - число пройденных уроков.
	CompletedLessons int

	// TotalLessons - актуальное число уроков курса из каталога
	// (0, если каталог недоступен).
	TotalLessons int

	// IsCompleted - курс помечен завершённым в журнале прогресса.
	IsCompleted bool

	// LastActivity - время последней записи прогресса.
	LastActivity time.Time
}

// StudentProgressView - сводка прогресса студента.
type StudentProgressView struct {
	// StudentID - идентификатор студента.
	StudentID string

	// DisplayName - отображаемое имя.
	DisplayName string

	// Courses - прогресс по курсам.
	Courses []CourseProgressView
}

// GetStudentProgressHandler обрабатывает запрос прогресса.
type GetStudentProgressHandler struct {
	studentRepo    student.Repository
	enrollmentRepo enrollment.Repository
	ledger         *progress.Ledger
	catalog        course.Catalog
}

// NewGetStudentProgressHandler создаёт обработчик запроса прогресса.
func NewGetStudentProgressHandler(
	studentRepo student.Repository,
	enrollmentRepo enrollment.Repository,
	ledger *progress.Ledger,
	catalog course.Catalog,
) *GetStudentProgressHandler {
	return &GetStudentProgressHandler{
		studentRepo:    studentRepo,
		enrollmentRepo: enrollmentRepo,
		ledger:         ledger,
		catalog:        catalog,
	}
}

// Handle выполняет запрос прогресса студента.
func (h *GetStudentProgressHandler) Handle(ctx context.Context, q GetStudentProgressQuery) (*StudentProgressView, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("progress", "GetStudentProgress", shared.ErrInvalidInput, "validation failed", err)
	}

	stud, err := h.studentRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	enrollments, err := h.enrollmentRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	summaries, err := h.ledger.ListCourseSummaries(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[string]progress.CourseSummary, len(summaries))
	for _, s := range summaries {
		byCourse[s.CourseID] = s
	}

	view := &StudentProgressView{
		StudentID:   stud.ID,
		DisplayName: stud.DisplayName,
		Courses:     make([]CourseProgressView, 0, len(enrollments)),
	}

	for _, enr := range enrollments {
		if q.CourseID != "" && enr.CourseID != q.CourseID {
			continue
		}

		cv := CourseProgressView{
			CourseID:         enr.CourseID,
			EnrollmentID:     enr.ID,
			EnrollmentStatus: enr.Status,
		}

		if s, ok := byCourse[enr.CourseID]; ok {
			cv.CompletedLessons = s.CompletedCount
			cv.IsCompleted = s.IsCompleted
			cv.LastActivity = s.LastUpdated
		}

		// Недоступность каталога не роняет всю сводку: TotalLessons
		// остаётся нулевым, остальные данные отдаются.
		if total, err := h.catalog.GetLessonCount(ctx, enr.CourseID); err == nil {
			cv.TotalLessons = total
		}

		view.Courses = append(view.Courses, cv)
	}

	return view, nil
}
