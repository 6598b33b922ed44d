package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// CourseSummary - свод прогресса по одному курсу для read-стороны.
type CourseSummary struct {
	CourseID       string
	CompletedCount int
	IsCompleted    bool
	LastUpdated    time.Time
}

// Repository определяет операции хранилища для прогресса обучения.
type Repository interface {
	// EnsureHistory возвращает историю обучения студента, создавая её
	// при первом обращении (ленивое создание).
	EnsureHistory(ctx context.Context, studentID string) (*LearningHistory, error)

	// EnsureCourseProgress возвращает прогресс студента по курсу, создавая
	// запись при первом обращении. Уроки не загружаются.
	EnsureCourseProgress(ctx context.Context, studentID, courseID string) (*CourseProgress, error)

	// GetCourseProgress возвращает прогресс по курсу с загруженными уроками.
	// Возвращает shared.ErrProgressNotFound, если прогресса нет.
	GetCourseProgress(ctx context.Context, studentID, courseID string) (*CourseProgress, error)

	// AppendCompletedLesson дописывает факт прохождения урока.
	// При нарушении уникального индекса (course_progress_id, lesson_id)
	// возвращает inserted=false без ошибки: конкурирующая запись того же
	// урока - это "уже сделано", а не сбой.
	AppendCompletedLesson(ctx context.Context, lesson CompletedLesson) (inserted bool, err error)

	// CountCompleted возвращает число пройденных уроков курса.
	CountCompleted(ctx context.Context, studentID, courseID string) (int, error)

	// ListCompletedLessonIDs возвращает идентификаторы пройденных уроков.
	ListCompletedLessonIDs(ctx context.Context, studentID, courseID string) ([]string, error)

	// MarkCourseCompleted помечает курс завершённым. Идемпотентно:
	// повторный вызов не является ошибкой.
	MarkCourseCompleted(ctx context.Context, studentID, courseID string) error

	// ListCourseSummaries возвращает свод прогресса студента по всем курсам.
	ListCourseSummaries(ctx context.Context, studentID string) ([]CourseSummary, error)
}
