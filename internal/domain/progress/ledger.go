package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS LEDGER (доменный сервис)
//
// Журнал прогресса: какие уроки каких курсов пройдены студентом.
// Все операции записи идемпотентны - повторный вызов с теми же аргументами
// безопасен и не создаёт дубликатов. Именно идемпотентность, а не блокировки,
// является основной защитой от повторных вызовов и ретраев.
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator выдаёт новые уникальные идентификаторы (UUID).
// Генерация внедряется снаружи, чтобы доменный слой оставался без
// внешних зависимостей.
type IDGenerator func() string

// Ledger реализует операции журнала прогресса поверх репозитория.
type Ledger struct {
	repo  Repository
	newID IDGenerator

	// exactCount управляет политикой HasCompletedAll: при true требуется
	// строгое равенство числа пройденных уроков общему числу уроков курса,
	// при false достаточно "не меньше" (на случай уроков, удалённых из
	// курса после прохождения).
	exactCount bool
}

// NewLedger создаёт журнал прогресса.
func NewLedger(repo Repository, newID IDGenerator, exactCount bool) *Ledger {
	return &Ledger{
		repo:       repo,
		newID:      newID,
		exactCount: exactCount,
	}
}

// RecordResult - результат записи прохождения урока.
type RecordResult struct {
	// AlreadyCompleted - true, если урок уже был записан ранее
	// (успешный идемпотентный no-op, не ошибка).
	AlreadyCompleted bool

	// CompletedCount - число пройденных уроков курса после операции.
	CompletedCount int
}

// RecordLessonCompletion записывает факт прохождения урока.
//
// История обучения и прогресс по курсу создаются лениво. Если урок уже
// записан - в том числе конкурирующим вызовом, проигравшим гонку на
// уникальном индексе - операция возвращает AlreadyCompleted без ошибки
// и без новой строки.
func (l *Ledger) RecordLessonCompletion(ctx context.Context, studentID, courseID, lessonID string) (*RecordResult, error) {
	if studentID == "" {
		return nil, ErrEmptyStudentID
	}
	if courseID == "" {
		return nil, ErrEmptyCourseID
	}
	if lessonID == "" {
		return nil, ErrEmptyLessonID
	}

	if _, err := l.repo.EnsureHistory(ctx, studentID); err != nil {
		return nil, err
	}

	cp, err := l.repo.EnsureCourseProgress(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	lesson, err := NewCompletedLesson(l.newID(), lessonID, cp.ID, time.Now())
	if err != nil {
		return nil, err
	}

	inserted, err := l.repo.AppendCompletedLesson(ctx, lesson)
	if err != nil {
		return nil, err
	}

	count, err := l.repo.CountCompleted(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	return &RecordResult{
		AlreadyCompleted: !inserted,
		CompletedCount:   count,
	}, nil
}

// CountCompleted возвращает число пройденных уроков курса.
func (l *Ledger) CountCompleted(ctx context.Context, studentID, courseID string) (int, error) {
	return l.repo.CountCompleted(ctx, studentID, courseID)
}

// ListCompletedLessonIDs возвращает идентификаторы пройденных уроков.
func (l *Ledger) ListCompletedLessonIDs(ctx context.Context, studentID, courseID string) ([]string, error) {
	return l.repo.ListCompletedLessonIDs(ctx, studentID, courseID)
}

// HasCompletedAll проверяет, пройдены ли все уроки курса.
// Число уроков курса передаётся вызывающей стороной, которая берёт его
// из внешнего каталога (живое значение, не снапшот).
func (l *Ledger) HasCompletedAll(ctx context.Context, studentID, courseID string, totalLessonCount int) (bool, error) {
	if totalLessonCount <= 0 {
		return false, nil
	}
	count, err := l.repo.CountCompleted(ctx, studentID, courseID)
	if err != nil {
		return false, err
	}
	if l.exactCount {
		return count == totalLessonCount, nil
	}
	return count >= totalLessonCount, nil
}

// MarkCourseCompleted помечает курс завершённым. Идемпотентно.
func (l *Ledger) MarkCourseCompleted(ctx context.Context, studentID, courseID string) error {
	return l.repo.MarkCourseCompleted(ctx, studentID, courseID)
}

// ListCourseSummaries возвращает свод прогресса студента по всем курсам.
func (l *Ledger) ListCourseSummaries(ctx context.Context, studentID string) ([]CourseSummary, error) {
	return l.repo.ListCourseSummaries(ctx, studentID)
}
