// Package progress содержит доменную модель учебного прогресса студента.
//
// LearningHistory (одна на студента) владеет набором CourseProgress
// (по одному на курс), каждый из которых владеет фактами CompletedLesson.
// CompletedLesson неизменяем после создания - журнал только дописывается.
package progress

import (
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyStudentID - пустой идентификатор студента.
	ErrEmptyStudentID = errors.New("progress: student id cannot be empty")

	// ErrEmptyCourseID - пустой идентификатор курса.
	ErrEmptyCourseID = errors.New("progress: course id cannot be empty")

	// ErrEmptyLessonID - пустой идентификатор урока.
	ErrEmptyLessonID = errors.New("progress: lesson id cannot be empty")

	// ErrEmptyID - пустой идентификатор записи.
	ErrEmptyID = errors.New("progress: id cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// LearningHistory - корень агрегата прогресса, одна на студента.
// Создаётся лениво при первом событии прогресса; её ID совпадает
// с идентификатором студента.
type LearningHistory struct {
	// ID - идентификатор истории (равен StudentID).
	ID string

	// StudentID - идентификатор студента.
	StudentID string

	// CreatedAt - время создания.
	CreatedAt time.Time
}

// NewLearningHistory создаёт историю обучения для студента.
func NewLearningHistory(studentID string) (*LearningHistory, error) {
	if studentID == "" {
		return nil, ErrEmptyStudentID
	}
	return &LearningHistory{
		ID:        studentID,
		StudentID: studentID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgress - прогресс студента по одному курсу.
// Инвариант: lessonId встречается не более одного раза; в памяти это
// проверяет RecordLesson, в хранилище страхует уникальный индекс
// (course_progress_id, lesson_id).
type CourseProgress struct {
	// ID - уникальный идентификатор (UUID).
	ID string

	// LearningHistoryID - идентификатор истории обучения.
	LearningHistoryID string

	// CourseID - идентификатор курса из внешнего каталога.
	CourseID string

	// IsCompleted - true после успешного завершения курса.
	IsCompleted bool

	// LastUpdated - время последнего изменения прогресса.
	LastUpdated time.Time

	// Lessons - факты прохождения уроков (может быть загружено частично;
	// источник истины - хранилище).
	Lessons []CompletedLesson
}

// NewCourseProgress создаёт прогресс по курсу.
func NewCourseProgress(id, learningHistoryID, courseID string) (*CourseProgress, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if learningHistoryID == "" {
		return nil, ErrEmptyStudentID
	}
	if courseID == "" {
		return nil, ErrEmptyCourseID
	}
	return &CourseProgress{
		ID:                id,
		LearningHistoryID: learningHistoryID,
		CourseID:          courseID,
		IsCompleted:       false,
		LastUpdated:       time.Now().UTC(),
	}, nil
}

// HasLesson проверяет, записан ли урок в загруженном наборе.
func (cp *CourseProgress) HasLesson(lessonID string) bool {
	for _, l := range cp.Lessons {
		if l.LessonID == lessonID {
			return true
		}
	}
	return false
}

// RecordLesson добавляет факт прохождения урока в память.
// Повторная запись того же урока - идемпотентный no-op, возвращает false.
func (cp *CourseProgress) RecordLesson(lesson CompletedLesson) bool {
	if cp.HasLesson(lesson.LessonID) {
		return false
	}
	cp.Lessons = append(cp.Lessons, lesson)
	cp.LastUpdated = time.Now().UTC()
	return true
}

// MarkCompleted помечает курс завершённым. Идемпотентно.
func (cp *CourseProgress) MarkCompleted() bool {
	if cp.IsCompleted {
		return false
	}
	cp.IsCompleted = true
	cp.LastUpdated = time.Now().UTC()
	return true
}

// CompletedCount возвращает число пройденных уроков в загруженном наборе.
func (cp *CourseProgress) CompletedCount() int {
	return len(cp.Lessons)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETED LESSON
// ══════════════════════════════════════════════════════════════════════════════

// CompletedLesson - неизменяемый факт прохождения урока.
type CompletedLesson struct {
	// ID - уникальный идентификатор записи (UUID).
	ID string

	// LessonID - идентификатор урока из внешнего каталога.
	LessonID string

	// CourseProgressID - идентификатор прогресса по курсу.
	CourseProgressID string

	// CompletedAt - время прохождения.
	CompletedAt time.Time
}

// NewCompletedLesson создаёт факт прохождения урока.
func NewCompletedLesson(id, lessonID, courseProgressID string, completedAt time.Time) (CompletedLesson, error) {
	if id == "" {
		return CompletedLesson{}, ErrEmptyID
	}
	if lessonID == "" {
		return CompletedLesson{}, ErrEmptyLessonID
	}
	if courseProgressID == "" {
		return CompletedLesson{}, ErrEmptyID
	}
	return CompletedLesson{
		ID:               id,
		LessonID:         lessonID,
		CourseProgressID: courseProgressID,
		CompletedAt:      completedAt.UTC(),
	}, nil
}
