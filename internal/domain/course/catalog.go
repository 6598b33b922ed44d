// Package course определяет контракт внешнего каталога курсов.
//
// Каталог (CRUD курсов и уроков) - внешний коллаборатор: ядру нужны только
// операции чтения, перечисленные в интерфейсе Catalog. Реализация -
// HTTP-клиент в infrastructure/external/catalog.
package course

import (
	"context"
)

// Course - курс из внешнего каталога.
type Course struct {
	// ID - идентификатор курса (UUID).
	ID string

	// Title - название курса, попадает на сертификат.
	Title string

	// LessonCount - актуальное число уроков курса.
	LessonCount int

	// PriceCents - цена в минимальных единицах валюты.
	PriceCents int64

	// Currency - код валюты ISO 4217.
	Currency string
}

// Lesson - урок из внешнего каталога.
type Lesson struct {
	// ID - идентификатор урока (UUID).
	ID string

	// CourseID - курс, которому принадлежит урок.
	CourseID string

	// Title - название урока.
	Title string
}

// Catalog определяет операции чтения каталога, необходимые ядру.
//
// Все методы возвращают shared.ErrCourseNotFound / shared.ErrLessonNotFound
// для отсутствующих сущностей и shared.ErrCatalogUnavailable при недоступности
// каталога.
type Catalog interface {
	// GetCourse возвращает курс по идентификатору.
	GetCourse(ctx context.Context, courseID string) (*Course, error)

	// GetLessonCount возвращает актуальное число уроков курса.
	GetLessonCount(ctx context.Context, courseID string) (int, error)

	// GetLesson возвращает урок по идентификатору; по полю CourseID
	// вызывающая сторона проверяет принадлежность урока курсу.
	GetLesson(ctx context.Context, lessonID string) (*Lesson, error)
}
