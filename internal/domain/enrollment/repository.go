package enrollment

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Один интерфейс на агрегат, реализуется напрямую postgres-слоем -
// без промежуточных адаптеров.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища для записей на курсы.
type Repository interface {
	// Create создаёт новую запись.
	// Возвращает shared.ErrAlreadyEnrolled, если у студента уже есть
	// неотменённая запись на этот курс (частичный уникальный индекс -
	// последний рубеж против гонки двух одновременных записей).
	Create(ctx context.Context, e *Enrollment) error

	// GetByID возвращает запись по ID.
	// Возвращает shared.ErrEnrollmentNotFound, если запись не найдена.
	GetByID(ctx context.Context, id string) (*Enrollment, error)

	// GetByStudentAndCourse возвращает неотменённую запись студента на курс.
	// Возвращает shared.ErrEnrollmentNotFound, если такой записи нет.
	GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*Enrollment, error)

	// ListByStudent возвращает все записи студента (включая отменённые).
	ListByStudent(ctx context.Context, studentID string) ([]*Enrollment, error)

	// Update сохраняет запись с проверкой версии (оптимистичная блокировка).
	// Если версия в хранилище не совпадает с e.Version, возвращает
	// shared.ErrConcurrentModification; при успехе инкрементирует e.Version.
	Update(ctx context.Context, e *Enrollment) error

	// ListPendingPaymentOlderThan возвращает записи в статусе pending_payment,
	// созданные до cutoff. Используется фоновой очисткой неоплаченных записей.
	ListPendingPaymentOlderThan(ctx context.Context, cutoff time.Time) ([]*Enrollment, error)

	// ListActiveCourseIDs возвращает уникальные идентификаторы курсов
	// с хотя бы одной активной записью. Используется прогревом кеша каталога.
	ListActiveCourseIDs(ctx context.Context) ([]string, error)
}
