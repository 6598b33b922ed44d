package certificate

import (
	"context"
)

// Repository определяет операции хранилища для сертификатов.
type Repository interface {
	// Create сохраняет новый сертификат.
	// При нарушении уникального индекса (student_id, course_id) возвращает
	// shared.ErrCertificateExists: вызывающая сторона трактует это как
	// "уже выдан" и возвращает существующий сертификат.
	Create(ctx context.Context, c *Certificate) error

	// GetByStudentAndCourse возвращает сертификат по паре (студент, курс).
	// Возвращает shared.ErrCertificateNotFound, если сертификата нет.
	GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*Certificate, error)

	// ListByStudent возвращает все сертификаты студента, от новых к старым.
	ListByStudent(ctx context.Context, studentID string) ([]*Certificate, error)
}
