package student

import (
	"context"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Интерфейс определяет контракт для работы с хранилищем данных.
// Реализация находится в infrastructure/persistence/postgres.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища для студентов.
type Repository interface {
	// Create создаёт нового студента.
	// Возвращает shared.ErrStudentAlreadyExists, если email уже занят.
	Create(ctx context.Context, student *Student) error

	// GetByID возвращает студента по внутреннему ID.
	// Возвращает shared.ErrStudentNotFound, если студент не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// GetByEmail возвращает студента по email.
	// Возвращает shared.ErrStudentNotFound, если студент не найден.
	GetByEmail(ctx context.Context, email shared.Email) (*Student, error)

	// Update обновляет данные студента.
	// Возвращает shared.ErrStudentNotFound, если студент не найден.
	Update(ctx context.Context, student *Student) error
}
