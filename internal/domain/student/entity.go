// Package student содержит доменную модель студента языковой школы.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"errors"
	"strings"
	"time"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - сущность студента. Владеет своими записями на курсы (Enrollment)
// и сертификатами (Certificate): их жизненный цикл привязан к студенту.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Email - адрес электронной почты (уникален, нормализован в lowercase).
	Email shared.Email

	// DisplayName - отображаемое имя студента.
	DisplayName string

	// PasswordHash - bcrypt-хеш пароля.
	PasswordHash string

	// Active - флаг активности. Неактивный студент не может записываться
	// на новые курсы.
	Active bool

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyID - пустой идентификатор студента.
	ErrEmptyID = errors.New("student: id cannot be empty")

	// ErrEmptyDisplayName - пустое отображаемое имя.
	ErrEmptyDisplayName = errors.New("student: display name cannot be empty")

	// ErrEmptyPasswordHash - пустой хеш пароля.
	ErrEmptyPasswordHash = errors.New("student: password hash cannot be empty")

	// ErrAlreadyActive - студент уже активен.
	ErrAlreadyActive = errors.New("student: already active")

	// ErrAlreadyInactive - студент уже неактивен.
	ErrAlreadyInactive = errors.New("student: already inactive")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTRUCTOR
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания студента.
type NewStudentParams struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
}

// NewStudent создаёт нового активного студента с валидацией всех полей.
// ID генерируется вызывающей стороной (фабрика/uuid) - рефлексия для
// присвоения идентификаторов не используется.
func NewStudent(params NewStudentParams) (*Student, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, ErrEmptyID
	}

	email, err := shared.NewEmail(params.Email)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.DisplayName)
	if name == "" {
		return nil, ErrEmptyDisplayName
	}

	if params.PasswordHash == "" {
		return nil, ErrEmptyPasswordHash
	}

	now := time.Now().UTC()
	return &Student{
		ID:           params.ID,
		Email:        email,
		DisplayName:  name,
		PasswordHash: params.PasswordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN BEHAVIOR
// ══════════════════════════════════════════════════════════════════════════════

// CanEnroll возвращает true, если студент может записываться на курсы.
func (s *Student) CanEnroll() bool {
	return s.Active
}

// Deactivate переводит студента в неактивное состояние.
// Существующие записи на курсы не затрагиваются.
func (s *Student) Deactivate() error {
	if !s.Active {
		return ErrAlreadyInactive
	}
	s.Active = false
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Activate возвращает студента в активное состояние.
func (s *Student) Activate() error {
	if s.Active {
		return ErrAlreadyActive
	}
	s.Active = true
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Rename обновляет отображаемое имя.
func (s *Student) Rename(displayName string) error {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return ErrEmptyDisplayName
	}
	s.DisplayName = name
	s.UpdatedAt = time.Now().UTC()
	return nil
}
