package catalog

import (
	"fmt"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// Wire representations of the catalog API. Mapping to domain types validates
// the payload so a malformed catalog response never reaches the core.
// ══════════════════════════════════════════════════════════════════════════════

// CourseDTO is the catalog wire representation of a course.
type CourseDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LessonCount int    `json:"lesson_count"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
}

// LessonDTO is the catalog wire representation of a lesson.
type LessonDTO struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
}

// LessonCountDTO is the response of the lesson count endpoint.
type LessonCountDTO struct {
	CourseID    string `json:"course_id"`
	LessonCount int    `json:"lesson_count"`
}

// APIErrorDTO is the catalog error response body.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("catalog api error %s: %s", e.Code, e.Message)
}

// toDomainCourse validates the DTO and maps it to the domain type.
func toDomainCourse(dto CourseDTO) (*course.Course, error) {
	if dto.ID == "" || dto.Title == "" {
		return nil, shared.ErrCatalogInvalidPayload
	}
	if dto.LessonCount < 0 || dto.PriceCents < 0 {
		return nil, shared.ErrCatalogInvalidPayload
	}
	if len(dto.Currency) != 3 {
		return nil, shared.ErrCatalogInvalidPayload
	}

	return &course.Course{
		ID:          dto.ID,
		Title:       dto.Title,
		LessonCount: dto.LessonCount,
		PriceCents:  dto.PriceCents,
		Currency:    dto.Currency,
	}, nil
}

// toDomainLesson validates the DTO and maps it to the domain type.
func toDomainLesson(dto LessonDTO) (*course.Lesson, error) {
	if dto.ID == "" || dto.CourseID == "" {
		return nil, shared.ErrCatalogInvalidPayload
	}

	return &course.Lesson{
		ID:       dto.ID,
		CourseID: dto.CourseID,
		Title:    dto.Title,
	}, nil
}
