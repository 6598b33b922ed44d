package redis

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG CACHE
//
// Read-through cache in front of the external course catalog. The catalog is
// on the critical path of enrollment and lesson completion; caching keeps
// those flows fast and rides out short catalog outages for recently seen
// entries. Cache failures degrade to direct catalog calls, never to request
// failures.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogCache decorates a course.Catalog with Redis caching.
type CatalogCache struct {
	inner  course.Catalog
	cache  *Cache
	logger *slog.Logger
}

// NewCatalogCache creates a caching decorator around the given catalog.
func NewCatalogCache(inner course.Catalog, cache *Cache, logger *slog.Logger) *CatalogCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogCache{
		inner:  inner,
		cache:  cache,
		logger: logger.With("component", "catalog_cache"),
	}
}

// GetCourse returns a course, from cache when possible.
func (c *CatalogCache) GetCourse(ctx context.Context, courseID string) (*course.Course, error) {
	key := CourseKey(courseID)

	var cached course.Course
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	crs, err := c.inner.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, crs, TTLCourseCache); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}

	return crs, nil
}

// GetLessonCount returns the lesson count of a course, from cache when possible.
func (c *CatalogCache) GetLessonCount(ctx context.Context, courseID string) (int, error) {
	key := LessonCountKey(courseID)

	if raw, err := c.cache.GetString(ctx, key); err == nil {
		if count, convErr := strconv.Atoi(raw); convErr == nil {
			return count, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	count, err := c.inner.GetLessonCount(ctx, courseID)
	if err != nil {
		return 0, err
	}

	if err := c.cache.SetString(ctx, key, strconv.Itoa(count), TTLLessonCountCache); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}

	return count, nil
}

// GetLesson returns a lesson, from cache when possible.
func (c *CatalogCache) GetLesson(ctx context.Context, lessonID string) (*course.Lesson, error) {
	key := LessonKey(lessonID)

	var cached course.Lesson
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	lesson, err := c.inner.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, lesson, TTLLessonCache); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}

	return lesson, nil
}

// Invalidate drops the cached entries of a course.
func (c *CatalogCache) Invalidate(ctx context.Context, courseID string) error {
	return c.cache.Delete(ctx, CourseKey(courseID), LessonCountKey(courseID))
}
