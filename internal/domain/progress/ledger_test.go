package progress

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepository is an in-memory Repository honoring the same idempotency
// contract as the postgres implementation.
type memRepository struct {
	histories map[string]*LearningHistory
	progress  map[string]*CourseProgress // keyed by studentID+"/"+courseID
	lessons   map[string]map[string]bool // courseProgressID -> lessonID set
}

func newMemRepository() *memRepository {
	return &memRepository{
		histories: make(map[string]*LearningHistory),
		progress:  make(map[string]*CourseProgress),
		lessons:   make(map[string]map[string]bool),
	}
}

func (r *memRepository) EnsureHistory(_ context.Context, studentID string) (*LearningHistory, error) {
	if h, ok := r.histories[studentID]; ok {
		return h, nil
	}
	h, err := NewLearningHistory(studentID)
	if err != nil {
		return nil, err
	}
	r.histories[studentID] = h
	return h, nil
}

func (r *memRepository) EnsureCourseProgress(_ context.Context, studentID, courseID string) (*CourseProgress, error) {
	key := studentID + "/" + courseID
	if cp, ok := r.progress[key]; ok {
		return cp, nil
	}
	cp, err := NewCourseProgress(fmt.Sprintf("cp-%d", len(r.progress)+1), studentID, courseID)
	if err != nil {
		return nil, err
	}
	r.progress[key] = cp
	r.lessons[cp.ID] = make(map[string]bool)
	return cp, nil
}

func (r *memRepository) GetCourseProgress(ctx context.Context, studentID, courseID string) (*CourseProgress, error) {
	return r.EnsureCourseProgress(ctx, studentID, courseID)
}

func (r *memRepository) AppendCompletedLesson(_ context.Context, lesson CompletedLesson) (bool, error) {
	set := r.lessons[lesson.CourseProgressID]
	if set[lesson.LessonID] {
		return false, nil
	}
	set[lesson.LessonID] = true
	return true, nil
}

func (r *memRepository) CountCompleted(_ context.Context, studentID, courseID string) (int, error) {
	cp, ok := r.progress[studentID+"/"+courseID]
	if !ok {
		return 0, nil
	}
	return len(r.lessons[cp.ID]), nil
}

func (r *memRepository) ListCompletedLessonIDs(_ context.Context, studentID, courseID string) ([]string, error) {
	cp, ok := r.progress[studentID+"/"+courseID]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(r.lessons[cp.ID]))
	for id := range r.lessons[cp.ID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memRepository) MarkCourseCompleted(ctx context.Context, studentID, courseID string) error {
	cp, err := r.EnsureCourseProgress(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	cp.MarkCompleted()
	return nil
}

func (r *memRepository) ListCourseSummaries(_ context.Context, studentID string) ([]CourseSummary, error) {
	var out []CourseSummary
	for key, cp := range r.progress {
		if !strings.HasPrefix(key, studentID+"/") {
			continue
		}
		out = append(out, CourseSummary{
			CourseID:       cp.CourseID,
			CompletedCount: len(r.lessons[cp.ID]),
			IsCompleted:    cp.IsCompleted,
			LastUpdated:    cp.LastUpdated,
		})
	}
	return out, nil
}

func testIDGen() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestLedger_RecordLessonCompletion(t *testing.T) {
	ledger := NewLedger(newMemRepository(), testIDGen(), false)
	ctx := context.Background()

	res, err := ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", "lesson-1")
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, 1, res.CompletedCount)

	res, err = ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", "lesson-2")
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, 2, res.CompletedCount)
}

func TestLedger_RecordLessonCompletion_Idempotent(t *testing.T) {
	ledger := NewLedger(newMemRepository(), testIDGen(), false)
	ctx := context.Background()

	_, err := ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", "lesson-1")
	require.NoError(t, err)

	// Re-submitting the same lesson is a successful no-op.
	res, err := ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", "lesson-1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, 1, res.CompletedCount)
}

func TestLedger_RecordLessonCompletion_Validation(t *testing.T) {
	ledger := NewLedger(newMemRepository(), testIDGen(), false)
	ctx := context.Background()

	_, err := ledger.RecordLessonCompletion(ctx, "", "course-1", "lesson-1")
	assert.ErrorIs(t, err, ErrEmptyStudentID)

	_, err = ledger.RecordLessonCompletion(ctx, "stud-1", "", "lesson-1")
	assert.ErrorIs(t, err, ErrEmptyCourseID)

	_, err = ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", "")
	assert.ErrorIs(t, err, ErrEmptyLessonID)
}

func TestLedger_HasCompletedAll(t *testing.T) {
	ledger := NewLedger(newMemRepository(), testIDGen(), false)
	ctx := context.Background()

	for _, lesson := range []string{"l1", "l2", "l3"} {
		_, err := ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", lesson)
		require.NoError(t, err)
	}

	done, err := ledger.HasCompletedAll(ctx, "stud-1", "course-1", 3)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = ledger.HasCompletedAll(ctx, "stud-1", "course-1", 4)
	require.NoError(t, err)
	assert.False(t, done)

	// The catalog shrank below what the student already completed. With the
	// lenient policy the course still counts as done.
	done, err = ledger.HasCompletedAll(ctx, "stud-1", "course-1", 2)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestLedger_HasCompletedAll_ExactCount(t *testing.T) {
	repo := newMemRepository()
	ledger := NewLedger(repo, testIDGen(), true)
	ctx := context.Background()

	for _, lesson := range []string{"l1", "l2", "l3"} {
		_, err := ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", lesson)
		require.NoError(t, err)
	}

	done, err := ledger.HasCompletedAll(ctx, "stud-1", "course-1", 3)
	require.NoError(t, err)
	assert.True(t, done)

	// Strict policy: more completions than catalog lessons is not "all done".
	done, err = ledger.HasCompletedAll(ctx, "stud-1", "course-1", 2)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestLedger_HasCompletedAll_EmptyCourse(t *testing.T) {
	ledger := NewLedger(newMemRepository(), testIDGen(), false)

	// A course with no lessons can never be completed.
	done, err := ledger.HasCompletedAll(context.Background(), "stud-1", "course-1", 0)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestLedger_MarkCourseCompleted_Idempotent(t *testing.T) {
	repo := newMemRepository()
	ledger := NewLedger(repo, testIDGen(), false)
	ctx := context.Background()

	_, err := ledger.RecordLessonCompletion(ctx, "stud-1", "course-1", "l1")
	require.NoError(t, err)

	require.NoError(t, ledger.MarkCourseCompleted(ctx, "stud-1", "course-1"))
	require.NoError(t, ledger.MarkCourseCompleted(ctx, "stud-1", "course-1"))

	summaries, err := ledger.ListCourseSummaries(ctx, "stud-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].IsCompleted)
}

func TestCourseProgress_RecordLesson(t *testing.T) {
	cp, err := NewCourseProgress("cp-1", "stud-1", "course-1")
	require.NoError(t, err)

	lesson, err := NewCompletedLesson("cl-1", "lesson-1", cp.ID, time.Now())
	require.NoError(t, err)

	assert.True(t, cp.RecordLesson(lesson))
	assert.False(t, cp.RecordLesson(lesson))
	assert.Equal(t, 1, cp.CompletedCount())
	assert.True(t, cp.HasLesson("lesson-1"))
}
