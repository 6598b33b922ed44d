package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (j *stubJob) Name() string              { return j.name }
func (j *stubJob) Description() string       { return "test job" }
func (j *stubJob) Run(context.Context) error { return nil }

func TestCronSchedule_NightlySweep(t *testing.T) {
	cs, err := NewCronSchedule("0 3 * * *")
	require.NoError(t, err)

	// Before 03:00 the run is the same day; after, it rolls to tomorrow.
	from := time.Date(2026, time.March, 10, 1, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC), cs.Next(from))

	from = time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 11, 3, 0, 0, 0, time.UTC), cs.Next(from))
}

func TestCronSchedule_EveryTenMinutes(t *testing.T) {
	cs, err := NewCronSchedule("*/10 * * * *")
	require.NoError(t, err)

	from := time.Date(2026, time.March, 10, 9, 3, 42, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 10, 9, 10, 0, 0, time.UTC), cs.Next(from))

	// Strictly after: from an exact match the next slot is ten minutes later.
	from = time.Date(2026, time.March, 10, 9, 10, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 10, 9, 20, 0, 0, time.UTC), cs.Next(from))
}

func TestCronSchedule_WeekdayAndMonthBoundaries(t *testing.T) {
	mondays, err := NewCronSchedule("0 0 * * 1")
	require.NoError(t, err)

	// 2026-03-10 is a Tuesday; the next Monday midnight is March 16.
	from := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), mondays.Next(from))

	firstOfMonth, err := NewCronSchedule("30 6 1 * *")
	require.NoError(t, err)

	from = time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.April, 1, 6, 30, 0, 0, time.UTC), firstOfMonth.Next(from))
}

func TestCronSchedule_ListsAndRanges(t *testing.T) {
	cs, err := NewCronSchedule("15,45 9-17 * * *")
	require.NoError(t, err)

	from := time.Date(2026, time.March, 10, 17, 46, 0, 0, time.UTC)
	// Past the last slot of the working day; next run is tomorrow 09:15.
	assert.Equal(t, time.Date(2026, time.March, 11, 9, 15, 0, 0, time.UTC), cs.Next(from))
}

func TestCronSchedule_RespectsLocation(t *testing.T) {
	cs, err := NewCronSchedule("0 3 * * *")
	require.NoError(t, err)

	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	from := time.Date(2026, time.March, 10, 1, 0, 0, 0, almaty)

	next := cs.Next(from)
	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, almaty, next.Location())
}

func TestCronSchedule_NeverMatchingReturnsZero(t *testing.T) {
	cs, err := NewCronSchedule("0 0 30 2 *")
	require.NoError(t, err)

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, cs.Next(from).IsZero())
}

func TestNewCronSchedule_Invalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * * * 7",
		"*/0 * * * *",
		"5-1 * * * *",
		"x * * * *",
	} {
		_, err := NewCronSchedule(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestCronSchedule_String(t *testing.T) {
	cs := MustCronSchedule("0 3 * * *")
	assert.Equal(t, "0 3 * * *", cs.String())
}

func TestScheduler_RegisterCronJob(t *testing.T) {
	config := DefaultSchedulerConfig()
	s := NewScheduler(config)

	err := s.Register(&stubJob{name: "expire-enrollments"}, MustCronSchedule("0 3 * * *"))
	require.NoError(t, err)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "0 3 * * *", infos[0].Schedule)
	assert.Equal(t, 3, infos[0].NextRun.Hour())
	assert.Equal(t, 0, infos[0].NextRun.Minute())
}
