package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSchedule implements Schedule from a standard 5-field cron expression:
// minute hour day-of-month month day-of-week. Fields accept "*", single
// values, ranges (n-m), lists (n,m,o) and steps (*/n, n-m/s).
//
//	"*/10 * * * *"  every 10 minutes
//	"0 3 * * *"     every night at 03:00
//	"0 0 * * 1"     every Monday at midnight
//
// Times are evaluated in the location of the time passed to Next, which the
// Scheduler takes from its configured timezone.
type CronSchedule struct {
	expr    string
	minute  cronField
	hour    cronField
	day     cronField
	month   cronField
	weekday cronField
}

// cronField is a bitmask of the permitted values for one cron field.
type cronField uint64

func (f cronField) has(v int) bool { return f&(1<<uint(v)) != 0 }

// NewCronSchedule parses a cron expression into a Schedule.
func NewCronSchedule(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: expected 5 fields, got %d", expr, len(fields))
	}

	cs := &CronSchedule{expr: expr}
	specs := []struct {
		name     string
		min, max int
		dst      *cronField
	}{
		{"minute", 0, 59, &cs.minute},
		{"hour", 0, 23, &cs.hour},
		{"day", 1, 31, &cs.day},
		{"month", 1, 12, &cs.month},
		{"weekday", 0, 6, &cs.weekday},
	}
	for i, spec := range specs {
		mask, err := parseCronField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s field: %w", expr, spec.name, err)
		}
		*spec.dst = mask
	}

	return cs, nil
}

// MustCronSchedule parses a cron expression or panics.
// Use only for compile-time constants.
func MustCronSchedule(expr string) *CronSchedule {
	cs, err := NewCronSchedule(expr)
	if err != nil {
		panic(err)
	}
	return cs
}

// parseCronField parses one field (a comma-separated list of parts) into a
// bitmask of permitted values.
func parseCronField(field string, min, max int) (cronField, error) {
	var mask cronField
	for _, part := range strings.Split(field, ",") {
		m, err := parseCronPart(strings.TrimSpace(part), min, max)
		if err != nil {
			return 0, err
		}
		mask |= m
	}
	if mask == 0 {
		return 0, fmt.Errorf("no values in %q", field)
	}
	return mask, nil
}

// parseCronPart parses a single list element: "*", "n" or "n-m", optionally
// followed by "/step".
func parseCronPart(part string, min, max int) (cronField, error) {
	step := 1
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s <= 0 {
			return 0, fmt.Errorf("invalid step in %q", part)
		}
		step = s
		part = part[:idx]
	}

	start, end := min, max
	switch {
	case part == "*":
		// full range
	case strings.Contains(part, "-"):
		bounds := strings.SplitN(part, "-", 2)
		var err error
		if start, err = strconv.Atoi(bounds[0]); err != nil {
			return 0, fmt.Errorf("invalid range start %q", bounds[0])
		}
		if end, err = strconv.Atoi(bounds[1]); err != nil {
			return 0, fmt.Errorf("invalid range end %q", bounds[1])
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q", part)
		}
		start, end = v, v
	}

	if start < min || end > max || start > end {
		return 0, fmt.Errorf("value out of range [%d-%d] in %q", min, max, part)
	}

	var mask cronField
	for v := start; v <= end; v += step {
		mask |= 1 << uint(v)
	}
	return mask, nil
}

// Next returns the next matching time strictly after t, in t's location.
// Returns the zero time when nothing matches within a year (an expression
// like "0 0 30 2 *" never fires).
func (cs *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(1, 0, 1)

	for next.Before(limit) {
		switch {
		case !cs.month.has(int(next.Month())):
			next = time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, next.Location()).AddDate(0, 1, 0)
		case !cs.day.has(next.Day()) || !cs.weekday.has(int(next.Weekday())):
			next = time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, next.Location()).AddDate(0, 0, 1)
		case !cs.hour.has(next.Hour()):
			next = time.Date(next.Year(), next.Month(), next.Day(), next.Hour(), 0, 0, 0, next.Location()).Add(time.Hour)
		case !cs.minute.has(next.Minute()):
			next = next.Add(time.Minute)
		default:
			return next
		}
	}

	return time.Time{}
}

// String returns the original cron expression.
func (cs *CronSchedule) String() string {
	return cs.expr
}
