package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"course-planner/internal/syllabus"
)

// ScheduledLesson is a lesson plus its absolute start timestamp. The
// timezone string is carried verbatim to the downstream sink, no
// conversion is applied.
type ScheduledLesson struct {
	syllabus.Lesson
	Start    time.Time
	Timezone string
}

// StartISO renders the timestamp the way the calendar tool expects:
// wall-clock, no offset; the Timezone field qualifies it.
func (s ScheduledLesson) StartISO() string {
	return s.Start.Format("2006-01-02T15:04:05")
}

// Options anchor the projection. StartDate may be a full timestamp or
// a bare date; empty means "today". StartTime (HH:MM) always overrides
// the time of day. A zero Period defaults to one week.
type Options struct {
	StartDate string
	StartTime string
	Timezone  string
	Period    time.Duration
	Now       func() time.Time
}

const DefaultPeriod = 7 * 24 * time.Hour

// Project assigns lesson k the timestamp anchor + k*period, preserving
// lesson order. Adjacent timestamps differ by exactly one period.
func Project(lessons []syllabus.Lesson, opts Options) ([]ScheduledLesson, error) {
	anchor, err := resolveAnchor(opts)
	if err != nil {
		return nil, err
	}
	period := opts.Period
	if period <= 0 {
		period = DefaultPeriod
	}

	out := make([]ScheduledLesson, 0, len(lessons))
	for k, l := range lessons {
		out = append(out, ScheduledLesson{
			Lesson:   l,
			Start:    anchor.Add(time.Duration(k) * period),
			Timezone: opts.Timezone,
		})
	}
	return out, nil
}

func resolveAnchor(opts Options) (time.Time, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	base := now()
	if opts.StartDate != "" {
		parsed, err := parseDate(opts.StartDate)
		if err != nil {
			return time.Time{}, err
		}
		base = parsed
	}

	hh, mm, err := parseClock(opts.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(base.Year(), base.Month(), base.Day(), hh, mm, 0, 0, base.Location()), nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start date %q (want YYYY-MM-DD)", s)
}

func parseClock(s string) (int, int, error) {
	if s == "" {
		s = "09:00"
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unparseable start time %q (want HH:MM)", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 {
		return 0, 0, fmt.Errorf("bad hour in start time %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("bad minute in start time %q", s)
	}
	return hh, mm, nil
}
