package schedule

import (
	"testing"
	"time"

	"course-planner/internal/syllabus"
)

func TestProjectWeekly(t *testing.T) {
	lessons := []syllabus.Lesson{
		{Title: "Week 1", Body: "Intro"},
		{Title: "Week 2", Body: "Loops"},
	}
	got, err := Project(lessons, Options{StartDate: "2024-01-08", StartTime: "09:00", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if got[0].StartISO() != "2024-01-08T09:00:00" {
		t.Fatalf("first timestamp: %s", got[0].StartISO())
	}
	if got[1].StartISO() != "2024-01-15T09:00:00" {
		t.Fatalf("second timestamp: %s", got[1].StartISO())
	}
	if got[0].Timezone != "UTC" {
		t.Fatalf("timezone must be carried verbatim, got %q", got[0].Timezone)
	}
}

func TestProjectMonotonic(t *testing.T) {
	lessons := make([]syllabus.Lesson, 12)
	for i := range lessons {
		lessons[i] = syllabus.Lesson{Title: "Week"}
	}
	period := 48 * time.Hour
	got, err := Project(lessons, Options{StartDate: "2024-03-01", StartTime: "10:30", Period: period})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if d := got[i].Start.Sub(got[i-1].Start); d != period {
			t.Fatalf("gap %d->%d is %v, want %v", i-1, i, d, period)
		}
	}
}

func TestProjectFullTimestampAnchor(t *testing.T) {
	got, err := Project([]syllabus.Lesson{{Title: "Week 1"}}, Options{
		StartDate: "2024-01-08T14:45:00",
		StartTime: "09:00",
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	// StartTime always overrides the time of day
	if got[0].StartISO() != "2024-01-08T09:00:00" {
		t.Fatalf("unexpected anchor: %s", got[0].StartISO())
	}
}

func TestProjectDefaultsToNow(t *testing.T) {
	fixed := time.Date(2024, 6, 3, 17, 22, 41, 0, time.UTC)
	got, err := Project([]syllabus.Lesson{{Title: "Week 1"}}, Options{
		StartTime: "08:15",
		Now:       func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if got[0].StartISO() != "2024-06-03T08:15:00" {
		t.Fatalf("unexpected anchor: %s", got[0].StartISO())
	}
}

func TestProjectRejectsBadAnchor(t *testing.T) {
	if _, err := Project(nil, Options{StartDate: "March 5"}); err == nil {
		t.Fatalf("want error for unparseable date")
	}
	if _, err := Project(nil, Options{StartTime: "25:00"}); err == nil {
		t.Fatalf("want error for bad hour")
	}
}
