// Package lifecycle holds the decision rules for events, registrations and
// certificates. Every function here is pure: callers supply the current state
// and the time, and persist whatever the decision returns.
package lifecycle

import (
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

const clockLayout = "15:04"

// ComputeStatus maps a time window onto UPCOMING, ACTIVE or COMPLETED.
// Both bounds are inclusive in the ACTIVE range.
func ComputeStatus(start, end, now time.Time) model.EventStatus {
	switch {
	case now.Before(start):
		return model.EventUpcoming
	case now.After(end):
		return model.EventCompleted
	default:
		return model.EventActive
	}
}

// EventStatus returns the status of ev at now. A cancelled event is CANCELLED
// and an unpublished one DRAFT regardless of time.
func EventStatus(ev *model.Event, now time.Time) model.EventStatus {
	if ev.CancelledAt != nil {
		return model.EventCancelled
	}
	if !ev.IsPublished {
		return model.EventDraft
	}
	start, end := EventWindow(ev)
	return ComputeStatus(start, end, now)
}

// EventWindow returns the first and last instants of the event. Dates are UTC
// calendar days and clock times are UTC. A missing start time means midnight
// and a missing end time means the end of the day.
func EventWindow(ev *model.Event) (start, end time.Time) {
	return atClock(ev.StartDate, ev.StartTime, false), atClock(ev.EndDate, ev.EndTime, true)
}

// CalendarDay returns the calendar date of t, as written in t's own location,
// at midnight UTC. Event dates are stored in this form.
func CalendarDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func atClock(day time.Time, clock string, endOfDay bool) time.Time {
	y, m, d := day.UTC().Date()
	if h, mm, ok := parseClock(clock); ok {
		return time.Date(y, m, d, h, mm, 0, 0, time.UTC)
	}
	if endOfDay {
		return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseClock(clock string) (hour, minute int, ok bool) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}
