package lifecycle

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

var validate = validator.New()

// Validation is the outcome of a publish check. Errors is never nil.
type Validation struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// ValidateForPublish checks that ev carries everything a published event
// needs. It reports every failing check, not just the first one, and never
// modifies ev.
func ValidateForPublish(ev *model.Event) Validation {
	errs := []string{}
	fail := func(msg string) { errs = append(errs, msg) }

	if blank(ev.Title) {
		fail("title is required")
	}
	if blank(ev.Description) {
		fail("description is required")
	}

	if ev.StartDate.IsZero() {
		fail("start date is required")
	}
	if ev.EndDate.IsZero() {
		fail("end date is required")
	}
	if !ev.StartDate.IsZero() && !ev.EndDate.IsZero() && dateOf(ev.EndDate).Before(dateOf(ev.StartDate)) {
		fail("end date must not be before start date")
	}

	startClock := strings.TrimSpace(ev.StartTime)
	endClock := strings.TrimSpace(ev.EndTime)
	_, _, startOK := parseClock(startClock)
	_, _, endOK := parseClock(endClock)
	if startClock != "" && !startOK {
		fail("start time must use the HH:MM format")
	}
	if endClock != "" && !endOK {
		fail("end time must use the HH:MM format")
	}
	if startOK && endOK && dateOf(ev.StartDate).Equal(dateOf(ev.EndDate)) {
		start, end := EventWindow(ev)
		if !start.Before(end) {
			fail("start time must be before end time")
		}
	}

	if ev.RegistrationDeadline != nil && !ev.StartDate.IsZero() {
		start, _ := EventWindow(ev)
		if ev.RegistrationDeadline.After(start) {
			fail("registration deadline must not be after the event starts")
		}
	}

	if !ev.IsVirtual && blank(ev.Location) {
		fail("location is required unless the event is virtual")
	}
	if ev.Capacity <= 0 {
		fail("capacity must be greater than zero")
	}
	if blank(ev.Organizer) {
		fail("organizer is required")
	}
	switch {
	case blank(ev.ContactEmail):
		fail("contact email is required")
	case !IsValidEmail(ev.ContactEmail):
		fail("contact email is not a valid email address")
	}
	if blank(ev.ContactPhone) {
		fail("contact phone is required")
	}
	if ev.PriceCents < 0 {
		fail("price must not be negative")
	}
	if !hasSpeaker(ev.SpeakerIDs) {
		fail("at least one speaker must be assigned")
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}

// IsValidEmail reports whether s has the shape of an email address.
func IsValidEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required,email") == nil
}

func hasSpeaker(ids []string) bool {
	for _, id := range ids {
		if !blank(id) {
			return true
		}
	}
	return false
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
