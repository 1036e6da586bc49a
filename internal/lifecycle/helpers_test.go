package lifecycle_test

import (
	"time"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

var (
	eventDay   = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	beforeDay  = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	duringDay  = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	afterDay   = time.Date(2026, 6, 11, 12, 0, 0, 0, time.UTC)
	createdAt0 = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
)

// validEvent returns a published event that passes every publish check.
func validEvent() *model.Event {
	return &model.Event{
		ID:           "ev-1",
		Title:        "Cardiology Update 2026",
		Description:  "Annual review of cardiology guidelines.",
		Location:     "Hall A",
		Organizer:    "CME Office",
		ContactEmail: "cme@example.org",
		ContactPhone: "+1 555 0100",
		PriceCents:   15000,
		Capacity:     2,
		StartDate:    eventDay,
		EndDate:      eventDay,
		StartTime:    "09:00",
		EndTime:      "17:00",
		SpeakerIDs:   []string{"spk-1"},
		Signatories:  []model.Signatory{{Name: "Dr. Ada Lane", Title: "Program Director"}},
		CMECredits:   6,
		IsPublished:  true,
	}
}

func registration(id string, status model.RegistrationStatus, offset time.Duration) model.Registration {
	return model.Registration{
		ID:            id,
		EventID:       "ev-1",
		Name:          "Attendee " + id,
		Email:         id + "@example.org",
		Status:        status,
		PaymentStatus: model.PaymentPending,
		AmountCents:   15000,
		CreatedAt:     createdAt0.Add(offset),
	}
}
