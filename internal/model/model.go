// Package model defines the core domain types for the conference lifecycle service.
package model

import "time"

// EventStatus is the lifecycle status of an event. Only CANCELLED is ever
// stored; every other value is derived from the event's time window on read.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventUpcoming  EventStatus = "UPCOMING"
	EventActive    EventStatus = "ACTIVE"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// Signatory is a named authority printed on issued certificates.
type Signatory struct {
	Name  string `json:"name" validate:"required"`
	Title string `json:"title"`
}

// Event represents a conference session that attendees register for.
type Event struct {
	ID                   string      `json:"id"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Location             string      `json:"location"`
	IsVirtual            bool        `json:"is_virtual"`
	Organizer            string      `json:"organizer"`
	ContactEmail         string      `json:"contact_email"`
	ContactPhone         string      `json:"contact_phone"`
	PriceCents           int64       `json:"price_cents"`
	Capacity             int         `json:"capacity"`
	StartDate            time.Time   `json:"start_date"`
	EndDate              time.Time   `json:"end_date"`
	StartTime            string      `json:"start_time,omitempty"`
	EndTime              string      `json:"end_time,omitempty"`
	RegistrationDeadline *time.Time  `json:"registration_deadline,omitempty"`
	SpeakerIDs           []string    `json:"speaker_ids"`
	Signatories          []Signatory `json:"signatories"`
	CMECredits           float64     `json:"cme_credits"`
	IsPublished          bool        `json:"is_published"`
	CancelledAt          *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`

	// Status is computed on every read and never persisted.
	Status EventStatus `json:"status"`
}

// CreateEventRequest is the payload for creating a new draft event.
type CreateEventRequest struct {
	Title                string      `json:"title" validate:"required,max=300"`
	Description          string      `json:"description"`
	Location             string      `json:"location"`
	IsVirtual            bool        `json:"is_virtual"`
	Organizer            string      `json:"organizer"`
	ContactEmail         string      `json:"contact_email" validate:"omitempty,email"`
	ContactPhone         string      `json:"contact_phone"`
	PriceCents           int64       `json:"price_cents" validate:"gte=0"`
	Capacity             int         `json:"capacity" validate:"gte=0,lte=100000"`
	StartDate            time.Time   `json:"start_date"`
	EndDate              time.Time   `json:"end_date"`
	StartTime            string      `json:"start_time"`
	EndTime              string      `json:"end_time"`
	RegistrationDeadline *time.Time  `json:"registration_deadline"`
	SpeakerIDs           []string    `json:"speaker_ids"`
	Signatories          []Signatory `json:"signatories" validate:"max=2,dive"`
	CMECredits           float64     `json:"cme_credits" validate:"gte=0"`
}

// UpdateEventRequest is a partial update; nil fields are left untouched.
type UpdateEventRequest struct {
	Title                *string      `json:"title" validate:"omitempty,max=300"`
	Description          *string      `json:"description"`
	Location             *string      `json:"location"`
	IsVirtual            *bool        `json:"is_virtual"`
	Organizer            *string      `json:"organizer"`
	ContactEmail         *string      `json:"contact_email" validate:"omitempty,email"`
	ContactPhone         *string      `json:"contact_phone"`
	PriceCents           *int64       `json:"price_cents" validate:"omitempty,gte=0"`
	Capacity             *int         `json:"capacity" validate:"omitempty,gte=0,lte=100000"`
	StartDate            *time.Time   `json:"start_date"`
	EndDate              *time.Time   `json:"end_date"`
	StartTime            *string      `json:"start_time"`
	EndTime              *string      `json:"end_time"`
	RegistrationDeadline *time.Time   `json:"registration_deadline"`
	SpeakerIDs           *[]string    `json:"speaker_ids"`
	Signatories          *[]Signatory `json:"signatories" validate:"omitempty,max=2,dive"`
	CMECredits           *float64     `json:"cme_credits" validate:"omitempty,gte=0"`
}

// Apply copies the set fields of the request onto ev.
func (r UpdateEventRequest) Apply(ev *Event) {
	if r.Title != nil {
		ev.Title = *r.Title
	}
	if r.Description != nil {
		ev.Description = *r.Description
	}
	if r.Location != nil {
		ev.Location = *r.Location
	}
	if r.IsVirtual != nil {
		ev.IsVirtual = *r.IsVirtual
	}
	if r.Organizer != nil {
		ev.Organizer = *r.Organizer
	}
	if r.ContactEmail != nil {
		ev.ContactEmail = *r.ContactEmail
	}
	if r.ContactPhone != nil {
		ev.ContactPhone = *r.ContactPhone
	}
	if r.PriceCents != nil {
		ev.PriceCents = *r.PriceCents
	}
	if r.Capacity != nil {
		ev.Capacity = *r.Capacity
	}
	if r.StartDate != nil {
		ev.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		ev.EndDate = *r.EndDate
	}
	if r.StartTime != nil {
		ev.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		ev.EndTime = *r.EndTime
	}
	if r.RegistrationDeadline != nil {
		deadline := *r.RegistrationDeadline
		ev.RegistrationDeadline = &deadline
	}
	if r.SpeakerIDs != nil {
		ev.SpeakerIDs = append([]string(nil), (*r.SpeakerIDs)...)
	}
	if r.Signatories != nil {
		ev.Signatories = append([]Signatory(nil), (*r.Signatories)...)
	}
	if r.CMECredits != nil {
		ev.CMECredits = *r.CMECredits
	}
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
