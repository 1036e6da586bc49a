// Package service implements business operations, combining the pure
// lifecycle rules with the stores that apply them atomically.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/notify"
)

// EventService orchestrates event-related business operations.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
	options
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations RegistrationStore, opts ...Option) *EventService {
	return &EventService{events: events, registrations: registrations, options: newOptions(opts)}
}

// CreateEvent stores a new draft event. Drafts may be incomplete; the full
// checks run at publish time.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, &lifecycle.ValidationError{Messages: []string{"title is required"}}
	}
	now := s.now()
	ev := &model.Event{
		ID:                   uuid.New().String(),
		Title:                req.Title,
		Description:          strings.TrimSpace(req.Description),
		Location:             strings.TrimSpace(req.Location),
		IsVirtual:            req.IsVirtual,
		Organizer:            strings.TrimSpace(req.Organizer),
		ContactEmail:         strings.TrimSpace(req.ContactEmail),
		ContactPhone:         strings.TrimSpace(req.ContactPhone),
		PriceCents:           req.PriceCents,
		Capacity:             req.Capacity,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		StartTime:            strings.TrimSpace(req.StartTime),
		EndTime:              strings.TrimSpace(req.EndTime),
		RegistrationDeadline: req.RegistrationDeadline,
		SpeakerIDs:           req.SpeakerIDs,
		Signatories:          req.Signatories,
		CMECredits:           req.CMECredits,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	normalizeDates(ev)
	if err := s.events.Create(ctx, ev); err != nil {
		s.metrics.observe("event", "create", false, err)
		return nil, storeErr("create event", err)
	}
	s.metrics.observe("event", "create", false, nil)
	s.logger.InfoContext(ctx, "event created", "event_id", ev.ID)
	return s.withStatus(ev), nil
}

// ListEvents returns all events with their current status.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	for i := range events {
		s.withStatus(&events[i])
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, &lifecycle.ValidationError{Messages: []string{"event id is required"}}
	}
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get event", err)
	}
	return s.withStatus(ev), nil
}

// UpdateEvent applies a partial update. A published event must still pass
// the publish checks afterwards; a cancelled one cannot be edited.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	ev, err := s.events.Update(ctx, id, func(ev *model.Event, occ model.Occupancy) error {
		if ev.CancelledAt != nil {
			return &lifecycle.IllegalTransitionError{
				Entity: "event", From: string(model.EventCancelled), Action: "update", Rule: "cancelled events cannot be edited",
			}
		}
		req.Apply(ev)
		normalizeDates(ev)
		ev.UpdatedAt = s.now()
		if msg := lifecycle.CheckCapacity(ev.Capacity, occ); msg != "" {
			return &lifecycle.ValidationError{Messages: []string{msg}}
		}
		if ev.IsPublished {
			if v := lifecycle.ValidateForPublish(ev); !v.IsValid {
				return &lifecycle.ValidationError{Messages: v.Errors}
			}
		}
		return nil
	})
	s.metrics.observe("event", "update", false, err)
	if err != nil {
		return nil, storeErr("update event", err)
	}
	return s.withStatus(ev), nil
}

// CheckPublish runs the publish checks without changing anything.
func (s *EventService) CheckPublish(ctx context.Context, id string) (lifecycle.Validation, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return lifecycle.Validation{}, storeErr("get event", err)
	}
	return lifecycle.ValidateForPublish(ev), nil
}

// PublishEvent marks the event published once it passes every publish check.
// Publishing a published event is a no-op.
func (s *EventService) PublishEvent(ctx context.Context, id string) (*model.Event, error) {
	noop := false
	ev, err := s.events.Update(ctx, id, func(ev *model.Event, _ model.Occupancy) error {
		if ev.CancelledAt != nil {
			return &lifecycle.IllegalTransitionError{
				Entity: "event", From: string(model.EventCancelled), Action: "publish", Rule: "cancelled events cannot be published",
			}
		}
		if ev.IsPublished {
			noop = true
			return nil
		}
		if v := lifecycle.ValidateForPublish(ev); !v.IsValid {
			return &lifecycle.ValidationError{Messages: v.Errors}
		}
		ev.IsPublished = true
		ev.UpdatedAt = s.now()
		return nil
	})
	s.metrics.observe("event", "publish", noop, err)
	if err != nil {
		return nil, storeErr("publish event", err)
	}
	s.withStatus(ev)
	s.logger.InfoContext(ctx, "event published", "event_id", id, "status", ev.Status, "noop", noop)
	return ev, nil
}

// CancelEvent cancels the event unless it has already completed. Cancelling a
// cancelled event is a no-op.
func (s *EventService) CancelEvent(ctx context.Context, id string) (*model.Event, error) {
	noop := false
	ev, err := s.events.Update(ctx, id, func(ev *model.Event, _ model.Occupancy) error {
		now := s.now()
		switch status := lifecycle.EventStatus(ev, now); status {
		case model.EventCancelled:
			noop = true
			return nil
		case model.EventCompleted:
			return &lifecycle.IllegalTransitionError{
				Entity: "event", From: string(status), Action: "cancel", Rule: "completed events cannot be cancelled",
			}
		}
		ev.CancelledAt = &now
		ev.UpdatedAt = now
		return nil
	})
	s.metrics.observe("event", "cancel", noop, err)
	if err != nil {
		return nil, storeErr("cancel event", err)
	}
	s.withStatus(ev)
	s.logger.InfoContext(ctx, "event cancelled", "event_id", id, "noop", noop)
	if !noop {
		s.notifyAttendees(ctx, ev)
	}
	return ev, nil
}

// Stats summarises the registrations of an event for dashboards.
func (s *EventService) Stats(ctx context.Context, id string) (lifecycle.EventStats, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return lifecycle.EventStats{}, storeErr("get event", err)
	}
	regs, err := s.registrations.List(ctx, model.RegistrationFilter{EventID: id})
	if err != nil {
		return lifecycle.EventStats{}, storeErr("list registrations", err)
	}
	return lifecycle.Summarize(ev, regs), nil
}

func (s *EventService) notifyAttendees(ctx context.Context, ev *model.Event) {
	regs, err := s.registrations.List(ctx, model.RegistrationFilter{EventID: ev.ID})
	if err != nil {
		s.logger.WarnContext(ctx, "list attendees for notification", "event_id", ev.ID, "error", err)
		return
	}
	for _, reg := range regs {
		if reg.Status == model.RegistrationCancelled {
			continue
		}
		s.dispatch(notify.Message{
			Kind:    notify.KindEventCancelled,
			To:      reg.Email,
			Subject: fmt.Sprintf("%s has been cancelled", ev.Title),
			Data:    map[string]string{"event_id": ev.ID, "registration_id": reg.ID},
		})
	}
}

// normalizeDates stores event dates as UTC calendar days and the deadline as a
// UTC instant.
func normalizeDates(ev *model.Event) {
	ev.StartDate = lifecycle.CalendarDay(ev.StartDate)
	ev.EndDate = lifecycle.CalendarDay(ev.EndDate)
	if ev.RegistrationDeadline != nil {
		deadline := ev.RegistrationDeadline.UTC()
		ev.RegistrationDeadline = &deadline
	}
}

func (s *EventService) withStatus(ev *model.Event) *model.Event {
	ev.Status = lifecycle.EventStatus(ev, s.now())
	return ev
}
