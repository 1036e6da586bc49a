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

// RegistrationService moves registrations through their lifecycle.
type RegistrationService struct {
	events        EventStore
	registrations RegistrationStore
	options
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(events EventStore, registrations RegistrationStore, opts ...Option) *RegistrationService {
	return &RegistrationService{events: events, registrations: registrations, options: newOptions(opts)}
}

// Register creates a registration for eventID. registeredBy is nil for
// self-registrations. The initial status is decided against the event's
// occupancy inside the store's write lock.
func (s *RegistrationService) Register(
	ctx context.Context,
	eventID string,
	req model.CreateRegistrationRequest,
	registeredBy *string,
) (*model.Registration, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	var problems []string
	if eventID == "" {
		problems = append(problems, "event id is required")
	}
	if req.Name == "" {
		problems = append(problems, "name is required")
	}
	switch {
	case req.Email == "":
		problems = append(problems, "email is required")
	case !lifecycle.IsValidEmail(req.Email):
		problems = append(problems, "email is not a valid email address")
	}
	if len(problems) > 0 {
		return nil, &lifecycle.ValidationError{Messages: problems}
	}

	now := s.now()
	reg := &model.Registration{
		ID:             uuid.New().String(),
		EventID:        eventID,
		Name:           req.Name,
		Email:          req.Email,
		RegisteredByID: registeredBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	var eventTitle string
	err := s.registrations.Create(ctx, reg, func(ev *model.Event, occ model.Occupancy) error {
		status, err := lifecycle.DecideNewRegistration(ev, occ, req.AutoConfirm, now)
		if err != nil {
			return err
		}
		reg.Status = status
		reg.PaymentStatus, reg.AmountCents = lifecycle.InitialPayment(ev)
		eventTitle = ev.Title
		return nil
	})
	s.metrics.observe("registration", "create", false, err)
	if err != nil {
		return nil, storeErr("register for event", err)
	}

	s.logger.InfoContext(ctx, "registration created",
		"registration_id", reg.ID, "event_id", eventID, "status", reg.Status, "staff", registeredBy != nil)
	s.notifyStatus(reg, eventTitle)
	return reg, nil
}

// Get returns a registration together with the actions its state allows.
func (s *RegistrationService) Get(ctx context.Context, id string) (*model.RegistrationView, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get registration", err)
	}
	ev, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, storeErr("get event", err)
	}
	actions := lifecycle.AvailableActions(reg, ev, s.now())
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return &model.RegistrationView{
		Registration:       reg,
		Actions:            names,
		CertificateOffered: lifecycle.CanListGenerate(reg, ev, s.now()),
	}, nil
}

// List returns the registrations of an event matching filter.
func (s *RegistrationService) List(ctx context.Context, filter model.RegistrationFilter) ([]model.Registration, error) {
	if filter.EventID != "" {
		if _, err := s.events.GetByID(ctx, filter.EventID); err != nil {
			return nil, storeErr("get event", err)
		}
	}
	regs, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, storeErr("list registrations", err)
	}
	return regs, nil
}

// Transition applies a status or payment action. Repeating an action that is
// already applied succeeds without changing anything.
func (s *RegistrationService) Transition(ctx context.Context, id string, action lifecycle.Action) (*model.Registration, error) {
	var (
		before     model.Registration
		eventTitle string
	)
	reg, err := s.registrations.Update(ctx, id, func(reg *model.Registration, ev *model.Event, occ model.Occupancy) error {
		before = *reg
		eventTitle = ev.Title
		now := s.now()
		switch action {
		case lifecycle.ActionMarkPaid, lifecycle.ActionMarkFree:
			status, err := lifecycle.DecidePayment(reg, action)
			if err != nil {
				return err
			}
			lifecycle.ApplyPayment(reg, status, now)
		default:
			status, err := lifecycle.DecideRegistration(reg, ev, occ, action, now)
			if err != nil {
				return err
			}
			lifecycle.ApplyStatus(reg, status, now)
		}
		return nil
	})
	noop := err == nil && reg.Status == before.Status && reg.PaymentStatus == before.PaymentStatus
	s.metrics.observe("registration", string(action), noop, err)
	if err != nil {
		s.logger.InfoContext(ctx, "registration transition rejected",
			"registration_id", id, "action", action, "error", err)
		return nil, storeErr("update registration", err)
	}

	s.logger.InfoContext(ctx, "registration transition",
		"registration_id", id, "action", action, "from", before.Status, "to", reg.Status,
		"payment", reg.PaymentStatus, "noop", noop)
	if reg.Status != before.Status {
		s.notifyStatus(reg, eventTitle)
	}
	return reg, nil
}

// ApplyGatewayPayment records a REFUNDED or FAILED payment reported by the
// payment gateway.
func (s *RegistrationService) ApplyGatewayPayment(ctx context.Context, id string, status model.PaymentStatus) (*model.Registration, error) {
	var before model.PaymentStatus
	reg, err := s.registrations.Update(ctx, id, func(reg *model.Registration, _ *model.Event, _ model.Occupancy) error {
		before = reg.PaymentStatus
		next, err := lifecycle.DecideGatewayPayment(reg, status)
		if err != nil {
			return err
		}
		lifecycle.ApplyPayment(reg, next, s.now())
		return nil
	})
	noop := err == nil && before == reg.PaymentStatus
	s.metrics.observe("payment", "gateway_"+strings.ToLower(string(status)), noop, err)
	if err != nil {
		return nil, storeErr("update payment", err)
	}
	s.logger.InfoContext(ctx, "gateway payment applied",
		"registration_id", id, "from", before, "to", reg.PaymentStatus)
	return reg, nil
}

func (s *RegistrationService) notifyStatus(reg *model.Registration, eventTitle string) {
	var kind, subject string
	switch reg.Status {
	case model.RegistrationPending:
		kind, subject = notify.KindRegistrationReceived, "We received your registration for %s"
	case model.RegistrationConfirmed:
		kind, subject = notify.KindRegistrationConfirmed, "Your place at %s is confirmed"
	case model.RegistrationWaitlist:
		kind, subject = notify.KindRegistrationWaitlist, "You are on the waitlist for %s"
	case model.RegistrationCancelled:
		kind, subject = notify.KindRegistrationCancelled, "Your registration for %s was cancelled"
	default:
		return
	}
	s.dispatch(notify.Message{
		Kind:    kind,
		To:      reg.Email,
		Subject: fmt.Sprintf(subject, eventTitle),
		Data:    map[string]string{"registration_id": reg.ID, "event_id": reg.EventID},
	})
}
