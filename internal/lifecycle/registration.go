package lifecycle

import (
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

// Action is a user-facing operation on a registration.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionPromote  Action = "promote"
	ActionAttend   Action = "attend"
	ActionCancel   Action = "cancel"
	ActionMarkPaid Action = "mark_paid"
	ActionMarkFree Action = "mark_free"
)

// StatusActions lists the status actions in display order.
var StatusActions = []Action{ActionConfirm, ActionPromote, ActionAttend, ActionCancel}

// Decision is one cell of a transition table.
type Decision struct {
	Allowed bool
	// NoOp marks a request for the state the registration is already in.
	NoOp   bool
	To     model.RegistrationStatus
	Reason string
}

const (
	ruleTerminal        = "registration is closed"
	ruleNotWaitlisted   = "only waitlisted registrations can be promoted"
	ruleNotConfirmed    = "registration must be confirmed before attendance"
	ruleAttendedNoUndo  = "attended registrations cannot be cancelled"
	ruleWaitlistPromote = "waitlisted registrations are confirmed by promotion"
	ruleEventCompleted  = "attendance is closed for completed events"
	ruleEventCancelled  = "event is cancelled"
	ruleEventDraft      = "event is not published"
	ruleEventEnded      = "event has already ended"
	ruleDeadlinePassed  = "registration deadline has passed"
	rulePaymentSettled  = "payment is no longer pending"
	ruleGatewayOnly     = "gateway may only report refunded or failed payments"
)

func to(s model.RegistrationStatus) Decision { return Decision{Allowed: true, To: s} }
func stay(s model.RegistrationStatus) Decision {
	return Decision{Allowed: true, NoOp: true, To: s}
}
func deny(reason string) Decision { return Decision{Reason: reason} }

// registrationTable is the single source of truth for which status actions
// apply in which state. Capacity and event-level rules are layered on top in
// DecideRegistration.
var registrationTable = map[model.RegistrationStatus]map[Action]Decision{
	model.RegistrationPending: {
		ActionConfirm: to(model.RegistrationConfirmed),
		ActionPromote: deny(ruleNotWaitlisted),
		ActionAttend:  deny(ruleNotConfirmed),
		ActionCancel:  to(model.RegistrationCancelled),
	},
	model.RegistrationConfirmed: {
		ActionConfirm: stay(model.RegistrationConfirmed),
		ActionPromote: stay(model.RegistrationConfirmed),
		ActionAttend:  to(model.RegistrationAttended),
		ActionCancel:  to(model.RegistrationCancelled),
	},
	model.RegistrationWaitlist: {
		ActionConfirm: deny(ruleWaitlistPromote),
		ActionPromote: to(model.RegistrationConfirmed),
		ActionAttend:  deny(ruleNotConfirmed),
		ActionCancel:  to(model.RegistrationCancelled),
	},
	model.RegistrationAttended: {
		ActionConfirm: deny(ruleTerminal),
		ActionPromote: deny(ruleTerminal),
		ActionAttend:  stay(model.RegistrationAttended),
		ActionCancel:  deny(ruleAttendedNoUndo),
	},
	model.RegistrationCancelled: {
		ActionConfirm: deny(ruleTerminal),
		ActionPromote: deny(ruleTerminal),
		ActionAttend:  deny(ruleTerminal),
		ActionCancel:  stay(model.RegistrationCancelled),
	},
}

// Lookup returns the table entry for action in state from. Unknown states or
// actions are denied.
func Lookup(from model.RegistrationStatus, action Action) Decision {
	row, ok := registrationTable[from]
	if !ok {
		return deny("unknown registration status")
	}
	d, ok := row[action]
	if !ok {
		return deny("unknown action")
	}
	return d
}

// eventRule returns the event-level reason action is blocked, if any.
func eventRule(action Action, status model.EventStatus) string {
	switch action {
	case ActionCancel:
		if status == model.EventCompleted {
			return ruleEventCompleted
		}
	case ActionConfirm, ActionPromote, ActionAttend:
		if status == model.EventCancelled {
			return ruleEventCancelled
		}
	}
	return ""
}

// DecideRegistration returns the status reg moves to when action is applied.
// occ must be computed in the same transaction that persists the result.
//
// Confirming a PENDING registration that does not fit places it on the
// waitlist instead; earlier PENDING and WAITLIST registrations keep their
// claim on seats.
// Promoting from the waitlist rechecks capacity and fails with
// CapacityConflictError when the event is full.
func DecideRegistration(reg *model.Registration, ev *model.Event, occ model.Occupancy, action Action, now time.Time) (model.RegistrationStatus, error) {
	d := Lookup(reg.Status, action)
	if !d.Allowed {
		return reg.Status, illegal("registration", reg.Status, action, d.Reason)
	}
	if d.NoOp {
		return reg.Status, nil
	}
	if rule := eventRule(action, EventStatus(ev, now)); rule != "" {
		return reg.Status, illegal("registration", reg.Status, action, rule)
	}
	if d.To != model.RegistrationConfirmed {
		return d.To, nil
	}

	if reg.Status == model.RegistrationWaitlist {
		if occ.Confirmed >= ev.Capacity {
			return reg.Status, &CapacityConflictError{EventID: ev.ID, Capacity: ev.Capacity, Confirmed: occ.Confirmed}
		}
		return model.RegistrationConfirmed, nil
	}
	if occ.Claimed() < ev.Capacity {
		return model.RegistrationConfirmed, nil
	}
	return model.RegistrationWaitlist, nil
}

// ApplyStatus moves reg to status, stamping the matching timestamps.
func ApplyStatus(reg *model.Registration, status model.RegistrationStatus, now time.Time) {
	if reg.Status == status {
		return
	}
	reg.Status = status
	reg.UpdatedAt = now
	switch status {
	case model.RegistrationAttended:
		reg.AttendedAt = &now
	case model.RegistrationCancelled:
		reg.CancelledAt = &now
	}
}

// DecideNewRegistration returns the initial status of a registration created
// at now. occ must count every PENDING and WAITLIST registration of the event
// as ahead.
func DecideNewRegistration(ev *model.Event, occ model.Occupancy, autoConfirm bool, now time.Time) (model.RegistrationStatus, error) {
	switch status := EventStatus(ev, now); status {
	case model.EventDraft:
		return "", illegal("event", status, "register", ruleEventDraft)
	case model.EventCancelled:
		return "", illegal("event", status, "register", ruleEventCancelled)
	case model.EventCompleted:
		return "", illegal("event", status, "register", ruleEventEnded)
	}
	if ev.RegistrationDeadline != nil && now.After(*ev.RegistrationDeadline) {
		return "", illegal("event", EventStatus(ev, now), "register", ruleDeadlinePassed)
	}
	if !autoConfirm {
		return model.RegistrationPending, nil
	}
	if occ.Claimed() < ev.Capacity {
		return model.RegistrationConfirmed, nil
	}
	return model.RegistrationWaitlist, nil
}

// InitialPayment returns the payment state and amount for a new registration.
func InitialPayment(ev *model.Event) (model.PaymentStatus, int64) {
	if ev.PriceCents <= 0 {
		return model.PaymentFree, 0
	}
	return model.PaymentPending, ev.PriceCents
}

// DecidePayment returns the payment status reg moves to for a staff payment
// action. Repeating an applied action is a no-op.
func DecidePayment(reg *model.Registration, action Action) (model.PaymentStatus, error) {
	var target model.PaymentStatus
	switch action {
	case ActionMarkPaid:
		target = model.PaymentPaid
	case ActionMarkFree:
		target = model.PaymentFree
	default:
		return reg.PaymentStatus, illegal("payment", reg.PaymentStatus, action, "unknown action")
	}
	if reg.PaymentStatus == target {
		return target, nil
	}
	if reg.PaymentStatus != model.PaymentPending {
		return reg.PaymentStatus, illegal("payment", reg.PaymentStatus, action, rulePaymentSettled)
	}
	return target, nil
}

// DecideGatewayPayment accepts a REFUNDED or FAILED report from the payment
// gateway from any payment state.
func DecideGatewayPayment(reg *model.Registration, status model.PaymentStatus) (model.PaymentStatus, error) {
	if status != model.PaymentRefunded && status != model.PaymentFailed {
		return reg.PaymentStatus, illegal("payment", reg.PaymentStatus, "report "+string(status), ruleGatewayOnly)
	}
	return status, nil
}

// ApplyPayment moves reg to status. Marking a registration FREE zeroes the amount.
func ApplyPayment(reg *model.Registration, status model.PaymentStatus, now time.Time) {
	if reg.PaymentStatus == status {
		return
	}
	reg.PaymentStatus = status
	reg.UpdatedAt = now
	if status == model.PaymentFree {
		reg.AmountCents = 0
	}
}

// AvailableActions lists the actions that would be accepted for reg right
// now, ignoring capacity. It consults the same table as DecideRegistration.
func AvailableActions(reg *model.Registration, ev *model.Event, now time.Time) []Action {
	status := EventStatus(ev, now)
	actions := []Action{}
	for _, action := range StatusActions {
		d := Lookup(reg.Status, action)
		if !d.Allowed || d.NoOp || eventRule(action, status) != "" {
			continue
		}
		actions = append(actions, action)
	}
	if reg.PaymentStatus == model.PaymentPending {
		actions = append(actions, ActionMarkPaid, ActionMarkFree)
	}
	return actions
}

// CheckCapacity returns the reason capacity cannot be set for an event with
// occupancy occ, or "" when it can. Confirmed seats are never taken back.
func CheckCapacity(capacity int, occ model.Occupancy) string {
	if capacity < occ.Confirmed {
		return fmt.Sprintf("capacity cannot be lower than the %d confirmed registrations", occ.Confirmed)
	}
	return ""
}

// OccupancyOf computes the occupancy of an event from its registrations as
// seen by self. A nil self counts every PENDING and WAITLIST registration as
// ahead.
func OccupancyOf(regs []model.Registration, self *model.Registration) model.Occupancy {
	var occ model.Occupancy
	for i := range regs {
		r := &regs[i]
		switch r.Status {
		case model.RegistrationConfirmed:
			occ.Confirmed++
		case model.RegistrationPending:
			if self == nil || createdBefore(r, self) {
				occ.PendingAhead++
			}
		case model.RegistrationWaitlist:
			if self == nil || createdBefore(r, self) {
				occ.WaitlistAhead++
			}
		}
	}
	return occ
}

func createdBefore(a, b *model.Registration) bool {
	if a.ID == b.ID {
		return false
	}
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
