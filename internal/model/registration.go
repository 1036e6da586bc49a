package model

import "time"

// RegistrationStatus is the attendance status of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationWaitlist  RegistrationStatus = "WAITLIST"
	RegistrationAttended  RegistrationStatus = "ATTENDED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

// RegistrationStatuses lists every status in display order.
var RegistrationStatuses = []RegistrationStatus{
	RegistrationPending,
	RegistrationConfirmed,
	RegistrationWaitlist,
	RegistrationAttended,
	RegistrationCancelled,
}

// PaymentStatus tracks the payment sub-state of a registration.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFree     PaymentStatus = "FREE"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// PaymentStatuses lists every payment status in display order.
var PaymentStatuses = []PaymentStatus{
	PaymentPending,
	PaymentPaid,
	PaymentFree,
	PaymentRefunded,
	PaymentFailed,
}

// Registration represents an attendee's registration for an event.
type Registration struct {
	ID            string             `json:"id"`
	EventID       string             `json:"event_id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
	AmountCents   int64              `json:"amount_cents"`
	// RegisteredByID is nil for self-registrations from the public form.
	RegisteredByID *string    `json:"registered_by_id,omitempty"`
	AttendedAt     *time.Time `json:"attended_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Occupancy is the capacity picture of an event as seen from one registration,
// computed inside the same transaction that applies a transition.
type Occupancy struct {
	// Confirmed counts CONFIRMED registrations for the event.
	Confirmed int
	// PendingAhead counts PENDING registrations created before the one being
	// decided on.
	PendingAhead int
	// WaitlistAhead counts WAITLIST registrations created before the one being
	// decided on. They keep their claim on the next freed seat.
	WaitlistAhead int
}

// Claimed is the number of seats taken or queued for ahead of the registration
// being decided on.
func (o Occupancy) Claimed() int {
	return o.Confirmed + o.PendingAhead + o.WaitlistAhead
}

// RegistrationFilter narrows registration listings. Zero fields match everything.
type RegistrationFilter struct {
	EventID       string
	Status        RegistrationStatus
	PaymentStatus PaymentStatus
	Email         string
}

// CreateRegistrationRequest is the payload for registering for an event.
type CreateRegistrationRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	// AutoConfirm places the registration straight into CONFIRMED or WAITLIST
	// depending on capacity. Reserved for staff and paid flows.
	AutoConfirm bool `json:"auto_confirm"`
}

// GatewayPaymentRequest carries a payment state reported by the payment gateway.
type GatewayPaymentRequest struct {
	Status PaymentStatus `json:"status" validate:"required,oneof=REFUNDED FAILED"`
}

// RegistrationView is a registration together with the actions currently
// available on it.
type RegistrationView struct {
	Registration *Registration `json:"registration"`
	Actions      []string      `json:"actions"`
	// CertificateOffered is set when certificate generation should be shown.
	CertificateOffered bool `json:"certificate_offered"`
}
