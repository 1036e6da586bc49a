package service

import (
	"context"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

// EventStore persists events. Update must apply mutate atomically and write
// nothing when mutate fails. The occupancy it hands mutate counts every PENDING
// and WAITLIST registration as ahead and is held stable until the write lands.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, mutate func(ev *model.Event, occ model.Occupancy) error) (*model.Event, error)
}

// RegistrationStore persists registrations. Create and Update hand their
// callbacks an occupancy computed under the same lock that guards the write,
// which is what keeps CONFIRMED within capacity under concurrent requests.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration, decide func(ev *model.Event, occ model.Occupancy) error) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	List(ctx context.Context, filter model.RegistrationFilter) ([]model.Registration, error)
	Update(ctx context.Context, id string, mutate func(reg *model.Registration, ev *model.Event, occ model.Occupancy) error) (*model.Registration, error)
}

// CertificateStore persists certificates. Create and Replace serialise per
// registration so a registration never has two live certificates.
type CertificateStore interface {
	Create(ctx context.Context, registrationID string, build func(reg *model.Registration, ev *model.Event, live *model.Certificate) (*model.Certificate, error)) (*model.Certificate, error)
	Replace(ctx context.Context, oldID string, build func(old *model.Certificate, reg *model.Registration, ev *model.Event) (*model.Certificate, error)) (*model.Certificate, error)
	Update(ctx context.Context, id string, mutate func(cert *model.Certificate) error) (*model.Certificate, error)
	GetByID(ctx context.Context, id string) (*model.Certificate, error)
	GetByCode(ctx context.Context, code string) (*model.Certificate, error)
	GetLive(ctx context.Context, registrationID string) (*model.Certificate, error)
}
