// Package memstore keeps events, registrations and certificates in memory.
// It offers the same atomic mutate-in-place contract as the PostgreSQL stores
// by running every operation under a single mutex, and backs STORE=memory and
// the service and handler tests.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
)

// Store holds all three collections. Use the Events, Registrations and
// Certificates views to pass it where a single store type is expected.
type Store struct {
	mu            sync.Mutex
	events        map[string]*model.Event
	registrations map[string]*model.Registration
	certificates  map[string]*model.Certificate
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:        make(map[string]*model.Event),
		registrations: make(map[string]*model.Registration),
		certificates:  make(map[string]*model.Certificate),
	}
}

// Events returns the event view of s.
func (s *Store) Events() *Events { return &Events{s: s} }

// Registrations returns the registration view of s.
func (s *Store) Registrations() *Registrations { return &Registrations{s: s} }

// Certificates returns the certificate view of s.
func (s *Store) Certificates() *Certificates { return &Certificates{s: s} }

// Events is the event store backed by a Store.
type Events struct{ s *Store }

func (e *Events) Create(_ context.Context, ev *model.Event) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.events[ev.ID] = copyEvent(ev)
	return nil
}

func (e *Events) List(_ context.Context) ([]model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	events := make([]model.Event, 0, len(e.s.events))
	for _, ev := range e.s.events {
		events = append(events, *copyEvent(ev))
	}
	slices.SortFunc(events, func(a, b model.Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return events, nil
}

func (e *Events) GetByID(_ context.Context, id string) (*model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	ev, ok := e.s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyEvent(ev), nil
}

func (e *Events) Update(
	_ context.Context,
	id string,
	mutate func(ev *model.Event, occ model.Occupancy) error,
) (*model.Event, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	stored, ok := e.s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ev := copyEvent(stored)
	if err := mutate(ev, lifecycle.OccupancyOf(e.s.eventRegistrations(id), nil)); err != nil {
		return nil, err
	}
	e.s.events[id] = copyEvent(ev)
	return ev, nil
}

// Registrations is the registration store backed by a Store.
type Registrations struct{ s *Store }

func (r *Registrations) Create(
	_ context.Context,
	reg *model.Registration,
	decide func(ev *model.Event, occ model.Occupancy) error,
) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[reg.EventID]
	if !ok {
		return repository.ErrNotFound
	}
	regs := r.s.eventRegistrations(reg.EventID)
	for _, existing := range regs {
		if existing.Email == reg.Email {
			return repository.ErrAlreadyRegistered
		}
	}
	if err := decide(copyEvent(ev), lifecycle.OccupancyOf(regs, nil)); err != nil {
		return err
	}
	r.s.registrations[reg.ID] = copyRegistration(reg)
	return nil
}

func (r *Registrations) GetByID(_ context.Context, id string) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRegistration(reg), nil
}

func (r *Registrations) List(_ context.Context, filter model.RegistrationFilter) ([]model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(filter.Email))
	var regs []model.Registration
	for _, reg := range r.s.sortedRegistrations() {
		switch {
		case filter.EventID != "" && reg.EventID != filter.EventID:
		case filter.Status != "" && reg.Status != filter.Status:
		case filter.PaymentStatus != "" && reg.PaymentStatus != filter.PaymentStatus:
		case email != "" && !strings.Contains(strings.ToLower(reg.Email), email):
		default:
			regs = append(regs, reg)
		}
	}
	return regs, nil
}

func (r *Registrations) Update(
	_ context.Context,
	id string,
	mutate func(reg *model.Registration, ev *model.Event, occ model.Occupancy) error,
) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ev, ok := r.s.events[stored.EventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	reg := copyRegistration(stored)
	occ := lifecycle.OccupancyOf(r.s.eventRegistrations(reg.EventID), reg)
	if err := mutate(reg, copyEvent(ev), occ); err != nil {
		return nil, err
	}
	r.s.registrations[id] = copyRegistration(reg)
	return reg, nil
}

// Certificates is the certificate store backed by a Store.
type Certificates struct{ s *Store }

func (c *Certificates) Create(
	_ context.Context,
	registrationID string,
	build func(reg *model.Registration, ev *model.Event, live *model.Certificate) (*model.Certificate, error),
) (*model.Certificate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	reg, ev, err := c.s.registrationWithEvent(registrationID)
	if err != nil {
		return nil, err
	}
	cert, err := build(reg, ev, c.s.liveCertificate(registrationID))
	if err != nil {
		return nil, err
	}
	if err := c.s.checkUnique(cert); err != nil {
		return nil, err
	}
	c.s.certificates[cert.ID] = copyCertificate(cert)
	return cert, nil
}

func (c *Certificates) Replace(
	_ context.Context,
	oldID string,
	build func(old *model.Certificate, reg *model.Registration, ev *model.Event) (*model.Certificate, error),
) (*model.Certificate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.certificates[oldID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	reg, ev, err := c.s.registrationWithEvent(stored.RegistrationID)
	if err != nil {
		return nil, err
	}
	old := copyCertificate(stored)
	cert, err := build(old, reg, ev)
	if err != nil {
		return nil, err
	}
	if old.IsLive() {
		return nil, repository.ErrConflict
	}
	c.s.certificates[oldID] = copyCertificate(old)
	if err := c.s.checkUnique(cert); err != nil {
		c.s.certificates[oldID] = stored
		return nil, err
	}
	c.s.certificates[cert.ID] = copyCertificate(cert)
	return cert, nil
}

func (c *Certificates) Update(_ context.Context, id string, mutate func(cert *model.Certificate) error) (*model.Certificate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	stored, ok := c.s.certificates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cert := copyCertificate(stored)
	if err := mutate(cert); err != nil {
		return nil, err
	}
	c.s.certificates[id] = copyCertificate(cert)
	return cert, nil
}

func (c *Certificates) GetByID(_ context.Context, id string) (*model.Certificate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cert, ok := c.s.certificates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCertificate(cert), nil
}

func (c *Certificates) GetByCode(_ context.Context, code string) (*model.Certificate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, cert := range c.s.certificates {
		if cert.CertificateCode == code {
			return copyCertificate(cert), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (c *Certificates) GetLive(_ context.Context, registrationID string) (*model.Certificate, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cert := c.s.liveCertificate(registrationID)
	if cert == nil {
		return nil, repository.ErrNotFound
	}
	return cert, nil
}

// The helpers below expect s.mu to be held.

func (s *Store) eventRegistrations(eventID string) []model.Registration {
	var regs []model.Registration
	for _, reg := range s.registrations {
		if reg.EventID == eventID {
			regs = append(regs, *reg)
		}
	}
	return regs
}

func (s *Store) sortedRegistrations() []model.Registration {
	regs := make([]model.Registration, 0, len(s.registrations))
	for _, reg := range s.registrations {
		regs = append(regs, *copyRegistration(reg))
	}
	slices.SortFunc(regs, func(a, b model.Registration) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return regs
}

func (s *Store) registrationWithEvent(id string) (*model.Registration, *model.Event, error) {
	reg, ok := s.registrations[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	ev, ok := s.events[reg.EventID]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	return copyRegistration(reg), copyEvent(ev), nil
}

func (s *Store) liveCertificate(registrationID string) *model.Certificate {
	for _, cert := range s.certificates {
		if cert.RegistrationID == registrationID && cert.IsLive() {
			return copyCertificate(cert)
		}
	}
	return nil
}

// checkUnique mirrors the unique code column and the partial unique index on
// live certificates.
func (s *Store) checkUnique(cert *model.Certificate) error {
	for _, existing := range s.certificates {
		if existing.CertificateCode == cert.CertificateCode {
			return repository.ErrConflict
		}
		if cert.IsLive() && existing.IsLive() && existing.RegistrationID == cert.RegistrationID {
			return repository.ErrConflict
		}
	}
	return nil
}

func copyEvent(ev *model.Event) *model.Event {
	c := *ev
	c.SpeakerIDs = slices.Clone(ev.SpeakerIDs)
	c.Signatories = slices.Clone(ev.Signatories)
	c.RegistrationDeadline = clonePtr(ev.RegistrationDeadline)
	c.CancelledAt = clonePtr(ev.CancelledAt)
	return &c
}

func copyRegistration(reg *model.Registration) *model.Registration {
	c := *reg
	c.RegisteredByID = clonePtr(reg.RegisteredByID)
	c.AttendedAt = clonePtr(reg.AttendedAt)
	c.CancelledAt = clonePtr(reg.CancelledAt)
	return &c
}

func copyCertificate(cert *model.Certificate) *model.Certificate {
	c := *cert
	c.IssuedAt = clonePtr(cert.IssuedAt)
	c.RevokedAt = clonePtr(cert.RevokedAt)
	c.SupersededByID = clonePtr(cert.SupersededByID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
