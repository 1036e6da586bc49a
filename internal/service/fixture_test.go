package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/notify"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository/memstore"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/service"
)

var (
	eventDay  = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	beforeDay = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	duringDay = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	afterDay  = time.Date(2026, 6, 11, 12, 0, 0, 0, time.UTC)
)

// clock is a settable time source shared by every service in a fixture.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSender collects notifications and can be told to fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
	got  chan notify.Message
}

func newRecordingSender(err error) *recordingSender {
	return &recordingSender{err: err, got: make(chan notify.Message, 64)}
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	select {
	case s.got <- msg:
	default:
	}
	return s.err
}

func (s *recordingSender) wait(t *testing.T, kind string) notify.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-s.got:
			if msg.Kind == kind {
				return msg
			}
		case <-timeout:
			t.Fatalf("no %s notification", kind)
			return notify.Message{}
		}
	}
}

type fixture struct {
	clock    *clock
	store    *memstore.Store
	registry *prometheus.Registry
	sender   *recordingSender
	events   *service.EventService
	regs     *service.RegistrationService
	certs    *service.CertificateService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithSender(t, newRecordingSender(nil))
}

func newFixtureWithSender(t *testing.T, sender *recordingSender) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &clock{now: beforeDay},
		store:    memstore.New(),
		registry: prometheus.NewRegistry(),
		sender:   sender,
	}
	metrics, err := service.NewMetrics(f.registry)
	require.NoError(t, err)

	opts := []service.Option{
		service.WithClock(f.clock.Now),
		service.WithMetrics(metrics),
		service.WithNotifier(sender, time.Second),
	}
	f.events = service.NewEventService(f.store.Events(), f.store.Registrations(), opts...)
	f.regs = service.NewRegistrationService(f.store.Events(), f.store.Registrations(), opts...)
	f.certs, err = service.NewCertificateService(f.store.Events(), f.store.Registrations(), f.store.Certificates(), 16, opts...)
	require.NoError(t, err)
	return f
}

func validEventRequest(capacity int) model.CreateEventRequest {
	return model.CreateEventRequest{
		Title:        "Cardiology Update 2026",
		Description:  "Annual review of cardiology guidelines.",
		Location:     "Hall A",
		Organizer:    "CME Office",
		ContactEmail: "cme@example.org",
		ContactPhone: "+1 555 0100",
		PriceCents:   15000,
		Capacity:     capacity,
		StartDate:    eventDay,
		EndDate:      eventDay,
		StartTime:    "09:00",
		EndTime:      "17:00",
		SpeakerIDs:   []string{"spk-1"},
		Signatories:  []model.Signatory{{Name: "Dr. Ada Lane", Title: "Program Director"}},
		CMECredits:   6,
	}
}

// publishedEvent creates and publishes an event of the given capacity.
func (f *fixture) publishedEvent(t *testing.T, capacity int) *model.Event {
	t.Helper()
	return f.publish(t, validEventRequest(capacity))
}

func (f *fixture) publish(t *testing.T, req model.CreateEventRequest) *model.Event {
	t.Helper()
	ctx := context.Background()
	ev, err := f.events.CreateEvent(ctx, req)
	require.NoError(t, err)
	ev, err = f.events.PublishEvent(ctx, ev.ID)
	require.NoError(t, err)
	return ev
}

// register creates a PENDING registration one second after the previous one,
// so creation order is unambiguous.
func (f *fixture) register(t *testing.T, eventID, name string) *model.Registration {
	t.Helper()
	f.clock.Advance(time.Second)
	reg, err := f.regs.Register(context.Background(), eventID, model.CreateRegistrationRequest{
		Name:  name,
		Email: name + "@example.org",
	}, nil)
	require.NoError(t, err)
	return reg
}

func (f *fixture) transition(t *testing.T, id string, action lifecycle.Action) *model.Registration {
	t.Helper()
	reg, err := f.regs.Transition(context.Background(), id, action)
	require.NoError(t, err)
	return reg
}

// attended registers name for a fresh event and walks it to ATTENDED.
func (f *fixture) attended(t *testing.T, req model.CreateEventRequest) (*model.Event, *model.Registration) {
	t.Helper()
	ev := f.publish(t, req)
	reg := f.register(t, ev.ID, "grace")
	f.transition(t, reg.ID, lifecycle.ActionConfirm)
	return ev, f.transition(t, reg.ID, lifecycle.ActionAttend)
}

func (f *fixture) confirmedCount(t *testing.T, eventID string) int {
	t.Helper()
	regs, err := f.regs.List(context.Background(), model.RegistrationFilter{EventID: eventID, Status: model.RegistrationConfirmed})
	require.NoError(t, err)
	return len(regs)
}
