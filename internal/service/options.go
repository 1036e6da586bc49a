package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/notify"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
)

const defaultNotifyTimeout = 5 * time.Second

// Option configures a service.
type Option func(*options)

type options struct {
	now           func() time.Time
	logger        *slog.Logger
	metrics       *Metrics
	notifier      notify.Sender
	notifyTimeout time.Duration
}

// WithClock replaces the wall clock. Tests use it to pin "now".
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithNotifier sets the notification sender and the per-message timeout.
func WithNotifier(sender notify.Sender, timeout time.Duration) Option {
	return func(o *options) {
		o.notifier = sender
		if timeout > 0 {
			o.notifyTimeout = timeout
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:           func() time.Time { return time.Now().UTC() },
		logger:        slog.New(slog.DiscardHandler),
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// dispatch sends msg in the background. Delivery failures are logged and
// never affect the transition that triggered them.
func (o *options) dispatch(msg notify.Message) {
	if o.notifier == nil || msg.To == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.notifyTimeout)
		defer cancel()
		if err := o.notifier.Send(ctx, msg); err != nil {
			o.logger.Warn("notification failed", "kind", msg.Kind, "to", msg.To, "error", err)
		}
	}()
}

// storeErr passes domain errors through and wraps anything else as a
// collaborator failure.
func storeErr(op string, err error) error {
	if err == nil || isDomainErr(err) {
		return err
	}
	return &lifecycle.CollaboratorError{Op: op, Err: err}
}

func isDomainErr(err error) bool {
	var (
		validation *lifecycle.ValidationError
		illegal    *lifecycle.IllegalTransitionError
		capacity   *lifecycle.CapacityConflictError
	)
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrAlreadyRegistered) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.As(err, &validation) ||
		errors.As(err, &illegal) ||
		errors.As(err, &capacity)
}
