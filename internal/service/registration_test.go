package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/notify"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
)

func Test_Register_Defaults(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 10)

	reg, err := f.regs.Register(context.Background(), ev.ID, model.CreateRegistrationRequest{
		Name:  " Ada Lovelace ",
		Email: " Ada@Example.org ",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.RegistrationPending, reg.Status)
	assert.Equal(t, model.PaymentPending, reg.PaymentStatus)
	assert.Equal(t, int64(15000), reg.AmountCents)
	assert.Equal(t, "Ada Lovelace", reg.Name)
	assert.Equal(t, "ada@example.org", reg.Email)
	assert.Nil(t, reg.RegisteredByID)

	msg := f.sender.wait(t, notify.KindRegistrationReceived)
	assert.Equal(t, "ada@example.org", msg.To)
}

func Test_Register_FreeEventAndStaffAttribution(t *testing.T) {
	f := newFixture(t)
	req := validEventRequest(10)
	req.PriceCents = 0
	ev := f.publish(t, req)
	staff := "staff-7"

	reg, err := f.regs.Register(context.Background(), ev.ID, model.CreateRegistrationRequest{
		Name: "Ada", Email: "ada@example.org", AutoConfirm: true,
	}, &staff)

	require.NoError(t, err)
	assert.Equal(t, model.RegistrationConfirmed, reg.Status)
	assert.Equal(t, model.PaymentFree, reg.PaymentStatus)
	assert.Zero(t, reg.AmountCents)
	require.NotNil(t, reg.RegisteredByID)
	assert.Equal(t, "staff-7", *reg.RegisteredByID)
}

func Test_Register_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.publishedEvent(t, 10)
	f.register(t, ev.ID, "ada")

	t.Run("invalid_input", func(t *testing.T) {
		_, err := f.regs.Register(ctx, ev.ID, model.CreateRegistrationRequest{Email: "nope"}, nil)
		var validation *lifecycle.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, []string{"name is required", "email is not a valid email address"}, validation.Messages)
	})

	t.Run("duplicate_email_any_case", func(t *testing.T) {
		_, err := f.regs.Register(ctx, ev.ID, model.CreateRegistrationRequest{Name: "Ada", Email: "ADA@example.org"}, nil)
		assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)
	})

	t.Run("unknown_event", func(t *testing.T) {
		_, err := f.regs.Register(ctx, "missing", model.CreateRegistrationRequest{Name: "Ada", Email: "ada@example.org"}, nil)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("draft_event", func(t *testing.T) {
		draft, err := f.events.CreateEvent(ctx, validEventRequest(10))
		require.NoError(t, err)
		_, err = f.regs.Register(ctx, draft.ID, model.CreateRegistrationRequest{Name: "Ada", Email: "ada@example.org"}, nil)
		var illegal *lifecycle.IllegalTransitionError
		assert.ErrorAs(t, err, &illegal)
	})
}

// Capacity 2; A, B, C registered in that order.
func Test_Transition_CapacityScenario(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 2)
	a := f.register(t, ev.ID, "a")
	b := f.register(t, ev.ID, "b")
	c := f.register(t, ev.ID, "c")

	assert.Equal(t, model.RegistrationConfirmed, f.transition(t, a.ID, lifecycle.ActionConfirm).Status)
	assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
	assert.Equal(t, model.RegistrationConfirmed, f.transition(t, b.ID, lifecycle.ActionConfirm).Status)
	assert.Equal(t, 2, f.confirmedCount(t, ev.ID))
	assert.Equal(t, model.RegistrationWaitlist, f.transition(t, c.ID, lifecycle.ActionConfirm).Status)
	assert.Equal(t, 2, f.confirmedCount(t, ev.ID))

	f.transition(t, a.ID, lifecycle.ActionCancel)
	assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
	assert.Equal(t, model.RegistrationConfirmed, f.transition(t, c.ID, lifecycle.ActionPromote).Status)
	assert.Equal(t, 2, f.confirmedCount(t, ev.ID))
}

func Test_Transition_WaitlistClaimsFreedSeat(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 1)
	a := f.register(t, ev.ID, "a")
	b := f.register(t, ev.ID, "b")

	assert.Equal(t, model.RegistrationConfirmed, f.transition(t, a.ID, lifecycle.ActionConfirm).Status)
	assert.Equal(t, model.RegistrationWaitlist, f.transition(t, b.ID, lifecycle.ActionConfirm).Status)
	f.transition(t, a.ID, lifecycle.ActionCancel)
	assert.Equal(t, 0, f.confirmedCount(t, ev.ID))

	c := f.register(t, ev.ID, "c")
	assert.Equal(t, model.RegistrationWaitlist, f.transition(t, c.ID, lifecycle.ActionConfirm).Status)
	assert.Equal(t, model.RegistrationConfirmed, f.transition(t, b.ID, lifecycle.ActionPromote).Status)
	assert.Equal(t, 1, f.confirmedCount(t, ev.ID))
}

func Test_Transition_PromoteWhenFullFailsWithoutChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.publishedEvent(t, 1)
	a := f.register(t, ev.ID, "a")
	b := f.register(t, ev.ID, "b")
	f.transition(t, b.ID, lifecycle.ActionConfirm) // a is ahead, so b waits
	f.transition(t, a.ID, lifecycle.ActionConfirm)

	_, err := f.regs.Transition(ctx, b.ID, lifecycle.ActionPromote)

	var conflict *lifecycle.CapacityConflictError
	require.ErrorAs(t, err, &conflict)
	view, err := f.regs.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationWaitlist, view.Registration.Status)
}

func Test_Transition_CancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 5)
	reg := f.register(t, ev.ID, "ada")
	f.clock.Set(duringDay)

	first := f.transition(t, reg.ID, lifecycle.ActionCancel)
	second := f.transition(t, reg.ID, lifecycle.ActionCancel)

	assert.Equal(t, model.RegistrationCancelled, first.Status)
	assert.Equal(t, first.CancelledAt, second.CancelledAt)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func Test_Transition_CancelOnCompletedEventIsRejected(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 5)
	reg := f.register(t, ev.ID, "ada")
	f.clock.Set(afterDay)

	_, err := f.regs.Transition(context.Background(), reg.ID, lifecycle.ActionCancel)

	var illegal *lifecycle.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Contains(t, illegal.Error(), "completed")
}

func Test_Transition_AttendedIsTerminal(t *testing.T) {
	f := newFixture(t)
	_, reg := f.attended(t, validEventRequest(5))
	require.NotNil(t, reg.AttendedAt)

	_, err := f.regs.Transition(context.Background(), reg.ID, lifecycle.ActionCancel)

	var illegal *lifecycle.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, string(model.RegistrationAttended), illegal.From)
}

func Test_Transition_Payment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.publishedEvent(t, 5)
	paid := f.register(t, ev.ID, "ada")
	free := f.register(t, ev.ID, "bob")

	got := f.transition(t, paid.ID, lifecycle.ActionMarkPaid)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, int64(15000), got.AmountCents)
	assert.Equal(t, model.RegistrationPending, got.Status)

	got = f.transition(t, free.ID, lifecycle.ActionMarkFree)
	assert.Equal(t, model.PaymentFree, got.PaymentStatus)
	assert.Zero(t, got.AmountCents)

	_, err := f.regs.Transition(ctx, free.ID, lifecycle.ActionMarkPaid)
	var illegal *lifecycle.IllegalTransitionError
	assert.ErrorAs(t, err, &illegal)

	refunded, err := f.regs.ApplyGatewayPayment(ctx, paid.ID, model.PaymentRefunded)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, refunded.PaymentStatus)
}

func Test_Get_ListsAvailableActions(t *testing.T) {
	f := newFixture(t)
	ev := f.publishedEvent(t, 5)
	reg := f.register(t, ev.ID, "ada")

	view, err := f.regs.Get(context.Background(), reg.ID)

	require.NoError(t, err)
	assert.Equal(t, []string{"confirm", "cancel", "mark_paid", "mark_free"}, view.Actions)
	assert.False(t, view.CertificateOffered)
}

func Test_Get_OffersCertificateOnceAttended(t *testing.T) {
	f := newFixture(t)
	_, reg := f.attended(t, validEventRequest(5))

	view, err := f.regs.Get(context.Background(), reg.ID)

	require.NoError(t, err)
	assert.True(t, view.CertificateOffered)
	assert.Equal(t, []string{"mark_paid", "mark_free"}, view.Actions)
}

func Test_List_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.publishedEvent(t, 5)
	a := f.register(t, ev.ID, "ada")
	f.register(t, ev.ID, "bob")
	f.transition(t, a.ID, lifecycle.ActionConfirm)

	all, err := f.regs.List(ctx, model.RegistrationFilter{EventID: ev.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ada@example.org", all[0].Email)

	byEmail, err := f.regs.List(ctx, model.RegistrationFilter{EventID: ev.ID, Email: "BOB"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "bob@example.org", byEmail[0].Email)

	_, err = f.regs.List(ctx, model.RegistrationFilter{EventID: "missing"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func Test_Transition_NotificationFailureDoesNotBlock(t *testing.T) {
	sender := newRecordingSender(errors.New("smtp unavailable"))
	f := newFixtureWithSender(t, sender)
	ev := f.publishedEvent(t, 5)
	reg := f.register(t, ev.ID, "ada")

	got := f.transition(t, reg.ID, lifecycle.ActionConfirm)

	assert.Equal(t, model.RegistrationConfirmed, got.Status)
	sender.wait(t, notify.KindRegistrationConfirmed)
}

func Test_Register_ConcurrentAutoConfirmNeverExceedsCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const capacity, attendees = 5, 40
	ev := f.publishedEvent(t, capacity)

	var wg sync.WaitGroup
	for i := range attendees {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.regs.Register(ctx, ev.ID, model.CreateRegistrationRequest{
				Name:        fmt.Sprintf("attendee %d", i),
				Email:       fmt.Sprintf("attendee%d@example.org", i),
				AutoConfirm: true,
			}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, f.confirmedCount(t, ev.ID))
	waiting, err := f.regs.List(ctx, model.RegistrationFilter{EventID: ev.ID, Status: model.RegistrationWaitlist})
	require.NoError(t, err)
	assert.Len(t, waiting, attendees-capacity)
}

func Test_Transition_ConcurrentPromotionsNeverExceedCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.publishedEvent(t, 3)
	var waitlisted []string
	for i := range 12 {
		reg, err := f.regs.Register(ctx, ev.ID, model.CreateRegistrationRequest{
			Name: "w", Email: fmt.Sprintf("w%d@example.org", i), AutoConfirm: true,
		}, nil)
		require.NoError(t, err)
		if reg.Status == model.RegistrationWaitlist {
			waitlisted = append(waitlisted, reg.ID)
		}
		f.clock.Advance(time.Second)
	}
	confirmed, err := f.regs.List(ctx, model.RegistrationFilter{EventID: ev.ID, Status: model.RegistrationConfirmed})
	require.NoError(t, err)
	f.transition(t, confirmed[0].ID, lifecycle.ActionCancel)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		promoted int
	)
	for _, id := range waitlisted {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.regs.Transition(ctx, id, lifecycle.ActionPromote); err == nil {
				mu.Lock()
				promoted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, promoted)
	assert.Equal(t, 3, f.confirmedCount(t, ev.ID))
}
