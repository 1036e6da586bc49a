package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

func Test_ListRegistrationsQuery_NoFilter(t *testing.T) {
	query, args, err := listRegistrationsQuery(model.RegistrationFilter{}).ToSQL()

	require.NoError(t, err)
	assert.Empty(t, args)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, `FROM "registrations"`)
	assert.Contains(t, query, `ORDER BY "created_at" ASC, "id" ASC`)
}

func Test_ListRegistrationsQuery_AllFilters(t *testing.T) {
	query, args, err := listRegistrationsQuery(model.RegistrationFilter{
		EventID:       "ev-1",
		Status:        model.RegistrationConfirmed,
		PaymentStatus: model.PaymentPaid,
		Email:         " bob ",
	}).ToSQL()

	require.NoError(t, err)
	assert.Contains(t, query, `"event_id" = $1`)
	assert.Contains(t, query, `"status" = $2`)
	assert.Contains(t, query, `"payment_status" = $3`)
	assert.Contains(t, query, `"email" ILIKE $4`)
	assert.Equal(t, []any{"ev-1", "CONFIRMED", "PAID", "%bob%"}, args)
}

func Test_OccupancyQuery(t *testing.T) {
	t.Run("all_queued_counted", func(t *testing.T) {
		query, args, err := occupancyQuery("ev-1", nil).ToSQL()

		require.NoError(t, err)
		assert.Contains(t, query, "COUNT(*) FILTER (WHERE status = $1)")
		assert.Contains(t, query, "COUNT(*) FILTER (WHERE status = $2)")
		assert.Contains(t, query, "COUNT(*) FILTER (WHERE status = $3)")
		assert.Contains(t, query, `"event_id" = $4`)
		assert.Equal(t, []any{"CONFIRMED", "PENDING", "WAITLIST", "ev-1"}, args)
	})

	t.Run("queued_ahead_of_self", func(t *testing.T) {
		created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		self := &model.Registration{ID: "r-9", CreatedAt: created}

		query, args, err := occupancyQuery("ev-1", self).ToSQL()

		require.NoError(t, err)
		assert.Contains(t, query, "status = $2 AND id <> $3 AND (created_at < $4 OR (created_at = $5 AND id < $6))")
		assert.Contains(t, query, "status = $7 AND id <> $8 AND (created_at < $9 OR (created_at = $10 AND id < $11))")
		assert.Contains(t, query, `"event_id" = $12`)
		require.Len(t, args, 12)
		assert.Equal(t, "CONFIRMED", args[0])
		assert.Equal(t, "PENDING", args[1])
		assert.Equal(t, "r-9", args[2])
		assert.Equal(t, "WAITLIST", args[6])
		assert.Equal(t, "r-9", args[7])
		assert.Equal(t, "ev-1", args[11])
	})
}

func Test_UTCPtr(t *testing.T) {
	local := time.Date(2026, 6, 9, 17, 0, 0, 0, time.FixedZone("PDT", -7*60*60))

	got := utcPtr(&local)

	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), *got)
	assert.Nil(t, utcPtr(nil))
}

func Test_EventRecord_EncodesCollectionsAsJSON(t *testing.T) {
	rec, err := eventRecord(&model.Event{
		Signatories: []model.Signatory{{Name: "Dr. Ada Lane", Title: "Program Director"}},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(rec["speaker_ids"].([]byte)))
	assert.JSONEq(t, `[{"name":"Dr. Ada Lane","title":"Program Director"}]`, string(rec["signatories"].([]byte)))
	assert.Nil(t, rec["registration_deadline"])
	assert.Nil(t, rec["cancelled_at"])
	assert.NotContains(t, rec, "id")
	assert.NotContains(t, rec, "created_at")
}

func Test_RegistrationRecord_Nullables(t *testing.T) {
	staff := "staff-1"
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

	rec := registrationRecord(&model.Registration{
		Status:         model.RegistrationAttended,
		PaymentStatus:  model.PaymentFree,
		RegisteredByID: &staff,
		AttendedAt:     &now,
	})

	assert.Equal(t, "ATTENDED", rec["status"])
	assert.Equal(t, "FREE", rec["payment_status"])
	assert.Equal(t, "staff-1", rec["registered_by_id"])
	assert.Equal(t, now, rec["attended_at"])
	assert.Nil(t, rec["cancelled_at"])
}

func Test_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintRegistrationEmail}

	constraint, ok := uniqueViolation(fmt.Errorf("insert: %w", pgErr))
	assert.True(t, ok)
	assert.Equal(t, constraintRegistrationEmail, constraint)

	_, ok = uniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
	_, ok = uniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func Test_NotFound(t *testing.T) {
	assert.True(t, notFound(pgx.ErrNoRows))
	assert.True(t, notFound(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, notFound(errors.New("boom")))
}
