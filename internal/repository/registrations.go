package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

var registrationColumns = []any{
	"id", "event_id", "name", "email", "status", "payment_status", "amount_cents",
	"registered_by_id", "attended_at", "cancelled_at", "created_at", "updated_at",
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts reg after decide has set its initial state.
//
// Every write that can change an event's occupancy starts with
// SELECT ... FOR UPDATE on the event row, so the occupancy handed to decide
// stays exact until this transaction commits.
func (r *RegistrationRepository) Create(
	ctx context.Context,
	reg *model.Registration,
	decide func(ev *model.Event, occ model.Occupancy) error,
) error {
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		ev, err := getEvent(ctx, tx, reg.EventID, true)
		if err != nil {
			return err
		}

		row, err := queryRow(ctx, tx, dialect.From(tableRegistrations).
			Select(goqu.COUNT(goqu.Star())).
			Where(goqu.C("event_id").Eq(reg.EventID), goqu.C("email").Eq(reg.Email)).
			Prepared(true))
		if err != nil {
			return err
		}
		var dupCount int
		if err := row.Scan(&dupCount); err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if dupCount > 0 {
			return ErrAlreadyRegistered
		}

		occ, err := occupancy(ctx, tx, reg.EventID, nil)
		if err != nil {
			return err
		}
		if err := decide(ev, occ); err != nil {
			return err
		}

		rec := registrationRecord(reg)
		rec["id"] = reg.ID
		rec["event_id"] = reg.EventID
		rec["email"] = reg.Email
		rec["created_at"] = reg.CreatedAt
		if _, err := exec(ctx, tx, dialect.Insert(tableRegistrations).Rows(rec).Prepared(true)); err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == constraintRegistrationEmail {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
	return err
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	return getRegistration(ctx, r.db, id, false)
}

// List returns registrations matching filter in creation order.
func (r *RegistrationRepository) List(ctx context.Context, filter model.RegistrationFilter) ([]model.Registration, error) {
	query, args, err := toSQL(listRegistrationsQuery(filter))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Update applies mutate to the registration while holding locks on both the
// owning event and the registration, with occupancy computed inside the same
// transaction. Nothing is written when mutate returns an error.
func (r *RegistrationRepository) Update(
	ctx context.Context,
	id string,
	mutate func(reg *model.Registration, ev *model.Event, occ model.Occupancy) error,
) (*model.Registration, error) {
	var updated *model.Registration
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		// Lock order is event, then registration, matching Create.
		current, err := getRegistration(ctx, tx, id, false)
		if err != nil {
			return err
		}
		ev, err := getEvent(ctx, tx, current.EventID, true)
		if err != nil {
			return err
		}
		reg, err := getRegistration(ctx, tx, id, true)
		if err != nil {
			return err
		}
		occ, err := occupancy(ctx, tx, reg.EventID, reg)
		if err != nil {
			return err
		}
		if err := mutate(reg, ev, occ); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, dialect.Update(tableRegistrations).
			Set(registrationRecord(reg)).
			Where(goqu.C("id").Eq(id)).
			Prepared(true)); err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func listRegistrationsQuery(filter model.RegistrationFilter) *goqu.SelectDataset {
	ds := dialect.From(tableRegistrations).
		Select(registrationColumns...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true)
	var where []exp.Expression
	if filter.EventID != "" {
		where = append(where, goqu.C("event_id").Eq(filter.EventID))
	}
	if filter.Status != "" {
		where = append(where, goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.PaymentStatus != "" {
		where = append(where, goqu.C("payment_status").Eq(string(filter.PaymentStatus)))
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		where = append(where, goqu.C("email").ILike("%"+email+"%"))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	return ds
}

// occupancyQuery counts confirmed seats and the PENDING and WAITLIST
// registrations queued ahead of self. A nil self counts every one of them.
func occupancyQuery(eventID string, self *model.Registration) *goqu.SelectDataset {
	return dialect.From(tableRegistrations).
		Select(
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(model.RegistrationConfirmed)),
			queuedAhead(model.RegistrationPending, self),
			queuedAhead(model.RegistrationWaitlist, self),
		).
		Where(goqu.C("event_id").Eq(eventID)).
		Prepared(true)
}

func queuedAhead(status model.RegistrationStatus, self *model.Registration) exp.LiteralExpression {
	if self == nil {
		return goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(status))
	}
	return goqu.L(
		"COUNT(*) FILTER (WHERE status = ? AND id <> ? AND (created_at < ? OR (created_at = ? AND id < ?)))",
		string(status), self.ID, self.CreatedAt, self.CreatedAt, self.ID,
	)
}

func occupancy(ctx context.Context, q querier, eventID string, self *model.Registration) (model.Occupancy, error) {
	row, err := queryRow(ctx, q, occupancyQuery(eventID, self))
	if err != nil {
		return model.Occupancy{}, err
	}
	var occ model.Occupancy
	if err := row.Scan(&occ.Confirmed, &occ.PendingAhead, &occ.WaitlistAhead); err != nil {
		return model.Occupancy{}, fmt.Errorf("count occupancy: %w", err)
	}
	return occ, nil
}

func getRegistration(ctx context.Context, q querier, id string, lock bool) (*model.Registration, error) {
	ds := dialect.From(tableRegistrations).
		Select(registrationColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true)
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}
	row, err := queryRow(ctx, q, ds)
	if err != nil {
		return nil, err
	}
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// registrationRecord returns the mutable columns of reg.
func registrationRecord(reg *model.Registration) goqu.Record {
	return goqu.Record{
		"name":             reg.Name,
		"status":           string(reg.Status),
		"payment_status":   string(reg.PaymentStatus),
		"amount_cents":     reg.AmountCents,
		"registered_by_id": nullString(reg.RegisteredByID),
		"attended_at":      nullTime(reg.AttendedAt),
		"cancelled_at":     nullTime(reg.CancelledAt),
		"updated_at":       reg.UpdatedAt,
	}
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg           model.Registration
		status        string
		paymentStatus string
		attendedAt    *time.Time
		cancelledAt   *time.Time
	)
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &status, &paymentStatus, &reg.AmountCents,
		&reg.RegisteredByID, &attendedAt, &cancelledAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatus(status)
	reg.PaymentStatus = model.PaymentStatus(paymentStatus)
	reg.AttendedAt = utcPtr(attendedAt)
	reg.CancelledAt = utcPtr(cancelledAt)
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()
	return &reg, nil
}
