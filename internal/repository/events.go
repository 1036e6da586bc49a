package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

var eventColumns = []any{
	"id", "title", "description", "location", "is_virtual", "organizer",
	"contact_email", "contact_phone", "price_cents", "capacity",
	"start_date", "end_date", "start_time", "end_time", "registration_deadline",
	"speaker_ids", "signatories", "cme_credits", "is_published", "cancelled_at",
	"created_at", "updated_at",
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts ev.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	rec, err := eventRecord(ev)
	if err != nil {
		return err
	}
	rec["id"] = ev.ID
	rec["created_at"] = ev.CreatedAt
	if _, err := exec(ctx, r.db, dialect.Insert(tableEvents).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by start date, soonest first.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	query, args, err := toSQL(dialect.From(tableEvents).
		Select(eventColumns...).
		Order(goqu.C("start_date").Asc(), goqu.C("created_at").Asc()).
		Prepared(true))
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return getEvent(ctx, r.db, id, false)
}

// Update applies mutate to the event under a row lock and persists the result.
// The occupancy is counted after the lock is taken, so no registration write
// can change it before this transaction ends. Nothing is written when mutate
// returns an error.
func (r *EventRepository) Update(
	ctx context.Context,
	id string,
	mutate func(ev *model.Event, occ model.Occupancy) error,
) (*model.Event, error) {
	var updated *model.Event
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		ev, err := getEvent(ctx, tx, id, true)
		if err != nil {
			return err
		}
		occ, err := occupancy(ctx, tx, id, nil)
		if err != nil {
			return err
		}
		if err := mutate(ev, occ); err != nil {
			return err
		}
		rec, err := eventRecord(ev)
		if err != nil {
			return err
		}
		if _, err := exec(ctx, tx, dialect.Update(tableEvents).
			Set(rec).
			Where(goqu.C("id").Eq(id)).
			Prepared(true)); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// getEvent loads one event. With lock set it takes a row-level exclusive lock
// that serialises every capacity-affecting write for the event until the
// surrounding transaction ends.
func getEvent(ctx context.Context, q querier, id string, lock bool) (*model.Event, error) {
	ds := dialect.From(tableEvents).
		Select(eventColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true)
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}
	row, err := queryRow(ctx, q, ds)
	if err != nil {
		return nil, err
	}
	ev, err := scanEvent(row)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// eventRecord returns the mutable columns of ev.
func eventRecord(ev *model.Event) (goqu.Record, error) {
	speakers, err := jsoniter.ConfigFastest.Marshal(nonNil(ev.SpeakerIDs))
	if err != nil {
		return nil, fmt.Errorf("encode speakers: %w", err)
	}
	signatories := ev.Signatories
	if signatories == nil {
		signatories = []model.Signatory{}
	}
	sigs, err := jsoniter.ConfigFastest.Marshal(signatories)
	if err != nil {
		return nil, fmt.Errorf("encode signatories: %w", err)
	}
	return goqu.Record{
		"title":                 ev.Title,
		"description":           ev.Description,
		"location":              ev.Location,
		"is_virtual":            ev.IsVirtual,
		"organizer":             ev.Organizer,
		"contact_email":         ev.ContactEmail,
		"contact_phone":         ev.ContactPhone,
		"price_cents":           ev.PriceCents,
		"capacity":              ev.Capacity,
		"start_date":            ev.StartDate,
		"end_date":              ev.EndDate,
		"start_time":            ev.StartTime,
		"end_time":              ev.EndTime,
		"registration_deadline": nullTime(ev.RegistrationDeadline),
		"speaker_ids":           speakers,
		"signatories":           sigs,
		"cme_credits":           ev.CMECredits,
		"is_published":          ev.IsPublished,
		"cancelled_at":          nullTime(ev.CancelledAt),
		"updated_at":            ev.UpdatedAt,
	}, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		ev          model.Event
		speakers    []byte
		signatories []byte
	)
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Location, &ev.IsVirtual, &ev.Organizer,
		&ev.ContactEmail, &ev.ContactPhone, &ev.PriceCents, &ev.Capacity,
		&ev.StartDate, &ev.EndDate, &ev.StartTime, &ev.EndTime, &ev.RegistrationDeadline,
		&speakers, &signatories, &ev.CMECredits, &ev.IsPublished, &ev.CancelledAt,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// pgx decodes timestamptz into the local zone; event dates are UTC days.
	ev.StartDate = ev.StartDate.UTC()
	ev.EndDate = ev.EndDate.UTC()
	ev.RegistrationDeadline = utcPtr(ev.RegistrationDeadline)
	ev.CancelledAt = utcPtr(ev.CancelledAt)
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	if err := jsoniter.ConfigFastest.Unmarshal(speakers, &ev.SpeakerIDs); err != nil {
		return nil, fmt.Errorf("decode speakers: %w", err)
	}
	if err := jsoniter.ConfigFastest.Unmarshal(signatories, &ev.Signatories); err != nil {
		return nil, fmt.Errorf("decode signatories: %w", err)
	}
	return &ev, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
