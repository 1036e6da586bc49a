package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

var certificateColumns = []any{
	"id", "registration_id", "event_id", "status", "recipient_name", "recipient_email",
	"title", "description", "cme_credits", "certificate_code", "issued_at", "download_count",
	"revoked_at", "revoked_reason", "superseded_by_id", "created_at",
}

// CertificateRepository handles persistence for certificates. A partial
// unique index on registration_id backs the one-live-certificate rule.
type CertificateRepository struct {
	db *pgxpool.Pool
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create locks the registration, hands build its current live certificate
// (or nil) and inserts whatever build returns.
func (r *CertificateRepository) Create(
	ctx context.Context,
	registrationID string,
	build func(reg *model.Registration, ev *model.Event, live *model.Certificate) (*model.Certificate, error),
) (*model.Certificate, error) {
	var created *model.Certificate
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		reg, ev, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		live, err := liveCertificate(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		cert, err := build(reg, ev, live)
		if err != nil {
			return err
		}
		if err := insertCertificate(ctx, tx, cert); err != nil {
			return err
		}
		created = cert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Replace supersedes the certificate oldID with the one build returns in a
// single transaction. build must retire old; readers never observe zero or two
// live certificates for the registration.
func (r *CertificateRepository) Replace(
	ctx context.Context,
	oldID string,
	build func(old *model.Certificate, reg *model.Registration, ev *model.Event) (*model.Certificate, error),
) (*model.Certificate, error) {
	var created *model.Certificate
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := getCertificate(ctx, tx, goqu.C("id").Eq(oldID), false)
		if err != nil {
			return err
		}
		reg, ev, err := lockRegistration(ctx, tx, current.RegistrationID)
		if err != nil {
			return err
		}
		old, err := getCertificate(ctx, tx, goqu.C("id").Eq(oldID), true)
		if err != nil {
			return err
		}
		cert, err := build(old, reg, ev)
		if err != nil {
			return err
		}
		// The old row goes first so the partial unique index never sees two
		// live rows.
		if err := updateCertificate(ctx, tx, old); err != nil {
			return err
		}
		if err := insertCertificate(ctx, tx, cert); err != nil {
			return err
		}
		created = cert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies mutate to the certificate under a row lock.
func (r *CertificateRepository) Update(
	ctx context.Context,
	id string,
	mutate func(cert *model.Certificate) error,
) (*model.Certificate, error) {
	var updated *model.Certificate
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		cert, err := getCertificate(ctx, tx, goqu.C("id").Eq(id), true)
		if err != nil {
			return err
		}
		if err := mutate(cert); err != nil {
			return err
		}
		if err := updateCertificate(ctx, tx, cert); err != nil {
			return err
		}
		updated = cert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetByID returns a single certificate or ErrNotFound.
func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	return getCertificate(ctx, r.db, goqu.C("id").Eq(id), false)
}

// GetByCode returns the certificate with the given verification code.
func (r *CertificateRepository) GetByCode(ctx context.Context, code string) (*model.Certificate, error) {
	return getCertificate(ctx, r.db, goqu.C("certificate_code").Eq(code), false)
}

// GetLive returns the registration's non-revoked certificate or ErrNotFound.
func (r *CertificateRepository) GetLive(ctx context.Context, registrationID string) (*model.Certificate, error) {
	cert, err := liveCertificate(ctx, r.db, registrationID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, ErrNotFound
	}
	return cert, nil
}

func lockRegistration(ctx context.Context, tx pgx.Tx, id string) (*model.Registration, *model.Event, error) {
	current, err := getRegistration(ctx, tx, id, false)
	if err != nil {
		return nil, nil, err
	}
	ev, err := getEvent(ctx, tx, current.EventID, true)
	if err != nil {
		return nil, nil, err
	}
	reg, err := getRegistration(ctx, tx, id, true)
	if err != nil {
		return nil, nil, err
	}
	return reg, ev, nil
}

func liveCertificate(ctx context.Context, q querier, registrationID string) (*model.Certificate, error) {
	cert, err := getCertificate(ctx, q, goqu.And(
		goqu.C("registration_id").Eq(registrationID),
		goqu.C("status").Neq(string(model.CertificateRevoked)),
	), false)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return cert, err
}

func getCertificate(ctx context.Context, q querier, where exp.Expression, lock bool) (*model.Certificate, error) {
	ds := dialect.From(tableCertificates).
		Select(certificateColumns...).
		Where(where).
		Prepared(true)
	if lock {
		ds = ds.ForUpdate(exp.Wait)
	}
	row, err := queryRow(ctx, q, ds)
	if err != nil {
		return nil, err
	}
	cert, err := scanCertificate(row)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return cert, nil
}

func insertCertificate(ctx context.Context, q querier, cert *model.Certificate) error {
	rec := certificateRecord(cert)
	rec["id"] = cert.ID
	rec["registration_id"] = cert.RegistrationID
	rec["event_id"] = cert.EventID
	rec["recipient_name"] = cert.RecipientName
	rec["recipient_email"] = cert.RecipientEmail
	rec["title"] = cert.Title
	rec["description"] = cert.Description
	rec["cme_credits"] = cert.CMECredits
	rec["certificate_code"] = cert.CertificateCode
	rec["created_at"] = cert.CreatedAt
	if _, err := exec(ctx, q, dialect.Insert(tableCertificates).Rows(rec).Prepared(true)); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func updateCertificate(ctx context.Context, q querier, cert *model.Certificate) error {
	if _, err := exec(ctx, q, dialect.Update(tableCertificates).
		Set(certificateRecord(cert)).
		Where(goqu.C("id").Eq(cert.ID)).
		Prepared(true)); err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	return nil
}

// certificateRecord returns the mutable columns of cert.
func certificateRecord(cert *model.Certificate) goqu.Record {
	return goqu.Record{
		"status":           string(cert.Status),
		"issued_at":        nullTime(cert.IssuedAt),
		"download_count":   cert.DownloadCount,
		"revoked_at":       nullTime(cert.RevokedAt),
		"revoked_reason":   cert.RevokedReason,
		"superseded_by_id": nullString(cert.SupersededByID),
	}
}

func scanCertificate(row pgx.Row) (*model.Certificate, error) {
	var (
		cert   model.Certificate
		status string
	)
	err := row.Scan(
		&cert.ID, &cert.RegistrationID, &cert.EventID, &status, &cert.RecipientName, &cert.RecipientEmail,
		&cert.Title, &cert.Description, &cert.CMECredits, &cert.CertificateCode, &cert.IssuedAt, &cert.DownloadCount,
		&cert.RevokedAt, &cert.RevokedReason, &cert.SupersededByID, &cert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	cert.Status = model.CertificateStatus(status)
	cert.IssuedAt = utcPtr(cert.IssuedAt)
	cert.RevokedAt = utcPtr(cert.RevokedAt)
	cert.CreatedAt = cert.CreatedAt.UTC()
	return &cert, nil
}
