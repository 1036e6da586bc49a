package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/notify"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
)

// GenerateResult is a freshly generated certificate plus any non-blocking
// warnings the caller must surface.
type GenerateResult struct {
	Certificate *model.Certificate `json:"certificate"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// CertificateService manages the certificate lifecycle. Rendering the
// certificate into a document happens elsewhere.
type CertificateService struct {
	events        EventStore
	registrations RegistrationStore
	certificates  CertificateStore
	verified      *lru.Cache[string, model.Certificate]

	// mu guards gen, which counts cache invalidations. A lookup only caches
	// its result when no invalidation happened while it read the store.
	mu  sync.Mutex
	gen uint64

	options
}

// NewCertificateService constructs a CertificateService. cacheSize bounds the
// number of verification lookups kept in memory.
func NewCertificateService(
	events EventStore,
	registrations RegistrationStore,
	certificates CertificateStore,
	cacheSize int,
	opts ...Option,
) (*CertificateService, error) {
	cache, err := lru.New[string, model.Certificate](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("verification cache: %w", err)
	}
	return &CertificateService{
		events:        events,
		registrations: registrations,
		certificates:  certificates,
		verified:      cache,
		options:       newOptions(opts),
	}, nil
}

// Eligibility reports whether a certificate may be generated for the
// registration right now.
func (s *CertificateService) Eligibility(ctx context.Context, registrationID string) (lifecycle.Eligibility, error) {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return lifecycle.Eligibility{}, storeErr("get registration", err)
	}
	ev, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return lifecycle.Eligibility{}, storeErr("get event", err)
	}
	live, err := s.certificates.GetLive(ctx, registrationID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return lifecycle.Eligibility{}, storeErr("get certificate", err)
	}
	return lifecycle.CanGenerate(reg, ev, live), nil
}

// Generate creates the certificate for an attended registration, issuing it
// straight away when req asks for it.
func (s *CertificateService) Generate(ctx context.Context, registrationID string, req model.GenerateCertificateRequest) (*GenerateResult, error) {
	var warnings []string
	cert, err := s.certificates.Create(ctx, registrationID,
		func(reg *model.Registration, ev *model.Event, live *model.Certificate) (*model.Certificate, error) {
			e, err := lifecycle.CheckGenerate(reg, ev, live)
			if err != nil {
				return nil, err
			}
			warnings = e.Warnings
			return lifecycle.NewCertificate(reg, ev, req.IssueImmediately, s.now()), nil
		})
	s.metrics.observe("certificate", "generate", false, err)
	if err != nil {
		return nil, storeErr("create certificate", err)
	}
	s.logger.InfoContext(ctx, "certificate generated",
		"certificate_id", cert.ID, "registration_id", registrationID, "status", cert.Status, "warnings", warnings)
	s.notifyIssued(cert)
	return &GenerateResult{Certificate: cert, Warnings: warnings}, nil
}

// Issue moves a PENDING certificate to ISSUED.
func (s *CertificateService) Issue(ctx context.Context, id string) (*model.Certificate, error) {
	noop := false
	cert, err := s.certificates.Update(ctx, id, func(cert *model.Certificate) error {
		var err error
		if noop, err = lifecycle.DecideIssue(cert); err != nil || noop {
			return err
		}
		lifecycle.Issue(cert, s.now())
		return nil
	})
	s.metrics.observe("certificate", "issue", noop, err)
	if err != nil {
		return nil, storeErr("issue certificate", err)
	}
	s.invalidate(cert.CertificateCode)
	s.logger.InfoContext(ctx, "certificate issued", "certificate_id", id, "noop", noop)
	if !noop {
		s.notifyIssued(cert)
	}
	return cert, nil
}

// Revoke permanently revokes an issued certificate. reason is mandatory and
// kept for audit. Every successful call is a distinct audit event; repeating
// it on a revoked certificate fails.
func (s *CertificateService) Revoke(ctx context.Context, id, reason string) (*model.Certificate, error) {
	cert, err := s.certificates.Update(ctx, id, func(cert *model.Certificate) error {
		trimmed, err := lifecycle.DecideRevoke(cert, reason)
		if err != nil {
			return err
		}
		lifecycle.Revoke(cert, trimmed, s.now())
		return nil
	})
	s.metrics.observe("certificate", "revoke", false, err)
	if err != nil {
		return nil, storeErr("revoke certificate", err)
	}
	s.invalidate(cert.CertificateCode)
	s.logger.WarnContext(ctx, "certificate revoked",
		"certificate_id", id, "registration_id", cert.RegistrationID, "reason", cert.RevokedReason)
	s.dispatch(notify.Message{
		Kind:    notify.KindCertificateRevoked,
		To:      cert.RecipientEmail,
		Subject: fmt.Sprintf("Your certificate for %s was revoked", cert.Title),
		Data:    map[string]string{"certificate_id": cert.ID, "reason": cert.RevokedReason},
	})
	return cert, nil
}

// Regenerate replaces a live certificate with a fresh one in a single store
// operation. The old certificate is retired as superseded; the new one is
// issued immediately when the old one had been issued.
func (s *CertificateService) Regenerate(ctx context.Context, id string) (*model.Certificate, error) {
	var oldCode string
	cert, err := s.certificates.Replace(ctx, id,
		func(old *model.Certificate, reg *model.Registration, ev *model.Event) (*model.Certificate, error) {
			if err := lifecycle.DecideRegenerate(old, reg); err != nil {
				return nil, err
			}
			now := s.now()
			next := lifecycle.NewCertificate(reg, ev, old.Status == model.CertificateIssued, now)
			lifecycle.Supersede(old, next.ID, now)
			oldCode = old.CertificateCode
			return next, nil
		})
	s.metrics.observe("certificate", "regenerate", false, err)
	if err != nil {
		return nil, storeErr("regenerate certificate", err)
	}
	s.invalidate(oldCode)
	s.logger.InfoContext(ctx, "certificate regenerated",
		"old_certificate_id", id, "certificate_id", cert.ID, "registration_id", cert.RegistrationID)
	s.notifyIssued(cert)
	return cert, nil
}

// RecordDownload counts a download of an issued certificate.
func (s *CertificateService) RecordDownload(ctx context.Context, id string) (*model.Certificate, error) {
	cert, err := s.certificates.Update(ctx, id, func(cert *model.Certificate) error {
		if err := lifecycle.DecideDownload(cert); err != nil {
			return err
		}
		cert.DownloadCount++
		return nil
	})
	s.metrics.observe("certificate", "download", false, err)
	if err != nil {
		return nil, storeErr("record download", err)
	}
	s.invalidate(cert.CertificateCode)
	return cert, nil
}

// Verify answers a public lookup by certificate code. Unknown codes are not
// an error; they are simply not valid.
func (s *CertificateService) Verify(ctx context.Context, code string) (model.VerificationResult, error) {
	if cert, ok := s.verified.Get(code); ok {
		return verification(&cert), nil
	}
	s.mu.Lock()
	start := s.gen
	s.mu.Unlock()

	cert, err := s.certificates.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.VerificationResult{Valid: false}, nil
		}
		return model.VerificationResult{}, storeErr("get certificate", err)
	}

	s.mu.Lock()
	if s.gen == start {
		s.verified.Add(code, *cert)
	}
	s.mu.Unlock()
	return verification(cert), nil
}

// invalidate drops code from the verification cache and fences off lookups
// that started before the change was committed.
func (s *CertificateService) invalidate(code string) {
	s.mu.Lock()
	s.gen++
	s.verified.Remove(code)
	s.mu.Unlock()
}

func verification(cert *model.Certificate) model.VerificationResult {
	return model.VerificationResult{Valid: cert.Status == model.CertificateIssued, Certificate: cert}
}

func (s *CertificateService) notifyIssued(cert *model.Certificate) {
	if cert.Status != model.CertificateIssued {
		return
	}
	s.dispatch(notify.Message{
		Kind:    notify.KindCertificateIssued,
		To:      cert.RecipientEmail,
		Subject: fmt.Sprintf("Your CME certificate for %s", cert.Title),
		Data:    map[string]string{"certificate_id": cert.ID, "code": cert.CertificateCode},
	})
}
