package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

// Reasons and warnings reported by the certificate gate.
const (
	ReasonNotAttended       = "not attended"
	ReasonCertificateExists = "certificate exists"
	WarningNoSignatories    = "no signatories"

	supersededReason = "superseded"
)

// Eligibility is the certificate gate's answer. Warnings never block.
type Eligibility struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// CanGenerate decides whether a certificate may be created for reg. live is
// the registration's current non-revoked certificate, or nil. The first
// failing rule wins.
func CanGenerate(reg *model.Registration, ev *model.Event, live *model.Certificate) Eligibility {
	if reg.Status != model.RegistrationAttended {
		return Eligibility{Reason: ReasonNotAttended}
	}
	if live != nil && live.IsLive() {
		return Eligibility{Reason: ReasonCertificateExists}
	}
	e := Eligibility{Allowed: true}
	if len(ev.Signatories) == 0 {
		e.Warnings = []string{WarningNoSignatories}
	}
	return e
}

// CanListGenerate reports whether generation should be offered in read-only
// views. A completed event is enough here even though CanGenerate still
// requires the registration itself to be ATTENDED.
func CanListGenerate(reg *model.Registration, ev *model.Event, now time.Time) bool {
	if reg.Status == model.RegistrationCancelled {
		return false
	}
	return reg.Status == model.RegistrationAttended || EventStatus(ev, now) == model.EventCompleted
}

// CheckGenerate is CanGenerate as an error for write paths.
func CheckGenerate(reg *model.Registration, ev *model.Event, live *model.Certificate) (Eligibility, error) {
	e := CanGenerate(reg, ev, live)
	if !e.Allowed {
		return e, illegal("certificate", reg.Status, "generate", e.Reason)
	}
	return e, nil
}

// NewCertificate snapshots reg and ev into a new certificate. When issue is
// set the certificate is ISSUED at now, otherwise it stays PENDING.
func NewCertificate(reg *model.Registration, ev *model.Event, issue bool, now time.Time) *model.Certificate {
	cert := &model.Certificate{
		ID:              uuid.New().String(),
		RegistrationID:  reg.ID,
		EventID:         ev.ID,
		Status:          model.CertificatePending,
		RecipientName:   reg.Name,
		RecipientEmail:  reg.Email,
		Title:           ev.Title,
		Description:     fmt.Sprintf("Certificate of attendance for %s", ev.Title),
		CMECredits:      ev.CMECredits,
		CertificateCode: NewCertificateCode(),
		CreatedAt:       now,
	}
	if issue {
		Issue(cert, now)
	}
	return cert
}

// NewCertificateCode returns a public verification code such as
// CME-3F2A9C01B7D4.
func NewCertificateCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "CME-" + strings.ToUpper(raw[:12])
}

// DecideIssue reports whether cert can move to ISSUED. Issuing an issued
// certificate is a no-op.
func DecideIssue(cert *model.Certificate) (noop bool, err error) {
	switch cert.Status {
	case model.CertificatePending:
		return false, nil
	case model.CertificateIssued:
		return true, nil
	default:
		return false, illegal("certificate", cert.Status, "issue", "revoked certificates are immutable")
	}
}

// Issue marks cert ISSUED at now.
func Issue(cert *model.Certificate, now time.Time) {
	cert.Status = model.CertificateIssued
	cert.IssuedAt = &now
}

// DecideRevoke validates a revocation and returns the trimmed reason. Only
// ISSUED certificates can be revoked and revocation is final.
func DecideRevoke(cert *model.Certificate, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", &ValidationError{Messages: []string{"revocation reason is required"}}
	}
	switch cert.Status {
	case model.CertificateIssued:
		return reason, nil
	case model.CertificateRevoked:
		return "", illegal("certificate", cert.Status, "revoke", "certificate is already revoked")
	default:
		return "", illegal("certificate", cert.Status, "revoke", "only issued certificates can be revoked")
	}
}

// Revoke marks cert REVOKED with reason at now.
func Revoke(cert *model.Certificate, reason string, now time.Time) {
	cert.Status = model.CertificateRevoked
	cert.RevokedAt = &now
	cert.RevokedReason = reason
}

// DecideRegenerate checks that old can be replaced by a fresh certificate
// for reg.
func DecideRegenerate(old *model.Certificate, reg *model.Registration) error {
	if !old.IsLive() {
		return illegal("certificate", old.Status, "regenerate", "revoked certificates are immutable")
	}
	if reg.Status != model.RegistrationAttended {
		return illegal("certificate", reg.Status, "regenerate", ReasonNotAttended)
	}
	return nil
}

// Supersede retires old in favour of the certificate with id replacementID.
func Supersede(old *model.Certificate, replacementID string, now time.Time) {
	Revoke(old, supersededReason, now)
	old.SupersededByID = &replacementID
}

// DecideDownload checks that cert may be handed out as an artifact.
func DecideDownload(cert *model.Certificate) error {
	if cert.Status != model.CertificateIssued {
		return illegal("certificate", cert.Status, "download", "only issued certificates can be downloaded")
	}
	return nil
}
