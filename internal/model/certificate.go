package model

import "time"

// CertificateStatus is the lifecycle status of a CME certificate.
type CertificateStatus string

const (
	CertificatePending CertificateStatus = "PENDING"
	CertificateIssued  CertificateStatus = "ISSUED"
	CertificateRevoked CertificateStatus = "REVOKED"
)

// Certificate is the CME certificate record for one registration. Content
// fields are a snapshot taken at generation time.
type Certificate struct {
	ID              string            `json:"id"`
	RegistrationID  string            `json:"registration_id"`
	EventID         string            `json:"event_id"`
	Status          CertificateStatus `json:"status"`
	RecipientName   string            `json:"recipient_name"`
	RecipientEmail  string            `json:"recipient_email"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	CMECredits      float64           `json:"cme_credits"`
	CertificateCode string            `json:"certificate_code"`
	IssuedAt        *time.Time        `json:"issued_at,omitempty"`
	DownloadCount   int               `json:"download_count"`
	RevokedAt       *time.Time        `json:"revoked_at,omitempty"`
	RevokedReason   string            `json:"revoked_reason,omitempty"`
	SupersededByID  *string           `json:"superseded_by_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IsLive reports whether the certificate still counts as the registration's
// certificate.
func (c *Certificate) IsLive() bool {
	return c.Status != CertificateRevoked
}

// GenerateCertificateRequest is the payload for generating a certificate.
type GenerateCertificateRequest struct {
	IssueImmediately bool `json:"issue_immediately"`
}

// RevokeCertificateRequest is the payload for revoking a certificate.
type RevokeCertificateRequest struct {
	Reason string `json:"reason"`
}

// VerificationResult is the public answer to a certificate code lookup.
type VerificationResult struct {
	Valid       bool         `json:"valid"`
	Certificate *Certificate `json:"certificate,omitempty"`
}
