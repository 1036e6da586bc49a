package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

// CertificateEligibility handles GET /registrations/{id}/certificate-eligibility
func (h *Handler) CertificateEligibility(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.RegRead) {
		return
	}
	e, err := h.svc.Certificates.Eligibility(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GenerateCertificate handles POST /registrations/{id}/certificates
// An empty body generates a PENDING certificate.
func (h *Handler) GenerateCertificate(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.CertGenerate) {
		return
	}
	var req model.GenerateCertificateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Certificates.Generate(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// IssueCertificate handles POST /certificates/{id}/issue
func (h *Handler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.CertIssue) {
		return
	}
	cert, err := h.svc.Certificates.Issue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

// RevokeCertificate handles POST /certificates/{id}/revoke
// The reason is checked by the service so a blank one is reported alongside
// the other revocation rules.
func (h *Handler) RevokeCertificate(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.CertRevoke) {
		return
	}
	var req model.RevokeCertificateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cert, err := h.svc.Certificates.Revoke(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

// RegenerateCertificate handles POST /certificates/{id}/regenerate
func (h *Handler) RegenerateCertificate(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.CertRegen) {
		return
	}
	cert, err := h.svc.Certificates.Regenerate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}

// DownloadCertificate handles POST /certificates/{id}/download
func (h *Handler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.CertDownload) {
		return
	}
	cert, err := h.svc.Certificates.RecordDownload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

// VerifyCertificate handles GET /certificates/verify/{code}
// Unknown codes answer 200 with valid=false.
func (h *Handler) VerifyCertificate(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.CertVerify) {
		return
	}
	res, err := h.svc.Certificates.Verify(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
