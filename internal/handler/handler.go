// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/repository"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/service"
)

const maxBodyBytes = 1 << 20

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

// Services bundles the business services exposed over HTTP.
type Services struct {
	Events        *service.EventService
	Registrations *service.RegistrationService
	Certificates  *service.CertificateService
}

// Handler holds all HTTP handlers for the conference API.
type Handler struct {
	svc    Services
	authz  access.Authorizer
	logger *slog.Logger
}

// New constructs a Handler.
func New(svc Services, authz access.Authorizer, logger *slog.Logger) *Handler {
	if authz == nil {
		authz = access.RoleAuthorizer{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, authz: authz, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Details: details})
}

// decodeJSON reads a size-limited body into dst and runs its validate tags.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", validationMessages(err)...)
		return false
	}
	return true
}

func validationMessages(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" is not a valid email address")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return msgs
}

// writeServiceError maps service errors onto HTTP responses. Collaborator
// failures are logged and answered with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *lifecycle.ValidationError
		illegal    *lifecycle.IllegalTransitionError
		capacity   *lifecycle.CapacityConflictError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusUnprocessableEntity, "validation failed", validation.Messages...)
	case errors.As(err, &illegal):
		writeError(w, http.StatusConflict, illegal.Error())
	case errors.As(err, &capacity):
		writeError(w, http.StatusConflict, capacity.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "this email is already registered for the event")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "the resource was changed concurrently, retry")
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// allow reports whether the caller may attempt action, answering 403 if not.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, action string) bool {
	if h.authz.Can(r.Context(), action) {
		return true
	}
	writeError(w, http.StatusForbidden, "not allowed to "+action)
	return false
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
