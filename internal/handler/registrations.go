package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

// actionGrants maps registration actions onto the permission that guards them.
var actionGrants = map[lifecycle.Action]string{
	lifecycle.ActionConfirm:  access.RegConfirm,
	lifecycle.ActionPromote:  access.RegPromote,
	lifecycle.ActionAttend:   access.RegAttend,
	lifecycle.ActionCancel:   access.RegCancel,
	lifecycle.ActionMarkPaid: access.RegPayment,
	lifecycle.ActionMarkFree: access.RegPayment,
}

// Register handles POST /events/{id}/registrations
// Staff registrations record the staff member as RegisteredByID.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.RegCreate) {
		return
	}
	var req model.CreateRegistrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AutoConfirm && !h.allow(w, r, access.RegConfirm) {
		return
	}

	var registeredBy *string
	if p := access.PrincipalFrom(r.Context()); p.Role != access.RolePublic && p.UserID != "" {
		registeredBy = &p.UserID
	}

	reg, err := h.svc.Registrations.Register(r.Context(), chi.URLParam(r, "id"), req, registeredBy)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /events/{id}/registrations
// Optional query filters: status, payment_status, email.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.RegRead) {
		return
	}
	q := r.URL.Query()
	filter := model.RegistrationFilter{
		EventID:       chi.URLParam(r, "id"),
		Status:        model.RegistrationStatus(strings.ToUpper(q.Get("status"))),
		PaymentStatus: model.PaymentStatus(strings.ToUpper(q.Get("payment_status"))),
		Email:         q.Get("email"),
	}
	var problems []string
	if filter.Status != "" && !slices.Contains(model.RegistrationStatuses, filter.Status) {
		problems = append(problems, "unknown status "+string(filter.Status))
	}
	if filter.PaymentStatus != "" && !slices.Contains(model.PaymentStatuses, filter.PaymentStatus) {
		problems = append(problems, "unknown payment_status "+string(filter.PaymentStatus))
	}
	if len(problems) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", problems...)
		return
	}

	regs, err := h.svc.Registrations.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// GetRegistration handles GET /registrations/{id}
// The returned actions are those both the state machine and the caller's
// role allow.
func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.RegRead) {
		return
	}
	view, err := h.svc.Registrations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	permitted := make([]string, 0, len(view.Actions))
	for _, a := range view.Actions {
		if h.authz.Can(r.Context(), actionGrants[lifecycle.Action(a)]) {
			permitted = append(permitted, a)
		}
	}
	view.Actions = permitted
	view.CertificateOffered = view.CertificateOffered && h.authz.Can(r.Context(), access.CertGenerate)
	writeJSON(w, http.StatusOK, view)
}

// Transition returns the handler for POST /registrations/{id}/<action>.
func (h *Handler) Transition(action lifecycle.Action) http.HandlerFunc {
	grant := actionGrants[action]
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.allow(w, r, grant) {
			return
		}
		reg, err := h.svc.Registrations.Transition(r.Context(), chi.URLParam(r, "id"), action)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}

// PaymentEvent handles POST /registrations/{id}/payment-events
// It records REFUNDED or FAILED as reported by the payment gateway.
func (h *Handler) PaymentEvent(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, access.RegGateway) {
		return
	}
	var req model.GatewayPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reg, err := h.svc.Registrations.ApplyGatewayPayment(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}
