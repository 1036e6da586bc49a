package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
)

// NewRouter builds the full HTTP surface. gatherer backs GET /metrics and may
// be nil to leave metrics unexposed.
func NewRouter(svc Services, authz access.Authorizer, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	h := New(svc, authz, logger)
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(h.logger))
	r.Use(CORS)
	r.Use(Identity)

	r.Get("/health", HealthCheck)
	if gatherer != nil {
		metrics := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			if h.allow(w, r, access.MetricsScrape) {
				metrics.ServeHTTP(w, r)
			}
		})
	}

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Patch("/", h.UpdateEvent)
			r.Get("/publish-check", h.PublishCheck)
			r.Post("/publish", h.PublishEvent)
			r.Post("/cancel", h.CancelEvent)
			r.Get("/stats", h.EventStats)
			r.Post("/registrations", h.Register)
			r.Get("/registrations", h.ListRegistrations)
		})
	})

	r.Route("/registrations/{id}", func(r chi.Router) {
		r.Get("/", h.GetRegistration)
		r.Post("/confirm", h.Transition(lifecycle.ActionConfirm))
		r.Post("/promote", h.Transition(lifecycle.ActionPromote))
		r.Post("/attend", h.Transition(lifecycle.ActionAttend))
		r.Post("/cancel", h.Transition(lifecycle.ActionCancel))
		r.Post("/mark-paid", h.Transition(lifecycle.ActionMarkPaid))
		r.Post("/mark-free", h.Transition(lifecycle.ActionMarkFree))
		r.Post("/payment-events", h.PaymentEvent)
		r.Get("/certificate-eligibility", h.CertificateEligibility)
		r.Post("/certificates", h.GenerateCertificate)
	})

	r.Route("/certificates", func(r chi.Router) {
		r.Get("/verify/{code}", h.VerifyCertificate)
		r.Post("/{id}/issue", h.IssueCertificate)
		r.Post("/{id}/revoke", h.RevokeCertificate)
		r.Post("/{id}/regenerate", h.RegenerateCertificate)
		r.Post("/{id}/download", h.DownloadCertificate)
	})

	return r
}
