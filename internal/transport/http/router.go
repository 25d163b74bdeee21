package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pakngate/pkg/platform/middleware/metadata"
	"pakngate/pkg/platform/middleware/requesttime"
	"pakngate/pkg/requestcontext"
)

// NewRouter wires the public disclosure endpoints plus health and metrics.
func NewRouter(h *DisclosureHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(propagateRequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/pakn", func(r chi.Router) {
		r.Post("/lookup", h.handleLookup)
		r.Route("/challenges/{challengeID}", func(r chi.Router) {
			r.Get("/", h.handleChallenge)
			r.Delete("/", h.handleClose)
			r.Post("/verify", h.handleVerify)
			r.Post("/resend", h.handleResend)
			r.Get("/case", h.handleCase)
		})
	})
	return r
}

// propagateRequestID copies chi's request ID into the transport-agnostic
// context accessors so services and audit don't import chi.
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(requestcontext.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
