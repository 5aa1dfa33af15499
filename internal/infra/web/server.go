package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"captive-wifi-billing/internal/domain/ports/repository"
	"captive-wifi-billing/internal/infra/logging"
	"captive-wifi-billing/internal/usecase"
)

// traceContext carries chi's request id into the logging context so that
// downstream log lines share a trace_id.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Server wires the portal REST surface, the payment callback webhook, and the
// administrator router operations.
type Server struct {
	payUC     usecase.PaymentUseCase
	pkgUC     usecase.PackageUseCase
	actUC     usecase.ActivationUseCase
	routerUC  usecase.RouterUseCase
	syncUC    usecase.SyncUseCase
	routers   repository.RouterRepository
	jwtSecret []byte
	dev       bool
	log       *zerolog.Logger
}

func NewServer(
	payUC usecase.PaymentUseCase,
	pkgUC usecase.PackageUseCase,
	actUC usecase.ActivationUseCase,
	routerUC usecase.RouterUseCase,
	syncUC usecase.SyncUseCase,
	routers repository.RouterRepository,
	jwtSecret string,
	dev bool,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		payUC:     payUC,
		pkgUC:     pkgUC,
		actUC:     actUC,
		routerUC:  routerUC,
		syncUC:    syncUC,
		routers:   routers,
		jwtSecret: []byte(jwtSecret),
		dev:       dev,
		log:       logger,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(traceContext)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/portal", func(r chi.Router) {
			r.Get("/packages", s.handleListPackages)
			r.Post("/payments", s.handleInitiatePayment)
			r.Get("/payments/{checkoutID}", s.handlePaymentStatus)
			r.Get("/devices/{mac}/session", s.handleDeviceSession)
		})

		r.Post("/payments/callback", s.handlePaymentCallback)

		r.Route("/admin/routers/{routerID}", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Post("/test", s.handleRouterTest)
			r.Post("/sync", s.handleRouterSync)
			r.Post("/grant", s.handleRouterGrant)
			r.Post("/revoke", s.handleRouterRevoke)
			r.Patch("/credential", s.handleUpdateCredential)
			r.Get("/sync-status", s.handleSyncStatus)
		})
	})

	return r
}
