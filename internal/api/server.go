package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/api/handler"
	mw "github.com/edvin/mailtrack/internal/api/middleware"
	"github.com/edvin/mailtrack/internal/api/response"
	"github.com/edvin/mailtrack/internal/config"
	"github.com/edvin/mailtrack/internal/core"
	"github.com/edvin/mailtrack/internal/events"
)

// Database is the pool the server runs on. *pgxpool.Pool satisfies it.
type Database interface {
	core.DB
	Ping(ctx context.Context) error
}

// Provider is the email provider API. *resend.Client satisfies it.
type Provider interface {
	core.Mailer
	handler.ProviderLookup
}

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	db       Database
	provider Provider
	feed     events.Subscriber
	cfg      *config.Config
	verify   func(http.Handler) http.Handler
}

// NewServer wires the services and routes. pub receives change
// notifications; feed serves them to stream clients.
func NewServer(logger zerolog.Logger, db Database, provider Provider, pub events.Publisher, feed events.Subscriber, cfg *config.Config) (*Server, error) {
	verify, err := mw.WebhookSignature(cfg.ResendWebhookSecret)
	if err != nil {
		return nil, err
	}

	services := core.NewServices(db, provider, pub, core.Identity{
		From:    cfg.MailFrom,
		ReplyTo: cfg.MailReplyTo,
	})

	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: services,
		db:       db,
		provider: provider,
		feed:     feed,
		cfg:      cfg,
		verify:   verify,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	if len(s.cfg.CORSOrigins) > 0 {
		s.router.Use(mw.CORS(s.cfg.CORSOrigins))
	}
}

func (s *Server) setupRoutes() {
	// Served by the separate metrics listener when one is configured.
	if s.cfg.MetricsListenAddr == "" {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	email := handler.NewEmail(s.services.Sender, s.services.Emails, s.services.Events, s.provider)
	event := handler.NewEvent(s.services.Events)
	webhook := handler.NewWebhook(s.services.Receiver)
	stream := handler.NewStream(s.feed, s.cfg.CORSOrigins)
	ui := handler.NewUI(s.services.Emails, s.services.Events)

	s.router.Get("/", ui.Index)

	// Paths the browser form and the Resend dashboard are configured with.
	s.router.Post("/api/send-email", email.Send)
	s.router.With(s.verify).Post("/api/resend-webhook", webhook.Resend)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/emails", email.Send)
		r.Get("/emails", email.List)
		r.Get("/emails/{id}", email.Get)
		r.Get("/emails/{id}/events", email.Events)
		r.Get("/emails/{id}/provider", email.Provider)

		r.Get("/events", event.List)

		r.With(s.verify).Post("/webhooks/resend", webhook.Resend)

		r.Get("/stream", stream.Connect)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok"}
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	response.WriteJSON(w, status, checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
