package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwellhq/inkwell/internal/audit"
	"github.com/inkwellhq/inkwell/internal/auth"
	"github.com/inkwellhq/inkwell/internal/rls"
	"github.com/inkwellhq/inkwell/internal/service"
	"github.com/inkwellhq/inkwell/pkg/health"
	"github.com/inkwellhq/inkwell/pkg/middleware"
)

// RouterConfig bundles everything the router needs.
type RouterConfig struct {
	AuthService         *service.AuthService
	NoteService         *service.NoteService
	FriendService       *service.FriendService
	ShareService        *service.ShareService
	NotificationService *service.NotificationService

	JWTManager *auth.JWTManager
	TxManager  *rls.Manager
	Recorder   audit.Recorder

	HealthHandler  *health.Handler
	Logger         *slog.Logger
	CORS           middleware.CORSConfig
	SecureCookies  bool
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter creates a chi router with all routes registered.
//
// Middleware order on authenticated routes matters: recovery is mounted at
// the router level so it observes the re-panic from the transaction
// middleware, and the authentication gate runs before the transaction opens
// so unauthenticated requests never cost a connection from the row-scoped
// pool.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Tracing("inkwell-api"))
	r.Use(middleware.PrometheusMetrics("inkwell"))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Logger))

	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(cfg.AuthService, cfg.SecureCookies, cfg.Logger)
	noteHandler := NewNoteHandler(cfg.NoteService, cfg.Recorder, cfg.Logger)
	friendHandler := NewFriendHandler(cfg.FriendService, cfg.Logger)
	shareHandler := NewShareHandler(cfg.ShareService, cfg.Logger)
	notificationHandler := NewNotificationHandler(cfg.NotificationService, cfg.Logger)

	authenticate := Authenticate(cfg.AuthService, cfg.JWTManager, cfg.Recorder, cfg.Logger)

	// Public auth endpoints. These run before a principal exists, so no
	// row-scoped transaction is opened for them.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		// Session management needs the gate but not a row-scoped
		// transaction: it only touches tables the request role cannot see.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	// Row-scoped resources: the gate resolves the principal, then every
	// request runs inside a transaction bound to it.
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authenticate)
		r.Use(rls.Middleware(cfg.TxManager, cfg.Logger))

		r.Route("/api/v1/notes", func(r chi.Router) {
			r.Get("/", noteHandler.List)
			r.Post("/", noteHandler.Create)
			r.Get("/{id}", noteHandler.Get)
			r.Put("/{id}", noteHandler.Update)
			r.Delete("/{id}", noteHandler.Delete)

			r.Get("/{id}/shares", shareHandler.ListForNote)
			r.Post("/{id}/shares", shareHandler.Create)
		})

		r.Route("/api/v1/shares", func(r chi.Router) {
			r.Put("/{id}", shareHandler.Update)
			r.Delete("/{id}", shareHandler.Revoke)
		})

		r.Route("/api/v1/friends", func(r chi.Router) {
			r.Get("/", friendHandler.List)
			r.Post("/", friendHandler.Request)
			r.Post("/{id}/accept", friendHandler.Accept)
			r.Delete("/{id}", friendHandler.Remove)
		})

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/read-all", notificationHandler.MarkAllRead)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})
	})

	return r
}
