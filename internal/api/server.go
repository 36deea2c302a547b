package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/svnportal/internal/access"
	"github.com/org/svnportal/internal/auth"
	"github.com/org/svnportal/internal/authzfile"
	"github.com/org/svnportal/internal/directory"
	"github.com/org/svnportal/internal/rules"
	"github.com/org/svnportal/internal/state"
	"github.com/org/svnportal/pkg/models"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	ListenAddr    string
	TLSCertFile   string
	TLSKeyFile    string
	SessionTTL    time.Duration
	DefaultAccess models.AccessLevel
	AuthzFilePath string
}

// Server is the portal's admin API server.
type Server struct {
	store     state.Store
	resolver  *access.Resolver
	rules     *rules.Manager
	directory *directory.Service
	sessions  *auth.Service
	cfg       Config
	httpSrv   *http.Server
}

// NewServer creates a fully wired Server.
func NewServer(store state.Store, cfg Config) *Server {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	var sync rules.Syncer
	if cfg.AuthzFilePath != "" {
		sync = authzfile.New(cfg.AuthzFilePath, cfg.DefaultAccess)
	}
	return &Server{
		store:     store,
		resolver:  access.NewResolver(cfg.DefaultAccess),
		rules:     rules.NewManager(store, sync),
		directory: directory.NewService(store, sync),
		sessions:  auth.NewService(cfg.SessionTTL),
		cfg:       cfg,
	}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(newRateLimiter(100, 200).middleware)
	r.Use(requestLogMiddleware)

	r.Handle("/metrics", MetricsHandler())

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/v1/sys/health", s.HealthHandler)
		r.Post("/v1/auth/login", s.LoginHandler)
	})

	// Authenticated, read-only
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.sessions))

		r.Post("/v1/auth/logout", s.LogoutHandler)
		r.Get("/v1/access", s.AccessCheckHandler)
		r.Get("/v1/repos", s.RepoListHandler)
		r.Get("/v1/users", s.UserListHandler)
		r.Get("/v1/groups", s.GroupListHandler)
		r.Get("/v1/groups/{id}/users", s.GroupUsersHandler)
		r.Get("/v1/rules", s.RuleListHandler)
	})

	// Authenticated, admin capability required
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.sessions))
		r.Use(s.requireAdmin)

		r.Post("/v1/repos", s.RepoCreateHandler)
		r.Post("/v1/repos/{id}/archive", s.RepoArchiveHandler)
		r.Post("/v1/repos/{id}/default-access", s.RepoDefaultAccessHandler)
		r.Post("/v1/users", s.UserCreateHandler)
		r.Post("/v1/users/{id}/deactivate", s.UserDeactivateHandler)
		r.Post("/v1/users/{id}/capabilities", s.CapabilityGrantHandler)
		r.Delete("/v1/users/{id}/capabilities/{cap}", s.CapabilityRevokeHandler)
		r.Post("/v1/groups", s.GroupCreateHandler)
		r.Post("/v1/groups/{id}/members", s.GroupMemberAddHandler)
		r.Delete("/v1/groups/{id}/members/{user}", s.GroupMemberRemoveHandler)
		r.Post("/v1/groups/{id}/subgroups", s.SubgroupAddHandler)
		r.Delete("/v1/groups/{id}/subgroups/{child}", s.SubgroupRemoveHandler)
		r.Post("/v1/rules", s.RuleCreateHandler)
		r.Delete("/v1/rules/{id}", s.RuleDeleteHandler)
		r.Get("/v1/audit", s.AuditLogHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		s.httpSrv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Directory exposes the directory service for bootstrap wiring.
func (s *Server) Directory() *directory.Service {
	return s.directory
}
