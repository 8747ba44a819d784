package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"jichul/internal/cache"
	"jichul/internal/log"
	"jichul/internal/middleware/ratelimit"
	"jichul/internal/middleware/security"
	"jichul/internal/services"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)

// Options configures authentication and cross-origin access.
type Options struct {
	Password           string
	SessionTTL         time.Duration
	SessionMax         int
	LoginRatePerMinute int
	CORSOrigins        []string
	TrustedProxies     []string
	SecureCookies      bool
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger   *services.Ledger
	opts     Options
	sessions *cache.Sessions
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIPResolver
	logger   *log.Logger

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer wires routes and starts the session and rate limit janitors.
func NewServer(addr string, ledger *services.Ledger, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.SessionMax <= 0 {
		opts.SessionMax = 1000
	}
	s := &Server{
		ledger:   ledger,
		opts:     opts,
		sessions: cache.NewSessions(opts.SessionMax, opts.SessionTTL),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			Requests: opts.LoginRatePerMinute,
			Window:   time.Minute,
		}),
		clientIP: security.NewClientIPResolver(),
		logger:   log.OrDiscard(opts.Logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	for _, cidr := range opts.TrustedProxies {
		if err := s.clientIP.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go cache.NewJanitor(s.logger.WithComponent(log.ComponentAuth), s.sessions.Cleaner()).Run(ctx, 10*time.Minute)
	go s.limiter.Run(ctx, 5*time.Minute)

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.Middleware(s.clientIP.ClientIP, s.onLoginLimited)).
			Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", s.handleListExpenses)
				r.Post("/", s.handleCreateExpense)
				r.Get("/by-date", s.handleExpensesByDate)
				r.Get("/calendar", s.handleCalendar)
				r.Get("/search", s.handleSearch)
				r.Put("/{id}", s.handleUpdateExpense)
				r.Delete("/{id}", s.handleDeleteExpense)
			})

			r.Route("/payees", func(r chi.Router) {
				r.Get("/", s.handleListPayees)
				r.Post("/", s.handleCreatePayee)
				r.Put("/{id}", s.handleUpdatePayee)
				r.Delete("/{id}", s.handleDeletePayee)
			})

			r.Get("/statistics", s.handleStatistics)
			r.Post("/import/csv", s.handleImportCSV)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w)
}

// handleReady reports whether the store can produce a snapshot.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := s.ledger.Snapshot(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, msgInternal, err.Error())
		return
	}
	writeOK(w)
}

// Shutdown stops the janitors and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
