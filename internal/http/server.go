package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"thuchi/internal/cache"
	"thuchi/internal/core"
	"thuchi/internal/middleware/ratelimit"
	"thuchi/internal/middleware/security"
	"thuchi/internal/middleware/trace"
	"thuchi/internal/services"
	"thuchi/internal/store"
)

// Options tunes the server's cache and throttling behavior.
type Options struct {
	SummaryCacheSize  int
	SummaryCacheTTL   time.Duration
	RequestsPerMinute int
}

// DefaultOptions returns the defaults used when a field is zero.
func DefaultOptions() Options {
	return Options{
		SummaryCacheSize:  100,
		SummaryCacheTTL:   5 * time.Minute,
		RequestsPerMinute: 60,
	}
}

type Server struct {
	http.Server

	ledger   *services.LedgerService
	profiles store.Store

	summaryCache *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	ipResolver   *security.IPResolver

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, st store.Store, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.SummaryCacheSize <= 0 {
		opts.SummaryCacheSize = defaults.SummaryCacheSize
	}
	if opts.SummaryCacheTTL <= 0 {
		opts.SummaryCacheTTL = defaults.SummaryCacheTTL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = defaults.RequestsPerMinute
	}

	s := &Server{
		ledger:       ledger,
		profiles:     st,
		summaryCache: cache.NewLRUCache[core.Summary](opts.SummaryCacheSize, opts.SummaryCacheTTL),
		cacheManager: cache.NewManager(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		ipResolver: security.NewIPResolver(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /api/summary", s.requireUser(s.handleSummary))
	mux.HandleFunc("GET /api/transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireUser(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/profile", s.requireUser(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.requireUser(s.handlePutProfile))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.ipResolver.ExtractClientIP)
	limiter := s.rateLimiter.Middleware(s.throttleKey, nil)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(tracer.Middleware(limiter(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// throttleKey prefers the user identity so one user cannot starve another
// behind a shared NAT.
func (s *Server) throttleKey(r *http.Request) string {
	if uid := r.Header.Get(headerUserID); uid != "" {
		return uid
	}
	return s.ipResolver.ExtractClientIP(r)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) summaryCacheKey(userID string, p core.Period) string {
	return userID + ":" + p.String()
}

// invalidateSummaries drops every cached summary for the user. Writes touch
// an unknown period set, so the whole namespace goes.
func (s *Server) invalidateSummaries(userID string) {
	s.summaryCache.DeletePrefix(userID + ":")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
