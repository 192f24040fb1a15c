package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"pfm/internal/cache"
	"pfm/internal/commands"
	"pfm/internal/core"
	"pfm/internal/gateway"
	"pfm/internal/log"
	"pfm/internal/metrics"
	"pfm/internal/middleware/ratelimit"
	"pfm/internal/middleware/security"
	"pfm/internal/middleware/trace"
	"pfm/internal/viewmodel"
	appweb "pfm/web"
)

// ReadinessCheck reports whether an optional dependency is usable.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options configures the web surface.
type Options struct {
	Gateway *gateway.Gateway

	// Events receives every successful mutation in addition to the local
	// sessions, typically the AMQP client.
	Events commands.Publisher

	Logger           *log.Logger
	SessionCacheSize int
	SessionTTL       time.Duration
	RequestsPerMin   int
	Readiness        []ReadinessCheck

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates  *template.Template
	gw         *gateway.Gateway
	sessions   *sessions
	cacheMgr   *cache.Manager
	limiter    *ratelimit.Limiter
	ipResolver *security.IPResolver
	events     commands.Publisher
	readiness  []ReadinessCheck
	logger     *log.Logger
	source     string
	started    time.Time
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.SessionCacheSize <= 0 {
		opts.SessionCacheSize = 256
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		templates:  t,
		gw:         opts.Gateway,
		cacheMgr:   cache.NewManager(opts.Logger),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMin}),
		ipResolver: security.NewIPResolver(),
		events:     opts.Events,
		readiness:  opts.Readiness,
		logger:     logger,
		source:     "web:" + uuid.NewString()[:8],
		started:    opts.Now(),
		now:        opts.Now,
	}
	s.sessions = newSessions(cache.NewLRUCache[*session](opts.SessionCacheSize, opts.SessionTTL), s.newSession)
	s.cacheMgr.Register(s.sessions.cache)
	s.cacheMgr.Register(s.limiter.Clients())

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", static)
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	// session pages embed per-browser data
	private := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }
	mux.Handle("GET /{$}", private(s.handleIndex))
	mux.Handle("POST /transactions", private(s.handleCreate))
	mux.Handle("POST /reload", private(s.handleReload))
	mux.Handle("GET /transactions/{id}/delete", private(s.handleConfirmDelete))
	mux.Handle("POST /transactions/{id}/delete", private(s.handleDelete))
	mux.Handle("GET /api/view", private(s.handleAPIView))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = mux
	h = s.limiter.Middleware(s.ipResolver.ClientIP, s.handleRateLimited)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(opts.Logger, s.ipResolver.ClientIP).Middleware(h)
	h = log.Middleware(opts.Logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) newSession(id string) *session {
	agg := viewmodel.NewAggregator(s.gw, nil, s.logger.With(log.FieldSessionID, id))
	cmds := commands.New(s.gw, agg, s.logger.With(log.FieldSessionID, id),
		commands.WithPublisher(commands.Fanout{s.sessions.broadcaster(), s.events}, s.source),
		commands.WithClock(s.now))
	return &session{
		id:   id,
		agg:  agg,
		cmds: cmds,
		form: *commands.NewForm(s.now()),
	}
}

// Source identifies mutations issued by this instance.
func (s *Server) Source() string { return s.source }

// ApplyRemoteMutation marks every session stale in response to a mutation
// made elsewhere. Events issued by this instance were already applied.
func (s *Server) ApplyRemoteMutation(ctx context.Context, ev core.MutationEvent) {
	if ev.Source == s.source {
		return
	}
	n := s.sessions.markStale()
	metrics.MutationEvents.WithLabelValues("received", ev.Action).Inc()
	s.logger.DebugContext(ctx, "Remote mutation applied",
		log.FieldOperation, ev.Action,
		"source", ev.Source,
		log.FieldCount, n)
}

// Start runs the periodic session and rate limiter cleanup until ctx ends.
func (s *Server) Start(ctx context.Context) {
	s.cacheMgr.Start(ctx, 5*time.Minute)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
