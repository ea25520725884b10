// Package server exposes the inbound pipeline and the outbound error
// classifier over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/botflow/pkg/botflow/emit"
	bferrors "github.com/randalmurphal/botflow/pkg/botflow/errors"
	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

const defaultMaxBodyBytes = 1 << 20

// Server holds the collaborators behind the HTTP routes.
type Server struct {
	pipeline   *inbound.Pipeline
	criteria   inbound.CriteriaSource
	sink       emit.Sink
	deadLetter *emit.DeadLetterQueue
	replayTo   emit.Sink
	policy     bferrors.RetryPolicy
	maxRetries int
	maxBody    int64
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCriteria sets the filter criteria source. Default: allow all.
func WithCriteria(src inbound.CriteriaSource) Option {
	return func(s *Server) {
		if src != nil {
			s.criteria = src
		}
	}
}

// WithSink sets the sink emitted events are delivered to. Default: none.
func WithSink(sink emit.Sink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithDeadLetters exposes q under /deadletters. Replays are emitted to
// replayTo, which should not itself park failures in q.
func WithDeadLetters(q *emit.DeadLetterQueue, replayTo emit.Sink) Option {
	return func(s *Server) {
		s.deadLetter = q
		s.replayTo = replayTo
	}
}

// WithRetryPolicy sets the policy and retry budget used by /errors/classify.
func WithRetryPolicy(p bferrors.RetryPolicy, maxRetries int) Option {
	return func(s *Server) {
		s.policy = p
		s.maxRetries = maxRetries
	}
}

// WithMaxBodyBytes limits request bodies. Larger bodies get 413.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server around pipeline.
func New(pipeline *inbound.Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline:   pipeline,
		criteria:   inbound.StaticCriteria{},
		policy:     bferrors.DefaultRetryPolicy,
		maxRetries: bferrors.DefaultMaxRetries,
		maxBody:    defaultMaxBodyBytes,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns a chi router with middleware and all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	s.MountRoutes(r)
	return r
}

// MountRoutes registers the botflow routes on r.
func (s *Server) MountRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	r.Post("/errors/classify", s.handleClassify)
	if s.deadLetter != nil {
		r.Route("/deadletters", func(r chi.Router) {
			r.Get("/", s.handleListDeadLetters)
			r.Post("/replay", s.handleReplayDeadLetters)
			r.Delete("/{eventID}", s.handleAckDeadLetter)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
