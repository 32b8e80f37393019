// Package httpapi exposes a statics service over HTTP.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	statics "github.com/goliatone/go-statics"
	"github.com/goliatone/go-statics/schema/openapi"
)

// DefaultMaxBodyBytes bounds update request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Service is the statics API served over HTTP.
type Service interface {
	Get(ctx context.Context) (statics.Result, error)
	Update(ctx context.Context, req statics.UpdateRequest) (statics.Result, error)
}

type Server struct {
	router       *mux.Router
	service      Service
	schemas      statics.SchemaProvider
	generator    *openapi.Generator
	logger       *slog.Logger
	reg          *prometheus.Registry
	metrics      *metrics
	accessLog    io.Writer
	maxBodyBytes int64
	actorHeader  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry registers the server metrics on reg and serves reg at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.reg = reg
		}
	}
}

// WithAccessLog writes Apache combined access logs to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithActorHeader names the request header whose value is recorded as the
// actor of updates in activity events.
func WithActorHeader(name string) Option {
	return func(s *Server) {
		s.actorHeader = name
	}
}

// WithGenerator overrides the OpenAPI generator serving the schema route.
func WithGenerator(generator *openapi.Generator) Option {
	return func(s *Server) {
		if generator != nil {
			s.generator = generator
		}
	}
}

// NewServer builds the HTTP server for service. schemas backs the schema
// document route and may be nil, in which case the route answers 404.
func NewServer(service Service, schemas statics.SchemaProvider, opts ...Option) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		service:      service,
		schemas:      schemas,
		generator:    openapi.NewGenerator(),
		logger:       slog.New(slog.DiscardHandler),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.reg)
	s.routes()
	return s
}

// Registry returns the registry served at /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.reg
}

// Handler returns the router wrapped with panic recovery and, when
// configured, access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: s.logger}),
	)(h)
	if s.accessLog != nil {
		h = handlers.CombinedLoggingHandler(s.accessLog, h)
	}
	return h
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(args ...any) {
	l.logger.Error("http handler panic", "panic", args)
}
