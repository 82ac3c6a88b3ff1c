package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/server/config"
	"github.com/sig-0/vesmonitor/storage"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Monitor is the rate monitor served by the API
type Monitor interface {
	// Snapshot returns the current published snapshot
	Snapshot() rates.Snapshot

	// Offline returns true if the last refresh failed for every source
	Offline() bool

	// LastStatus returns the outcome of the last refresh
	LastStatus() rates.Status

	// Refresh runs a refresh cycle immediately
	Refresh(context.Context) (rates.Status, error)

	// Convert converts an amount against the current snapshot
	Convert(convert.Request) convert.Result

	// Subscribe registers a callback for every published snapshot
	Subscribe(func(rates.Snapshot)) func()
}

type Server struct {
	logger *slog.Logger
	config *config.Config

	monitor Monitor
	history storage.History

	refreshLimiter *rate.Limiter

	mux *chi.Mux
}

// New creates a new server instance
func New(monitor Monitor, history storage.History, opts ...Option) (*Server, error) {
	s := &Server{
		logger:  noopLogger,
		monitor: monitor,
		history: history,
		config:  config.DefaultConfig(),
		mux:     chi.NewMux(),
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	// Validate the configuration
	if err := config.ValidateConfig(s.config); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	// Set up the manual refresh throttling
	if n := s.config.RefreshPerMinute; n > 0 {
		s.refreshLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	// Set up the CORS middleware
	if s.config.CORSConfig != nil {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSConfig.AllowedOrigins,
			AllowedMethods: s.config.CORSConfig.AllowedMethods,
			AllowedHeaders: s.config.CORSConfig.AllowedHeaders,
		})

		s.mux.Use(corsMiddleware.Handler)
	}

	s.mux.Use(httplog.RequestLogger(s.logger, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaOTEL,
		RecoverPanics: true,
		Skip: func(r *http.Request, respStatus int) bool {
			return respStatus == 404 || respStatus == 405 || r.URL.Path == "/health"
		},
	}))

	// Register the health check handler
	s.mux.Get("/health", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/snapshot", s.Snapshot)
		r.Get("/snapshot/ws", s.Stream)
		r.Post("/refresh", s.Refresh)
		r.Get("/convert", s.Convert)

		r.Get("/rates/{base}", s.RatesForBase)
		r.Get("/rates/{base}/{target}", s.RatesForPair)
		r.Get("/sources", s.Sources)
		r.Get("/currencies", s.Currencies)
	})

	s.mux.Get("/openapi.yaml", s.OpenAPI)
	s.mux.Get("/docs", s.Redoc)

	return s, nil
}

// Handler returns the server HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve serves the vesmonitor API
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	group, gCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer s.logger.Info("server shut down")

		ln, err := net.Listen("tcp", server.Addr)
		if err != nil {
			return err
		}

		s.logger.Info(
			fmt.Sprintf(
				"server started at %s",
				ln.Addr().String(),
			),
		)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-gCtx.Done()

		s.logger.Info("server to be shutdown")

		wsCtx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		return server.Shutdown(wsCtx)
	})

	return group.Wait()
}
