// Package server собирает HTTP сервер удаленного каталога: маршруты, middleware и метрики.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/shopkeeper/internal/server/handlers"
	"github.com/iudanet/shopkeeper/internal/server/middleware"
	"github.com/iudanet/shopkeeper/internal/server/storage"
)

// shutdownTimeout ограничивает graceful shutdown
const shutdownTimeout = 10 * time.Second

// Options настройки сервера каталога
type Options struct {
	Addr        string
	Admin       handlers.AdminCredentials
	JWT         handlers.JWTConfig
	AuthEnabled bool // false: запись в каталог без токена (локальная разработка)
	RateLimit   int  // запросов в минуту с одного IP, 0 отключает лимит
}

// Server HTTP сервер каталога
type Server struct {
	httpServer *http.Server
	limiter    *middleware.RateLimiter
	logger     *slog.Logger
}

// New собирает маршруты поверх store. Метрики регистрируются в собственном registry.
func New(opts Options, store storage.ProductStorage, logger *slog.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	products := handlers.NewProductsHandler(logger, store)
	health := handlers.NewHealthHandler(logger, store)
	auth := handlers.NewAuthHandler(logger, opts.Admin, opts.JWT)

	write := func(h http.HandlerFunc) http.Handler {
		if !opts.AuthEnabled {
			return h
		}
		return middleware.AuthMiddleware(logger, opts.JWT)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", health.Health)
	mux.HandleFunc("GET /api/products", products.List)
	mux.Handle("POST /api/products", write(products.Save))
	mux.Handle("DELETE /api/products/{id}", write(products.Delete))
	mux.HandleFunc("POST /api/auth/login", auth.Login)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// logging копирует запрос (request id в контексте), metrics должен стоять после него
	chain := []func(http.Handler) http.Handler{
		middleware.RecoveryMiddleware(logger, metrics.RecordPanic),
		middleware.LoggingMiddleware(logger, "/metrics", "/api/health"),
		metrics.Middleware,
	}

	s := &Server{logger: logger}
	if opts.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(opts.RateLimit, time.Minute)
		chain = append(chain, middleware.RateLimitMiddleware(s.limiter, logger, authorizedWrite))
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           middleware.Chain(mux, chain...),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// authorizedWrite: запись каталога с bearer токеном. SyncCatalog шлет весь каталог
// пачкой, такие запросы проверяет AuthMiddleware, а не лимит по IP.
func authorizedWrite(r *http.Request) bool {
	if r.Method == http.MethodGet || !strings.HasPrefix(r.URL.Path, "/api/products") {
		return false
	}
	return r.Header.Get("Authorization") != ""
}

// Handler возвращает корневой handler со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run слушает Addr до отмены ctx, затем выполняет graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("catalog server listening", slog.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down catalog server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close освобождает фоновые ресурсы middleware
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
