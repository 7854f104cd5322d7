// Пакет server — HTTP-сервер Device Console с graceful shutdown.
// Без TLS — консоль работает внутри стенда, TLS при необходимости на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	apierrors "github.com/bigkaa/fakedevices/device-console/internal/api/errors"
	"github.com/bigkaa/fakedevices/device-console/internal/api/middleware"
	"github.com/bigkaa/fakedevices/device-console/internal/config"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/static"
)

// RegulaRoutes — маршруты вкладки Regula. upload оборачивает загрузку фото.
type RegulaRoutes interface {
	Routes(r chi.Router, upload func(http.Handler) http.Handler)
}

// RfidRoutes — маршруты вкладки RFID.
type RfidRoutes interface {
	Routes(r chi.Router)
}

// HealthEndpoints — служебные endpoints.
type HealthEndpoints interface {
	HealthLive(w http.ResponseWriter, r *http.Request)
	HealthReady(w http.ResponseWriter, r *http.Request)
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// Components — обработчики, из которых собирается router.
type Components struct {
	Health HealthEndpoints
	Regula RegulaRoutes
	Rfid   RfidRoutes
	// Events — поток SSE (GET /events).
	Events http.HandlerFunc
	// ToastList и ToastDismiss — фрагмент уведомлений.
	ToastList    http.HandlerFunc
	ToastDismiss http.HandlerFunc
	// SetLanguage — POST /set-language.
	SetLanguage http.HandlerFunc
}

// Server — HTTP-сервер Device Console.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, c Components) *Server {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     NewRouter(cfg, logger, c),
		ReadTimeout: 30 * time.Second,
		// WriteTimeout не задан: поток /events живёт, пока открыта вкладка.
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты консоли.
func NewRouter(cfg *config.Config, logger *slog.Logger, c Components) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.RequestID)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)
	router.Use(i18n.Middleware())

	router.Get("/health/live", c.Health.HealthLive)
	router.Get("/health/ready", c.Health.HealthReady)
	router.Get("/metrics", c.Health.GetMetrics)

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/devices/regula", http.StatusFound)
	})

	uploadLimit := httprate.Limit(cfg.UploadRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			apierrors.RateLimited(w, i18n.T(r.Context(), "error.rate_limited"))
		}),
	)
	router.Route("/devices/regula", func(r chi.Router) {
		c.Regula.Routes(r, uploadLimit)
	})
	router.Route("/devices/rfid", c.Rfid.Routes)

	router.Get("/events", c.Events)
	router.Get("/partials/toasts", c.ToastList)
	router.Delete("/partials/toasts/{id}", c.ToastDismiss)
	router.Post("/set-language", c.SetLanguage)

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Открытые потоки /events не завершаются сами, закрываем их принудительно.
		if closeErr := s.httpServer.Close(); closeErr != nil {
			return fmt.Errorf("ошибка при закрытии соединений: %w", closeErr)
		}
		s.logger.Warn("graceful shutdown не уложился в таймаут, соединения закрыты",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}

// RegisterOnShutdown добавляет функцию, вызываемую при Shutdown.
// Используется для закрытия рассылок, чтобы потоки SSE завершились сами.
func (s *Server) RegisterOnShutdown(fn func()) {
	s.httpServer.RegisterOnShutdown(fn)
}
