// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Device Console мониторит одну зависимость — REST backend устройств
// (HTTP checker к DC_BACKEND_HEALTH_PATH, critical).
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для backend
	"github.com/prometheus/client_golang/prometheus"
)

// maxDepNameLen — ограничение длины имени зависимости в лейблах.
const maxDepNameLen = 63

var nonDepNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// DephealthConfig — параметры мониторинга backend.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения.
	ServiceID string
	// Group — имя группы в метриках (DC_DEPHEALTH_GROUP).
	Group string
	// DependencyName — имя зависимости в метриках.
	DependencyName string
	// BackendURL — базовый URL backend.
	BackendURL string
	// HealthPath — путь проверки (DC_BACKEND_HEALTH_PATH).
	HealthPath string
	// CheckInterval — интервал проверки (DC_DEPHEALTH_CHECK_INTERVAL).
	CheckInterval time.Duration
	// CustomCA — backend использует сертификат с кастомным CA.
	CustomCA bool
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh         *dephealth.DepHealth
	dependency string
	logger     *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(cfg DephealthConfig, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	if _, _, err := parseBackendURL(cfg.BackendURL); err != nil {
		return nil, err
	}

	name := NormalizeDepName(cfg.DependencyName)
	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/"
	}

	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.BackendURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	if cfg.CustomCA {
		// HTTP checker не принимает пул CA: сертификат уже проверяет deviceclient.
		depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(true))
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP(name, depOpts...),
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:         dh,
		dependency: name,
		logger:     logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен",
		slog.String("dependency", ds.dependency),
	)
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady сводит последние результаты topologymetrics в статус readiness.
func (ds *DephealthService) CheckReady() (status string, message string) {
	return readinessFromHealth(ds.Health())
}

// readinessFromHealth: до первой проверки статус degraded,
// любая непройденная проверка даёт fail.
func readinessFromHealth(health map[string]bool) (string, string) {
	if len(health) == 0 {
		return "degraded", "проверки ещё не выполнялись"
	}
	for _, name := range slices.Sorted(maps.Keys(health)) {
		if !health[name] {
			return "fail", name + ": последняя проверка не пройдена"
		}
	}
	return "ok", fmt.Sprintf("зависимостей в норме: %d", len(health))
}

// NormalizeDepName приводит имя зависимости к виду, допустимому в лейблах:
// нижний регистр, [a-z0-9-], начинается с буквы, не длиннее 63 символов.
func NormalizeDepName(name string) string {
	n := nonDepNameChars.ReplaceAllString(strings.ToLower(name), "-")
	n = strings.Trim(n, "-")
	if n == "" {
		return "device-backend"
	}
	if n[0] >= '0' && n[0] <= '9' {
		n = "dep-" + n
	}
	if len(n) > maxDepNameLen {
		n = strings.TrimRight(n[:maxDepNameLen], "-")
	}
	return n
}

// parseBackendURL проверяет URL backend и возвращает host и порт
// (порт по умолчанию берётся из схемы).
func parseBackendURL(raw string) (host, port string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("некорректный URL backend %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("URL backend %q не содержит host", raw)
	}

	port = u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		default:
			return "", "", fmt.Errorf("URL backend %q: неподдерживаемая схема %q", raw, u.Scheme)
		}
	}
	return u.Hostname(), port, nil
}
