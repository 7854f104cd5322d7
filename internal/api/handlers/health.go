// Пакет handlers — служебные HTTP endpoints Device Console:
// liveness, readiness и Prometheus метрики.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/fakedevices/device-console/internal/config"
)

const serviceName = "device-console"

// Статусы проверок.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// ReadinessChecker — проверка одной зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус (ok, degraded, fail) и пояснение.
	CheckReady() (status string, message string)
}

// Check — именованная проверка readiness.
// Некритичная проверка в состоянии fail понижает итог только до degraded.
type Check struct {
	Name     string
	Critical bool
	Probe    ReadinessChecker
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	checks  []Check
	metrics http.Handler
}

// NewHealthHandler создаёт обработчик. Без критичных проверок
// readiness всегда отвечает fail: консоль без backend бесполезна.
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		metrics: promhttp.Handler(),
	}
}

type checkResult struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Critical bool   `json:"critical"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

func newHealthResponse(status string) healthResponse {
	return healthResponse{
		Status:    status,
		Service:   serviceName,
		Version:   config.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HealthLive — GET /health/live. Процесс жив, зависимости не проверяются.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, newHealthResponse(StatusOK))
}

// HealthReady — GET /health/ready. 503, если итог fail.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := newHealthResponse(StatusOK)
	resp.Checks = make(map[string]checkResult, len(h.checks))

	critical := false
	for _, c := range h.checks {
		st, msg := StatusFail, "проверка не настроена"
		if c.Probe != nil {
			st, msg = c.Probe.CheckReady()
		}
		resp.Checks[c.Name] = checkResult{Status: st, Message: msg, Critical: c.Critical}
		resp.Status = combine(resp.Status, st, c.Critical)
		critical = critical || c.Critical
	}
	if !critical {
		resp.Status = StatusFail
	}

	code := http.StatusOK
	if resp.Status == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, resp)
}

// GetMetrics — GET /metrics.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// combine добавляет статус одной проверки к итоговому.
func combine(total, st string, critical bool) string {
	switch {
	case total == StatusFail:
		return StatusFail
	case st == StatusFail && critical:
		return StatusFail
	case st == StatusFail, st == StatusDegraded:
		return StatusDegraded
	}
	return total
}

func writeHealth(w http.ResponseWriter, code int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
