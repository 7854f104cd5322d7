// Пакет deviceclient — HTTP-клиент REST backend симулируемых устройств
// (Regula и RFID). Поддерживает TLS с кастомным CA (DC_BACKEND_CA_CERT_PATH).
// Все ответы backend классифицируются в *Error (см. errors.go), списки
// нормализуются к []T независимо от формы ответа (см. list.go).
package deviceclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseBytes — ограничение размера читаемого тела ответа.
const maxResponseBytes = 32 << 20

// maxLoggedBody — сколько байтов сырого тела попадает в лог.
const maxLoggedBody = 512

var tracer = otel.Tracer("deviceclient")

// Prometheus-метрики обращений к backend.
var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dc_backend_requests_total",
			Help: "Количество запросов Device Console к backend устройств",
		},
		[]string{"op", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dc_backend_request_duration_seconds",
			Help:    "Длительность запросов к backend устройств в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Options — параметры клиента.
type Options struct {
	// BaseURL — базовый URL backend (без trailing slash).
	BaseURL string
	// RegulaPath — путь ресурса Regula.
	RegulaPath string
	// RfidPath — путь ресурса RFID.
	RfidPath string
	// HealthPath — путь для проверки доступности backend.
	HealthPath string
	// CACertPath — CA-сертификат для TLS (пусто — системный пул).
	CACertPath string
	// Timeout — таймаут одного запроса.
	Timeout time.Duration
	// MultipartUpload — отправлять фото как multipart/form-data вместо JSON.
	MultipartUpload bool
}

// Client — HTTP-клиент backend устройств.
type Client struct {
	httpClient *http.Client
	opts       Options
	logger     *slog.Logger
}

// New создаёт клиент backend.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	httpClient := &http.Client{Timeout: opts.Timeout}

	if opts.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат backend добавлен в пул доверия",
			slog.String("ca_cert", opts.CACertPath),
		)
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts,
		logger:     logger.With(slog.String("component", "device_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}

// BaseURL возвращает базовый URL backend.
func (c *Client) BaseURL() string { return c.opts.BaseURL }

// RfidPath возвращает путь ресурса RFID.
func (c *Client) RfidPath() string { return c.opts.RfidPath }

// CheckReady проверяет доступность backend для readiness probe.
// Любой ответ ниже 500 считается признаком живого backend.
func (c *Client) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+c.opts.HealthPath, nil)
	if err != nil {
		return "fail", fmt.Sprintf("некорректный URL backend: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("backend недоступен: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxLoggedBody))

	if resp.StatusCode >= 500 {
		return "fail", fmt.Sprintf("backend вернул статус %d", resp.StatusCode)
	}
	return "ok", "backend доступен"
}

// request — описание одного запроса к backend.
type request struct {
	op          string
	method      string
	path        string
	body        []byte
	contentType string
}

// jsonRequest собирает request с JSON-телом.
func jsonRequest(op, method, path string, payload any) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("%s: сериализация тела запроса: %w", op, err)
	}
	return request{op: op, method: method, path: path, body: data, contentType: "application/json"}, nil
}

// response — прочитанный успешный ответ backend.
type response struct {
	contentType string
	body        []byte
}

// do выполняет запрос, классифицирует ошибки и пишет метрики/трассировку.
// Возвращает тело успешного (2xx) ответа.
func (c *Client) do(ctx context.Context, rq request) (*response, error) {
	ctx, span := tracer.Start(ctx, "DeviceClient."+rq.op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", rq.method),
		attribute.String("url.path", rq.path),
	)

	start := time.Now()
	status := "error"
	defer func() {
		backendRequestsTotal.WithLabelValues(rq.op, status).Inc()
		backendRequestDuration.WithLabelValues(rq.op).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if rq.body != nil {
		body = bytes.NewReader(rq.body)
	}

	req, err := http.NewRequestWithContext(ctx, rq.method, c.opts.BaseURL+rq.path, body)
	if err != nil {
		return nil, c.fail(span, &Error{Kind: KindTransport, Op: rq.op, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if rq.contentType != "" {
		req.Header.Set("Content-Type", rq.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(span, &Error{Kind: KindTransport, Op: rq.op, Err: err})
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.fail(span, &Error{Kind: KindTransport, Op: rq.op, StatusCode: resp.StatusCode, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(span, &Error{
			Kind:       kindForStatus(resp.StatusCode),
			Op:         rq.op,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data),
			Body:       string(data),
		})
	}

	return &response{contentType: resp.Header.Get("Content-Type"), body: data}, nil
}

// doJSON выполняет запрос и декодирует JSON-ответ в out (если out != nil).
func (c *Client) doJSON(ctx context.Context, rq request, out any) error {
	resp, err := c.do(ctx, rq)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return c.decodeError(rq.op, resp.body, err)
	}
	return nil
}

// decodeError формирует и логирует KindDecode.
func (c *Client) decodeError(op string, body []byte, err error) error {
	e := &Error{Kind: KindDecode, Op: op, Body: string(body), Err: err}
	c.logger.Error("Некорректный JSON в ответе backend",
		slog.String("op", op),
		slog.String("error", err.Error()),
		slog.String("body", truncate(string(body), maxLoggedBody)),
	)
	return e
}

// fail логирует ошибку запроса и отмечает её в span.
// Сырое тело попадает только в лог.
func (c *Client) fail(span trace.Span, e *Error) error {
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Kind.String())

	attrs := []any{
		slog.String("op", e.Op),
		slog.String("kind", e.Kind.String()),
		slog.Int("status", e.StatusCode),
		slog.String("error", e.Error()),
	}
	if e.Body != "" {
		attrs = append(attrs, slog.String("body", truncate(e.Body, maxLoggedBody)))
	}

	if e.Kind == KindServer {
		c.logger.Error("Ошибка backend", attrs...)
	} else {
		c.logger.Warn("Запрос к backend завершился ошибкой", attrs...)
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func idPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}
