// Пакет config — загрузка и валидация конфигурации Device Console
// из переменных окружения (и опционального файла .env).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые способы передачи фото на backend.
const (
	// UploadEncodingJSON — JSON-тело {image_data (base64), file_name, content_type}.
	UploadEncodingJSON = "json"
	// UploadEncodingMultipart — multipart/form-data с полем file.
	UploadEncodingMultipart = "multipart"
)

// Config содержит все параметры конфигурации Device Console.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера консоли
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend устройств ---

	// Базовый URL backend (например, http://localhost:8000)
	BackendURL string
	// Путь к CA-сертификату для TLS-соединений с backend (опционально)
	BackendCACertPath string
	// Таймаут одного запроса к backend
	BackendTimeout time.Duration
	// Путь ресурса Regula (по умолчанию /api/v1/regula)
	RegulaPath string
	// Путь ресурса RFID (по умолчанию /api/v1/fake_rfid)
	RfidPath string
	// Путь, по которому проверяется доступность backend
	BackendHealthPath string

	// --- Фото ---

	// Способ передачи фото: json или multipart
	PhotoUploadEncoding string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadBytes int64
	// Лимит загрузок фото в минуту с одного IP
	UploadRateLimit int
	// Размер LRU-кэша байтов фото (количество записей)
	PhotoCacheSize int
	// Время жизни записи в кэше байтов фото
	PhotoCacheTTL time.Duration

	// --- UI ---

	// Время показа уведомления до автоматического скрытия
	NotifyTTL time.Duration
	// Интервал keepalive-комментариев в SSE-потоке
	SSEKeepalive time.Duration

	// --- topologymetrics ---

	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки доступности backend
	DephealthCheckInterval time.Duration

	// --- Трассировка ---

	// OTLP/HTTP endpoint (пусто — трассировка отключена)
	OTelEndpoint string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Если в рабочем каталоге есть .env — переменные из него подставляются
// для тех ключей, что не заданы в окружении.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("DC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// DC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DC_LOG_LEVEL: %w", err)
	}

	// DC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend ---

	// DC_BACKEND_URL — обязательный
	cfg.BackendURL, err = getEnvRequired("DC_BACKEND_URL")
	if err != nil {
		return nil, err
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if u, parseErr := url.Parse(cfg.BackendURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("DC_BACKEND_URL: некорректный URL %q", cfg.BackendURL)
	}

	// DC_BACKEND_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.BackendCACertPath = getEnvDefault("DC_BACKEND_CA_CERT_PATH", "")

	// DC_BACKEND_TIMEOUT — таймаут запросов к backend (по умолчанию 30s)
	cfg.BackendTimeout, err = getEnvDuration("DC_BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_BACKEND_TIMEOUT: %w", err)
	}

	// DC_REGULA_PATH, DC_RFID_PATH — пути ресурсов устройств
	cfg.RegulaPath = normalizePath(getEnvDefault("DC_REGULA_PATH", "/api/v1/regula"))
	cfg.RfidPath = normalizePath(getEnvDefault("DC_RFID_PATH", "/api/v1/fake_rfid"))

	// DC_BACKEND_HEALTH_PATH — путь проверки доступности (по умолчанию /docs)
	cfg.BackendHealthPath = getEnvDefault("DC_BACKEND_HEALTH_PATH", "/docs")

	// --- Фото ---

	// DC_PHOTO_UPLOAD_ENCODING — json (по умолчанию) или multipart
	cfg.PhotoUploadEncoding = getEnvDefault("DC_PHOTO_UPLOAD_ENCODING", UploadEncodingJSON)
	if cfg.PhotoUploadEncoding != UploadEncodingJSON && cfg.PhotoUploadEncoding != UploadEncodingMultipart {
		return nil, fmt.Errorf("DC_PHOTO_UPLOAD_ENCODING: недопустимое значение %q, допустимые: json, multipart", cfg.PhotoUploadEncoding)
	}

	// DC_MAX_UPLOAD_BYTES — максимальный размер фото (по умолчанию 10 MiB)
	maxUpload, err := getEnvInt("DC_MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("DC_MAX_UPLOAD_BYTES: %w", err)
	}
	if maxUpload < 1 {
		return nil, fmt.Errorf("DC_MAX_UPLOAD_BYTES: значение %d должно быть положительным", maxUpload)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	// DC_UPLOAD_RATE_LIMIT — загрузок в минуту с одного IP (по умолчанию 30)
	cfg.UploadRateLimit, err = getEnvInt("DC_UPLOAD_RATE_LIMIT", 30)
	if err != nil {
		return nil, fmt.Errorf("DC_UPLOAD_RATE_LIMIT: %w", err)
	}
	if cfg.UploadRateLimit < 1 {
		return nil, fmt.Errorf("DC_UPLOAD_RATE_LIMIT: значение %d должно быть положительным", cfg.UploadRateLimit)
	}

	// DC_PHOTO_CACHE_SIZE — размер кэша байтов фото (по умолчанию 256)
	cfg.PhotoCacheSize, err = getEnvInt("DC_PHOTO_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("DC_PHOTO_CACHE_SIZE: %w", err)
	}
	if cfg.PhotoCacheSize < 1 || cfg.PhotoCacheSize > 100000 {
		return nil, fmt.Errorf("DC_PHOTO_CACHE_SIZE: значение %d вне допустимого диапазона 1-100000", cfg.PhotoCacheSize)
	}

	// DC_PHOTO_CACHE_TTL — время жизни записи кэша (по умолчанию 10m)
	cfg.PhotoCacheTTL, err = getEnvDuration("DC_PHOTO_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DC_PHOTO_CACHE_TTL: %w", err)
	}

	// --- UI ---

	// DC_NOTIFY_TTL — время показа уведомления (по умолчанию 5s)
	cfg.NotifyTTL, err = getEnvDuration("DC_NOTIFY_TTL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_NOTIFY_TTL: %w", err)
	}
	if cfg.NotifyTTL <= 0 {
		return nil, fmt.Errorf("DC_NOTIFY_TTL: значение %s должно быть положительным", cfg.NotifyTTL)
	}

	// DC_SSE_KEEPALIVE — интервал keepalive SSE (по умолчанию 15s)
	cfg.SSEKeepalive, err = getEnvDuration("DC_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_SSE_KEEPALIVE: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("DC_DEPHEALTH_GROUP", "fakedevices")

	cfg.DephealthCheckInterval, err = getEnvDuration("DC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Трассировка ---

	cfg.OTelEndpoint = getEnvDefault("DC_OTEL_ENDPOINT", "")

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("DC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// normalizePath приводит путь ресурса к виду "/a/b": ведущий слэш, без завершающего.
func normalizePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
