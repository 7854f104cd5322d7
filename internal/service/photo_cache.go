// photo_cache.go — LRU-кэш байтов фото паспортов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	photoCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dc_photo_cache_hits_total",
		Help: "Общее количество попаданий в кэш фото.",
	})
	photoCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dc_photo_cache_misses_total",
		Help: "Общее количество промахов кэша фото.",
	})
)

// PhotoFetcher загружает байты фото с backend.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, id int64) (*model.PhotoImage, error)
}

// PhotoCache — кэш байтов фото, которые консоль отдаёт браузеру
// через /devices/regula/photos/{id}/image.
type PhotoCache struct {
	cache   *expirable.LRU[int64, *model.PhotoImage]
	fetcher PhotoFetcher
	logger  *slog.Logger
}

// NewPhotoCache создаёт кэш на maxSize фото с временем жизни ttl.
func NewPhotoCache(fetcher PhotoFetcher, maxSize int, ttl time.Duration, logger *slog.Logger) *PhotoCache {
	return &PhotoCache{
		cache:   expirable.NewLRU[int64, *model.PhotoImage](maxSize, nil, ttl),
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "photo_cache")),
	}
}

// Get возвращает фото из кэша или загружает его с backend.
func (c *PhotoCache) Get(ctx context.Context, id int64) (*model.PhotoImage, error) {
	if img, ok := c.cache.Get(id); ok {
		photoCacheHitsTotal.Inc()
		return img, nil
	}
	photoCacheMissesTotal.Inc()

	img, err := c.fetcher.FetchPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, img)
	return img, nil
}

// Evict удаляет фото из кэша (после удаления на backend).
func (c *PhotoCache) Evict(id int64) {
	if c == nil {
		return
	}
	if c.cache.Remove(id) {
		c.logger.Debug("Фото удалено из кэша", slog.Int64("photo_id", id))
	}
}

// Len — количество фото в кэше.
func (c *PhotoCache) Len() int {
	return c.cache.Len()
}
