// Точка входа Device Console — веб-консоли симулируемых устройств
// (паспортный сканер Regula и RFID-считыватели).
// Загружает конфигурацию, создаёт клиент backend устройств, хранилища
// состояния и редакторы, запускает topologymetrics и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/fakedevices/device-console/internal/api/handlers"
	"github.com/bigkaa/fakedevices/device-console/internal/config"
	"github.com/bigkaa/fakedevices/device-console/internal/deviceclient"
	"github.com/bigkaa/fakedevices/device-console/internal/domain/model"
	"github.com/bigkaa/fakedevices/device-console/internal/notify"
	"github.com/bigkaa/fakedevices/device-console/internal/server"
	"github.com/bigkaa/fakedevices/device-console/internal/service"
	"github.com/bigkaa/fakedevices/device-console/internal/telemetry"
	uihandlers "github.com/bigkaa/fakedevices/device-console/internal/ui/handlers"
	"github.com/bigkaa/fakedevices/device-console/internal/ui/i18n"
)

const serviceName = "device-console"

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Device Console запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.BackendURL),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Трассировка
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, serviceName, config.Version, logger)
	if err != nil {
		logger.Error("Ошибка настройки трассировки", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Переводы интерфейса
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Клиент backend устройств
	client, err := deviceclient.New(deviceclient.Options{
		BaseURL:         cfg.BackendURL,
		RegulaPath:      cfg.RegulaPath,
		RfidPath:        cfg.RfidPath,
		HealthPath:      cfg.BackendHealthPath,
		CACertPath:      cfg.BackendCACertPath,
		Timeout:         cfg.BackendTimeout,
		MultipartUpload: cfg.PhotoUploadEncoding == config.UploadEncodingMultipart,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Уведомления и рассылка изменений состояния
	hub := notify.NewHub(cfg.NotifyTTL, logger)
	events := service.NewBroadcaster()

	// 7. Хранилища и редакторы
	regulaStore := service.NewCollection[model.RegulaRecord](
		"regula", service.SourceRegula, client.ListRegula, hub, events, logger)
	rfidStore := service.NewCollection[model.RfidRecord](
		"rfid", service.SourceRfid, client.ListRfid, hub, events, logger)
	photos := service.NewPhotoCache(client, cfg.PhotoCacheSize, cfg.PhotoCacheTTL, logger)

	regulaEditor := service.NewRegulaEditor(ctx, client, regulaStore, photos, hub, events, logger)
	rfidEditor := service.NewRfidEditor(client, rfidStore, hub, events, logger)

	regulaBulk := service.NewBulkActions(regulaStore, service.BulkConfig{
		DeleteMany:      client.DeleteManyRegula,
		DeleteOne:       client.DeleteRegula,
		BulkDeletedKey:  service.MsgRegulaBulkDeleted,
		BulkFailedKey:   service.MsgRegulaBulkDelFailed,
		DeletedKey:      service.MsgRegulaDeleted,
		DeleteFailedKey: service.MsgRegulaDeleteFailed,
	}, hub, events, logger)
	rfidBulk := service.NewBulkActions(rfidStore, service.BulkConfig{
		DeleteMany:     client.DeleteManyRfid,
		BulkDeletedKey: service.MsgRfidBulkDeleted,
		BulkFailedKey:  service.MsgRfidBulkDelFailed,
	}, hub, events, logger)

	// 8. topologymetrics — мониторинг backend устройств
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:      serviceName,
		Group:          cfg.DephealthGroup,
		DependencyName: "device-backend",
		BackendURL:     cfg.BackendURL,
		HealthPath:     cfg.BackendHealthPath,
		CheckInterval:  cfg.DephealthCheckInterval,
		CustomCA:       cfg.BackendCACertPath != "",
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 9. HTTP handlers
	checks := []handlers.Check{{Name: "backend", Critical: true, Probe: client}}
	if dephealthSvc != nil {
		checks = append(checks, handlers.Check{Name: "dependency_monitor", Probe: dephealthSvc})
	}
	layout := uihandlers.Layout{Toasts: hub, TTL: cfg.NotifyTTL}
	regulaHandler := uihandlers.NewRegulaHandler(regulaStore, regulaEditor, regulaBulk, photos, layout,
		uihandlers.RegulaConfig{
			DeviceURL:      client.BaseURL() + "/regula/{id}",
			MaxUploadBytes: cfg.MaxUploadBytes,
		}, logger)
	rfidHandler := uihandlers.NewRfidHandler(rfidStore, rfidEditor, rfidBulk, layout,
		client.BaseURL()+client.RfidPath()+"/{rfid_id}/", logger)
	toastsHandler := uihandlers.NewToastsHandler(hub, cfg.NotifyTTL, logger)
	eventsHandler := uihandlers.NewEventsHandler(events, hub, cfg.SSEKeepalive, logger)

	srv := server.New(cfg, logger, server.Components{
		Health:       handlers.NewHealthHandler(checks...),
		Regula:       regulaHandler,
		Rfid:         rfidHandler,
		Events:       eventsHandler.HandleEvents,
		ToastList:    toastsHandler.HandleList,
		ToastDismiss: toastsHandler.HandleDismiss,
		SetLanguage:  uihandlers.HandleSetLanguage,
	})
	// Закрытие рассылок завершает открытые потоки /events.
	srv.RegisterOnShutdown(func() {
		events.Close()
		hub.Close()
	})

	// 10. Запуск HTTP-сервера
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	stop()
	regulaEditor.Close()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("Ошибка остановки трассировки", slog.String("error", err.Error()))
	}

	logger.Info("Device Console остановлен")
}
