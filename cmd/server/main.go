package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turfbook/internal/api"
	"turfbook/internal/calendar"
	"turfbook/internal/config"
	"turfbook/internal/domain"
	"turfbook/internal/events"
	"turfbook/internal/feed"
	"turfbook/internal/logging"
	"turfbook/internal/metrics"
	"turfbook/internal/models"
	"turfbook/internal/notify"
	"turfbook/internal/repository"
	"turfbook/internal/service"
	"turfbook/internal/store"
	"turfbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	loc, err := resolveTimezone(cfg.App.Timezone)
	if err != nil {
		logger.Error().Err(err).Str("timezone", cfg.App.Timezone).Msg("Неизвестный часовой пояс")
		return err
	}

	redisClient, cache := initOccupancyCache(ctx, cfg, &logger)

	eventBus := events.NewEventBus()
	subscribeCacheRefresh(ctx, eventBus, cache, &logger)

	notifyWorker, err := startNotifyWorker(ctx, cfg, db, redisClient, &logger)
	if err != nil {
		return err
	}

	var enqueuer domain.NotifyEnqueuer
	if notifyWorker != nil {
		enqueuer = notifyWorker
	}

	metrics.Register()

	cal := calendar.NewGenerator(loc)
	bookingService := service.NewBookingService(db, cache, eventBus, enqueuer, cal, cfg.Booking, &logger)
	exportService := service.NewExportService(bookingService, cfg.Exports.Path)
	hub := feed.NewHub(db, eventBus, &logger)

	if cfg.Backup.Enabled {
		backupService := store.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	if cfg.Monitoring.PrometheusEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
			logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	apiServer := api.NewServer(cfg.API, bookingService, exportService, hub, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API shutdown error")
	}
	if redisClient != nil {
		_ = repository.Close(redisClient)
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func resolveTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func initOccupancyCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.OccupancyCache) {
	ttl := time.Duration(models.OccupancyCacheTTL) * time.Second
	fallback := repository.NewMemoryOccupancyCache(ttl)

	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, fallback
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable")
	}

	primary := repository.NewRedisOccupancyCache(redisClient, ttl)
	return redisClient, repository.NewFailoverOccupancyCache(primary, fallback, logger)
}

func startNotifyWorker(ctx context.Context, cfg *config.Config, db *store.Store, redisClient *redis.Client, logger *zerolog.Logger) (*worker.NotifyWorker, error) {
	if !cfg.Notify.Enabled {
		return nil, nil
	}

	bot, err := notify.NewBot(cfg.Notify.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return nil, err
	}

	notifier := notify.NewTelegramNotifier(bot, cfg.Notify.OperatorChatID, logger)
	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	notifyWorker := worker.NewNotifyWorker(db, notifier, redisClient, retryPolicy, logger)
	go notifyWorker.Start(ctx)
	return notifyWorker, nil
}

// subscribeCacheRefresh инвалидирует кэш занятости при каждом событии
// изменения: следующий читатель получит свежий снимок из базы.
func subscribeCacheRefresh(ctx context.Context, bus *events.EventBus, cache domain.OccupancyCache, logger *zerolog.Logger) {
	if bus == nil || cache == nil {
		return
	}

	bus.Subscribe(events.EventOccupancyChanged, func(ev *events.Event) error {
		var payload events.OccupancyEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Msg("event bus: decode occupancy payload")
			return nil
		}

		if err := cache.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("event bus: cache invalidate")
		}
		return nil
	})
}
