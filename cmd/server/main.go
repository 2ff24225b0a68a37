package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/balbi1122/balbi-golf-booking/internal/api"
	"github.com/balbi1122/balbi-golf-booking/internal/audit"
	"github.com/balbi1122/balbi-golf-booking/internal/booking"
	"github.com/balbi1122/balbi-golf-booking/internal/cache"
	"github.com/balbi1122/balbi-golf-booking/internal/config"
	"github.com/balbi1122/balbi-golf-booking/internal/database"
	"github.com/balbi1122/balbi-golf-booking/internal/gcal"
	"github.com/balbi1122/balbi-golf-booking/internal/metrics"
	"github.com/balbi1122/balbi-golf-booking/internal/notify"
	"github.com/balbi1122/balbi-golf-booking/internal/schedule"
	"github.com/balbi1122/balbi-golf-booking/internal/secrets"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("GOLF_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid business timezone")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	recorder := audit.NewRecorder(db, &logger)
	defer recorder.Close()

	box, err := secrets.NewBox(cfg.Secrets.TokenSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("init credential box")
	}
	store := secrets.NewStore(db, box, cfg.Secrets.FallbackToken, recorder)

	rules := booking.Rules{
		Hours: schedule.Hours{
			OpenTime:      cfg.Business.OpenTime,
			CloseTime:     cfg.Business.CloseTime,
			SlotMinutes:   cfg.Business.SlotMinutes,
			BufferMinutes: cfg.Business.BufferMinutes,
			Location:      loc,
		},
		MaxPerDay:    cfg.Business.MaxPerDay,
		PriceCents:   cfg.Pricing.PriceCents,
		CashDiscount: cfg.Pricing.CashDiscount,
		PrepaidHours: cfg.Pricing.PrepaidHours,
	}
	svc := booking.NewService(db, rules, &logger)

	if cfg.Google.Enabled {
		svc.WithCalendar(gcal.New(cfg.Google.ClientID, cfg.Google.ClientSecret,
			cfg.Google.CalendarID, store, loc))
	}

	var notifier booking.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID != 0 {
		notifier, err = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
			notifier = nil
		} else {
			svc.WithNotifier(notifier)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	availCache := cache.New(rdb, cfg.CacheTTL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Backup.Dir,
			time.Duration(cfg.Backup.IntervalHours)*time.Hour, cfg.Backup.RetentionDays, &logger)
		go backup.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort != 0 {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)
	}
	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(svc, db, store, recorder, availCache, notifier, api.Options{
		AdminKey:           cfg.Server.AdminKey,
		SeedToken:          cfg.Server.SeedToken,
		RateLimitPerSecond: cfg.Server.RateLimitPerSecond,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
		Location:           loc,
	}, &logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("API running")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
