package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"villabook/internal/api"
	"villabook/internal/availability"
	"villabook/internal/calendar"
	"villabook/internal/config"
	"villabook/internal/metrics"
	"villabook/internal/money"
	"villabook/internal/pricing"
	"villabook/internal/store"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("VILLABOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	fees, err := parseFees(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid pricing config")
	}
	engine := pricing.NewEngine(fees)

	tariffStore, sqliteDB, err := buildTariffStore(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open tariff store")
	}
	if sqliteDB != nil {
		defer sqliteDB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenOpt, err := calendar.TokenClientOption(ctx, cfg.Calendar.CredentialsPath, cfg.Calendar.TokenPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load calendar credentials")
	}
	source, err := calendar.NewSource(ctx, logger, tokenOpt)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create calendar source")
	}

	var busy availability.BusySource = source
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		busy = calendar.NewCachedSource(source, rdb, time.Duration(cfg.Redis.CacheTTLSeconds)*time.Second)
	}

	planner := availability.NewPlanner(busy, tariffStore, engine, availability.Policy{
		HorizonMonths: cfg.Booking.HorizonMonths,
		MinStayNights: cfg.Booking.MinStayNights,
	}, logger)

	server := api.New(planner, tariffStore, cfg.Rooms, cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst, logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, sqliteDB, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

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

	logger.Info().Int("port", cfg.Server.Port).Int("rooms", len(cfg.Rooms)).Msg("villabook started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func parseFees(cfg *config.Config) (pricing.Fees, error) {
	extraAdult, err := money.Parse(cfg.Pricing.ExtraAdultRate)
	if err != nil {
		return pricing.Fees{}, fmt.Errorf("extra_adult_rate: %w", err)
	}
	petFee, err := money.Parse(cfg.Pricing.PetFee)
	if err != nil {
		return pricing.Fees{}, fmt.Errorf("pet_fee: %w", err)
	}
	cleaningFee, err := money.Parse(cfg.Pricing.CleaningFee)
	if err != nil {
		return pricing.Fees{}, fmt.Errorf("cleaning_fee: %w", err)
	}
	return pricing.Fees{
		ExtraAdultRate: extraAdult,
		PetFee:         petFee,
		CleaningFee:    cleaningFee,
	}, nil
}

func buildTariffStore(cfg *config.Config, logger *zerolog.Logger) (api.TariffStore, *store.DB, error) {
	switch cfg.Tariffs.Backend {
	case "csv":
		return store.NewCSVStore(cfg.Tariffs.CSVDir), nil, nil
	case "sqlite":
		db, err := store.NewDB(cfg.Tariffs.DBPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown tariff backend %q", cfg.Tariffs.Backend)
	}
}

func startHealthServer(ctx context.Context, port int, db *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctxPing); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
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
