package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/nurpe/pharma-contracts/internal/auth"
	"github.com/nurpe/pharma-contracts/internal/config"
	"github.com/nurpe/pharma-contracts/internal/db"
	httphandler "github.com/nurpe/pharma-contracts/internal/http"
	"github.com/nurpe/pharma-contracts/internal/http/middleware"
	"github.com/nurpe/pharma-contracts/internal/lock"
	"github.com/nurpe/pharma-contracts/internal/logger"
	"github.com/nurpe/pharma-contracts/internal/metrics"
	"github.com/nurpe/pharma-contracts/internal/model"
	"github.com/nurpe/pharma-contracts/internal/repository"
	"github.com/nurpe/pharma-contracts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		contracts service.ContractStore
		medicines service.MedicineLookup
		ready     func(context.Context) error
	)
	if cfg.DB.DSN == config.MemoryDSN {
		log.Warn().Int("medicines", len(cfg.DB.SeedMedicines)).Msg("using in-memory store; data is lost on restart")
		seed := make([]model.Medicine, len(cfg.DB.SeedMedicines))
		for i, id := range cfg.DB.SeedMedicines {
			seed[i] = model.Medicine{ID: model.MedicineID(id), Name: id, Active: true}
		}
		store := repository.NewMemory(seed...)
		contracts, medicines = store, store
	} else {
		database, err := db.New(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect database")
		}
		sqlDB, err := database.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get database handle")
		}
		defer sqlDB.Close()

		contracts = repository.NewContractRepository(database)
		medicines = repository.NewMedicineRepository(database)
		ready = sqlDB.PingContext
	}

	locker, closeLocker := newLocker(ctx, cfg, log)
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	contractService := service.NewContractService(
		contracts,
		medicines,
		locker,
		cfg,
		log,
		service.WithMetrics(metrics.NewLedger(reg)),
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterConfig{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Log:            log,
		Gatherer:       reg,
		Ready:          ready,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("lock_backend", cfg.Lock.Backend).Msg("starting contracts service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func newLocker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (lock.Locker, func()) {
	if cfg.Lock.Backend != config.LockBackendRedis {
		return lock.NewKeyedMutex(cfg.Lock.Wait), func() {}
	}
	client, err := lock.NewRedisClient(ctx, cfg.Lock.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	return lock.NewRedisLocker(client, cfg.Lock.TTL, cfg.Lock.Wait, log), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis")
		}
	}
}
