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

	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/db"
	"github.com/richardliu001/school-rewards/internal/logger"
	"github.com/richardliu001/school-rewards/internal/metrics"
	"github.com/richardliu001/school-rewards/internal/repo"
	"github.com/richardliu001/school-rewards/internal/service"
	httptransport "github.com/richardliu001/school-rewards/internal/transport/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. load config
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "internal/config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := db.Open(cfg.Postgres)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("%v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 6. repo & services; events are relayed to Kafka by the poller
	repository := repo.NewRepository(gdb, rdb, nil, log)
	ledger := service.NewLedger(repository, log, m)
	inventory := service.NewInventory(repository, log, m)
	configs := service.NewPointsConfigs(repository, cfg.Points.Defaults, log)

	// 7. gin router
	gin.SetMode(gin.ReleaseMode)
	router := httptransport.NewRouter(httptransport.Deps{
		Ledger:      ledger,
		Inventory:   inventory,
		Orders:      service.NewOrders(repository, ledger, inventory, configs, log, m),
		Adjustments: service.NewAdjustments(ledger, configs, log, m),
		Awards:      service.NewAwards(ledger, configs),
		Deposits:    service.NewDeposits(ledger, configs, log, m),
		Configs:     configs,
		Metrics:     m,
		Gatherer:    reg,
		RateLimit:   cfg.RateLimit,
		Log:         log,
	})

	// 8. serve
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		log.Infof("school-rewards server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Warnf("redis close: %v", err)
	}
	log.Info("server stopped")
}
