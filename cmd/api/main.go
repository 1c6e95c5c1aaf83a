package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/config"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/hris-payroll-ledger/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/messaging/kafka"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/authz"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/repository/postgresql"
	payrollService "github.com/cmlabs-hris/hris-payroll-ledger/internal/service/payroll"
	rewardService "github.com/cmlabs-hris/hris-payroll-ledger/internal/service/reward"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const appName = "hris-payroll-ledger"

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, logger.Options{App: appName, Version: version, Env: cfg.App.Env, Level: cfg.SlogLevel()})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	contractRepo := postgresql.NewContractRepository(db)
	rewardRepo := postgresql.NewRewardRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	enforcer, err := authz.NewEnforcer(user.RolePermissions)
	if err != nil {
		return fmt.Errorf("build authorizer: %w", err)
	}

	opts := []payrollService.Option{
		payrollService.WithLocation(cfg.Location()),
		payrollService.WithStatsConcurrency(cfg.Payroll.StatsConcurrency),
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		opts = append(opts, payrollService.WithStatsCache(cache.NewStatsCache(rdb, cfg.Redis.StatsTTL)))
		log.Info("stats cache enabled", slog.String("addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.StatsTTL))
	}

	if cfg.Kafka.Enabled {
		writer := kafka.NewWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		opts = append(opts, payrollService.WithEventPublisher(kafka.NewStatusPublisher(writer, cfg.Kafka.StatusChangedTopic)))
		log.Info("status events enabled", slog.String("topic", cfg.Kafka.StatusChangedTopic))
	}

	payrollSvc := payrollService.NewPayrollLedgerService(payrollRepo, employeeRepo, contractRepo, rewardRepo, enforcer, opts...)
	rewardSvc := rewardService.NewRewardService(db, rewardRepo, employeeRepo, payrollSvc, enforcer)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:         log,
			LogLevel:       cfg.SlogLevel(),
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		enforcer,
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewRewardHandler(rewardSvc),
	)

	if cfg.Payroll.StatsWarmupEnabled && cfg.Redis.Enabled {
		scheduler := cron.NewScheduler(log)
		cron.NewStatsJobs(employeeRepo, payrollSvc, cfg.Payroll.StatsWarmupEvery, log).RegisterJobs(scheduler)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
