package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/hris-payroll-ledger/internal/config"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/messaging/kafka"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/authz"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-payroll-ledger/internal/repository/postgresql"
	payrollService "github.com/cmlabs-hris/hris-payroll-ledger/internal/service/payroll"
	rewardService "github.com/cmlabs-hris/hris-payroll-ledger/internal/service/reward"
	"github.com/redis/go-redis/v9"
)

const appName = "hris-payroll-ledger-consumer"

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("consumer stopped", slog.Any("error", err))
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

	if !cfg.Kafka.Enabled {
		return fmt.Errorf("KAFKA_ENABLED must be true to run the consumer")
	}

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
	rewardRepo := postgresql.NewRewardRepository(db)

	enforcer, err := authz.NewEnforcer(user.RolePermissions)
	if err != nil {
		return fmt.Errorf("build authorizer: %w", err)
	}

	writer := kafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()

	opts := []payrollService.Option{
		payrollService.WithLocation(cfg.Location()),
		payrollService.WithEventPublisher(kafka.NewStatusPublisher(writer, cfg.Kafka.StatusChangedTopic)),
	}

	// Bonus writes must invalidate the cache the API serves stats from.
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		opts = append(opts, payrollService.WithStatsCache(cache.NewStatsCache(rdb, cfg.Redis.StatsTTL)))
	}

	payrollSvc := payrollService.NewPayrollLedgerService(
		postgresql.NewPayrollRepository(db),
		employeeRepo,
		postgresql.NewContractRepository(db),
		rewardRepo,
		enforcer,
		opts...,
	)
	rewardSvc := rewardService.NewRewardService(db, rewardRepo, employeeRepo, payrollSvc, enforcer)

	reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BonusPostedTopic)
	defer reader.Close()

	log.Info("consuming bonus events",
		slog.String("topic", cfg.Kafka.BonusPostedTopic),
		slog.String("group_id", cfg.Kafka.GroupID),
	)
	kafka.NewBonusConsumer(reader, rewardSvc, log).Run(ctx)
	return nil
}
