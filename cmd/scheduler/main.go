package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-documents/internal/cache"
	"github.com/segyhp/loan-documents/internal/config"
	"github.com/segyhp/loan-documents/internal/repository"
	"github.com/segyhp/loan-documents/internal/scheduler"
	"github.com/segyhp/loan-documents/internal/service"
	"github.com/segyhp/loan-documents/pkg/logger"
	"github.com/segyhp/loan-documents/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging)
	log.Info("Starting loan scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	clock := utils.SystemClock{Location: cfg.Location()}
	loanService := service.NewLoanService(
		repository.NewLoanRepository(db),
		repository.NewInstallmentRepository(db),
		repository.NewDocumentRepository(db),
		cache.NewRedisScheduleCache(redisClient, cfg.Redis.ScheduleTTL),
		cfg,
		clock,
		log,
	)

	// Initialize cron scheduler in the business timezone
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location()))

	jobs := scheduler.NewJobs(loanService, clock, cfg.Scheduler.ReminderWindow, log)
	if err := jobs.Register(c, cfg.Scheduler); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}
