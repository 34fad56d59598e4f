package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/config"
	"crew-schedule-bot/internal/database"
	"crew-schedule-bot/internal/handler"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/internal/service"
	"crew-schedule-bot/pkg/telegram"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetConfig()
	logrus.SetLevel(cfg.Level())
	logrus.Info("Config initialized...")

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatal("Failed to get database instance:", err)
	}

	operatorRepo, err := repository.NewOperatorRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create operator repository")
	}
	store := repository.NewStore(db)
	locks := service.NewWorkerLocks()

	operatorService := service.NewOperatorService(operatorRepo)
	propagationService := service.NewPropagationService(store, locks, cfg.PropagationWorkers)
	reconcileService := service.NewReconcileService(store, locks, service.ReconcileOptions{
		ProtectLongAbsence: cfg.ReconcileProtectLongAbsence,
	})
	absenceService := service.NewAbsenceService(store, locks, time.Now)
	scheduleService := service.NewScheduleService(store, locks, reconcileService, time.Now)

	// Инициализируем администратора из конфига
	if err := operatorService.InitializeAdmin(cfg.BaseAdminChatID, cfg.EnterpriseID); err != nil {
		logrus.Infof("Warning: Failed to initialize admin: %v", err)
	} else if cfg.BaseAdminChatID != 0 {
		logrus.Infof("Admin initialized with chat ID: %d", cfg.BaseAdminChatID)
	}

	client, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramDebug)
	if err != nil {
		logrus.Fatal("Failed to create Telegram client:", err)
	}

	logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(
		client,
		operatorService,
		propagationService,
		reconcileService,
		absenceService,
		scheduleService,
		cfg,
	)

	// Метрики движка
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server stopped")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	updates := client.Bot.GetUpdatesChan(client.UpdateConfig)
	done := make(chan struct{})
	go func() {
		botHandler.HandleUpdates(ctx, updates)
		close(done)
	}()

	logrus.Info("Bot started. Press Ctrl+C to stop.")
	<-ctx.Done()

	client.Stop()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logrus.Infof("Error stopping metrics server: %v", err)
	}

	// Закрываем соединение с БД
	if err := sqlDB.Close(); err != nil {
		logrus.Infof("Error closing database: %v", err)
	}

	logrus.Info("Bot stopped gracefully")
}
