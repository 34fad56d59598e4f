package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crew-schedule-bot/internal/config"
	"crew-schedule-bot/internal/database"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/internal/service"
)

type rootOptions struct {
	enterprise string
}

// engine - сервисы движка над одним подключением
type engine struct {
	enterpriseID uuid.UUID
	store        *repository.Store
	propagation  *service.PropagationService
	reconcile    *service.ReconcileService
	absence      *service.AbsenceService
	close        func()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "schedctl",
		Short:         "Crew schedule engine maintenance: week propagation, ghost cleanup, absences",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.enterprise, "enterprise", "", "Enterprise UUID (defaults to ENTERPRISE_ID)")

	cmd.AddCommand(
		newPropagateCmd(opts),
		newPropagateSiteCmd(opts),
		newPropagateCrewCmd(opts),
		newReconcileCmd(opts),
		newRunsCmd(opts),
		newAbsenceCmd(opts),
	)
	return cmd
}

func openEngine(opts *rootOptions, reconcileOpts *service.ReconcileOptions) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(cfg.Level())

	enterpriseID := cfg.EnterpriseID
	if opts.enterprise != "" {
		enterpriseID, err = uuid.Parse(opts.enterprise)
		if err != nil {
			return nil, fmt.Errorf("invalid --enterprise: %w", err)
		}
	}
	if enterpriseID == uuid.Nil {
		return nil, fmt.Errorf("enterprise is required: pass --enterprise or set ENTERPRISE_ID")
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ro := service.ReconcileOptions{ProtectLongAbsence: cfg.ReconcileProtectLongAbsence}
	if reconcileOpts != nil {
		ro = *reconcileOpts
	}

	store := repository.NewStore(db)
	locks := service.NewWorkerLocks()
	return &engine{
		enterpriseID: enterpriseID,
		store:        store,
		propagation:  service.NewPropagationService(store, locks, cfg.PropagationWorkers),
		reconcile:    service.NewReconcileService(store, locks, ro),
		absence:      service.NewAbsenceService(store, locks, nil),
		close:        func() { _ = sqlDB.Close() },
	}, nil
}
