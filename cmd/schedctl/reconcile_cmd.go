package main

import (
	"time"

	"github.com/spf13/cobra"

	"crew-schedule-bot/internal/service"
)

func newReconcileCmd(opts *rootOptions) *cobra.Command {
	var (
		week         string
		supervisorID uint
		workerID     uint
		protect      bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete ghost timesheets of workers with no assignment in the previous week",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := weekOrCurrent(week)
			if err != nil {
				return err
			}

			var scope service.Scope
			if cmd.Flags().Changed("supervisor") {
				scope.SupervisorID = &supervisorID
			}
			if cmd.Flags().Changed("worker") {
				scope.WorkerID = &workerID
			}

			var reconcileOpts *service.ReconcileOptions
			if cmd.Flags().Changed("protect-long-absence") {
				reconcileOpts = &service.ReconcileOptions{ProtectLongAbsence: protect}
			}

			e, err := openEngine(opts, reconcileOpts)
			if err != nil {
				return err
			}
			defer e.close()

			start := time.Now()
			report, err := e.reconcile.Reconcile(cmd.Context(), e.enterpriseID, target, scope)
			if err != nil {
				return writeResult("reconcile", start, nil, err)
			}
			return writeResult("reconcile", start, report, report.Err())
		},
	}

	cmd.Flags().StringVar(&week, "week", "", "Target week (default current week)")
	cmd.Flags().UintVar(&supervisorID, "supervisor", 0, "Limit to the crew of this supervisor")
	cmd.Flags().UintVar(&workerID, "worker", 0, "Limit to one worker; deletes all of their ghosts in the week")
	cmd.Flags().BoolVar(&protect, "protect-long-absence", false, "Keep ghosts of workers whose long absence overlaps the week")
	cmd.MarkFlagsMutuallyExclusive("supervisor", "worker")
	return cmd
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the latest ghost cleanup runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			start := time.Now()
			runs, err := e.reconcile.LatestRuns(cmd.Context(), e.enterpriseID, limit)
			return writeResult("runs", start, runs, err)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs")
	return cmd
}
