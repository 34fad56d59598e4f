package main

import (
	"time"

	"github.com/spf13/cobra"

	"crew-schedule-bot/internal/models"
)

func newAbsenceCmd(opts *rootOptions) *cobra.Command {
	var (
		workerID    uint
		absenceType string
		startDate   string
		endDate     string
		motif       string
	)

	cmd := &cobra.Command{
		Use:   "absence",
		Short: "Register a long absence and create the current week's ghost timesheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := dateUTC(startDate)
			if err != nil {
				return err
			}

			e, err := openEngine(opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			absence := &models.LongAbsence{
				EnterpriseID: e.enterpriseID,
				WorkerID:     workerID,
				Type:         absenceType,
				StartDate:    start,
			}
			if endDate != "" {
				end, err := dateUTC(endDate)
				if err != nil {
					return err
				}
				absence.EndDate = &end
			}
			if motif != "" {
				absence.Motif = &motif
			}

			began := time.Now()
			res, err := e.absence.RegisterAbsence(cmd.Context(), absence)
			return writeResult("absence", began, map[string]any{"absence": absence, "ghost": res}, err)
		},
	}

	cmd.Flags().UintVar(&workerID, "worker", 0, "Worker id (required)")
	cmd.Flags().StringVar(&absenceType, "type", models.AbsenceTypeSickLeave, "Absence type")
	cmd.Flags().StringVar(&startDate, "start", time.Now().UTC().Format("2006-01-02"), "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD), empty for open-ended")
	cmd.Flags().StringVar(&motif, "motif", "", "Free-text reason")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}
