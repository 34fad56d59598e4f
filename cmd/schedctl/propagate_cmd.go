package main

import (
	"time"

	"github.com/spf13/cobra"

	"crew-schedule-bot/pkg/weekkey"
)

func newPropagateCmd(opts *rootOptions) *cobra.Command {
	var (
		workerID uint
		from     string
		to       string
	)

	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Copy one worker's assignments, timesheets and transport from one week to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := weekOrCurrent(from)
			if err != nil {
				return err
			}
			dest := source.Shift(1)
			if to != "" {
				if dest, err = weekkey.Parse(to); err != nil {
					return err
				}
			}

			e, err := openEngine(opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			start := time.Now()
			res, err := e.propagation.Propagate(cmd.Context(), e.enterpriseID, workerID, source, dest)
			return writeResult("propagate", start, res, err)
		},
	}

	cmd.Flags().UintVar(&workerID, "worker", 0, "Worker id (required)")
	cmd.Flags().StringVar(&from, "from", "", "Source week, e.g. 2025-S10 (default current week)")
	cmd.Flags().StringVar(&to, "to", "", "Destination week (default the week after --from)")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func newPropagateSiteCmd(opts *rootOptions) *cobra.Command {
	var (
		siteID uint
		from   string
	)

	cmd := &cobra.Command{
		Use:   "propagate-site",
		Short: "Copy the whole crew of a site into the next week",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := weekOrCurrent(from)
			if err != nil {
				return err
			}

			e, err := openEngine(opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			start := time.Now()
			report, err := e.propagation.PropagateSite(cmd.Context(), e.enterpriseID, siteID, source, source.Shift(1))
			if err != nil {
				return writeResult("propagate-site", start, nil, err)
			}
			return writeResult("propagate-site", start, report, report.Err())
		},
	}

	cmd.Flags().UintVar(&siteID, "site", 0, "Site id (required)")
	cmd.Flags().StringVar(&from, "from", "", "Source week (default current week)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func newPropagateCrewCmd(opts *rootOptions) *cobra.Command {
	var (
		workerIDs []uint
		from      string
	)

	cmd := &cobra.Command{
		Use:   "propagate-crew",
		Short: "Copy a list of workers into the next week, one transaction per worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := weekOrCurrent(from)
			if err != nil {
				return err
			}

			e, err := openEngine(opts, nil)
			if err != nil {
				return err
			}
			defer e.close()

			start := time.Now()
			report := e.propagation.PropagateCrew(cmd.Context(), e.enterpriseID, workerIDs, source, source.Shift(1))
			return writeResult("propagate-crew", start, report, report.Err())
		},
	}

	cmd.Flags().UintSliceVar(&workerIDs, "workers", nil, "Worker ids, comma separated (required)")
	cmd.Flags().StringVar(&from, "from", "", "Source week (default current week)")
	_ = cmd.MarkFlagRequired("workers")
	return cmd
}
