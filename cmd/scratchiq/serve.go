package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Vodeneev/scratchiq/internal/pkg/performance"
	"github.com/Vodeneev/scratchiq/internal/pkg/scheduler"
	"github.com/Vodeneev/scratchiq/internal/pkg/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the daily scrape schedule and the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp("scratchiq")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.openStore(ctx); err != nil {
			return err
		}
		a.openSinks()

		guard := scheduler.NewGuard(a.orchestrator(a.store))

		if a.cfg.SchedulerEnabled() {
			sched := scheduler.New(guard, scheduler.Options{
				Spec:         a.cfg.Scheduler.Cron,
				Location:     a.cfg.Location(),
				RunOnStartup: a.cfg.RunOnStartup(),
			})
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
		} else {
			slog.Info("Scheduler disabled, cycles run only on manual trigger")
		}

		srv := server.New(server.Config{
			Addr:              a.cfg.Server.Addr,
			ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
			AllowedOrigins:    a.cfg.Server.AllowedOrigins,
			CycleTimeout:      a.cfg.Server.CycleTimeout,
		}, guard, a.store, performance.GetTracker())

		err = srv.Run(ctx)
		performance.GetTracker().PrintSummary()
		slog.Info("scratchiq stopped")
		return err
	},
}
