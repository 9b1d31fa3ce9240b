package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"safeshift/internal/dashboard"
	"safeshift/internal/platform/httpserver"
)

const metricsShutdownTimeout = 5 * time.Second

func (a *app) dashboardService() (*dashboard.Service, error) {
	return dashboard.New(a.client, dashboard.WithLogger(a.logger), dashboard.WithMetrics(a.metrics))
}

func addDashboard(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show report counts and the latest reports.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.currentUser(); err != nil {
				return err
			}
			svc, err := a.dashboardService()
			if err != nil {
				return err
			}
			if err := svc.Refresh(cmd.Context()); err != nil {
				return err
			}
			snap, _ := svc.Snapshot()
			printMetrics(a.out, snap.Metrics, snap.FetchedAt)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addWatch(topLevel *cobra.Command, a *app) {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the dashboard on screen, refreshing periodically.",
		Long: `Keep the dashboard on screen, refreshing periodically.

The session heartbeat keeps running while watching. When metrics.addr is
set, client metrics are served on /metrics at that address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.currentUser(); err != nil {
				return err
			}
			svc, err := a.dashboardService()
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			if addr := a.cfg.MetricsAddr; addr != "" {
				srv := httpserver.New(addr, httpserver.MetricsHandler(a.registry))
				g.Go(func() error {
					a.logger.InfoContext(ctx, "serving metrics", "addr", addr)
					return httpserver.Run(ctx, srv, metricsShutdownTimeout)
				})
			}
			g.Go(func() error {
				// a finished watch stops the metrics server too
				defer cancel()
				return svc.Watch(ctx, every, func(snap dashboard.Snapshot, err error) {
					if err != nil {
						_, _ = color.New(color.FgYellow).Fprintf(a.errOut, "refresh failed: %v\n", err)
						if snap.FetchedAt.IsZero() {
							return
						}
					}
					_, _ = fmt.Fprint(a.out, "\033[H\033[2J")
					printMetrics(a.out, snap.Metrics, snap.FetchedAt)
				})
			})
			return g.Wait()
		},
	}
	cmd.Flags().DurationVar(&every, "every", 30*time.Second, "refresh interval")
	topLevel.AddCommand(cmd)
}

func addDepartments(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:     "departments",
		Aliases: []string{"depts"},
		Short:   "List departments.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			depts, err := a.client.ListDepartments(cmd.Context())
			if err != nil {
				return err
			}
			printDepartments(a.out, depts)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}
