package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"safeshift/internal/fakeapi"
	"safeshift/internal/platform/config"
	"safeshift/internal/platform/httpserver"
	"safeshift/internal/platform/logger"
	"safeshift/internal/report"
)

const shutdownTimeout = 10 * time.Second

// main serves the in-memory development API until interrupted.
func main() {
	var (
		configPath   string
		addr         string
		keywords     []string
		flagSeverity string
	)
	cmd := &cobra.Command{
		Use:           "fakeapi",
		Short:         "Serve the SafeShift API from memory for local development.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.FakeAPI.Addr = addr
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			opts := []fakeapi.Option{
				fakeapi.WithLogger(log),
				fakeapi.WithMetrics(fakeapi.NewMetrics(reg)),
			}
			if !cfg.FakeAPI.Seed {
				opts = append(opts, fakeapi.WithoutSeed())
			}
			if len(keywords) > 0 {
				sev, err := report.ParseSeverity(flagSeverity)
				if err != nil {
					return err
				}
				opts = append(opts, fakeapi.WithFlagRules(fakeapi.RulesFromKeywords(keywords, sev)))
			}
			srv, err := fakeapi.New(cfg.FakeAPI.JWTSigningKey, cfg.FakeAPI.TokenTTL, opts...)
			if err != nil {
				return err
			}

			r := chi.NewRouter()
			srv.Register(r)
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			log.Info("starting safeshift development api", "addr", cfg.FakeAPI.Addr, "seeded", cfg.FakeAPI.Seed)
			return httpserver.Run(cmd.Context(), httpserver.New(cfg.FakeAPI.Addr, r), shutdownTimeout)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "config file")
	f.StringVar(&addr, "addr", "", "listen address (overrides fakeapi.addr)")
	f.StringSliceVar(&keywords, "flag-keyword", nil, "keyword that flags a report; replaces the defaults, repeatable")
	f.StringVar(&flagSeverity, "flag-severity", string(report.SeverityHigh), "severity raised by --flag-keyword matches")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fakeapi:", err)
		os.Exit(1)
	}
}
