package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/kvsession"
	"github.com/aretw0/kvsession/internal/demo"
	"github.com/aretw0/kvsession/internal/presentation/tui"
	httpAdapter "github.com/aretw0/kvsession/pkg/adapters/http"
	"github.com/aretw0/kvsession/pkg/adapters/memory"
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/aretw0/kvsession/pkg/observability"
	"github.com/aretw0/kvsession/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the scripted tour of the session operations",
	Long: `Connects, stores and reads back strings, hashes, lists, sets and counters,
waits for an expiring key to disappear, deletes every demo key and closes.
With --metrics-addr the health, metrics and event endpoints are served during the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		plain, _ := cmd.Flags().GetBool("plain")
		if metricsAddr == "" {
			metricsAddr = appConfig.MetricsAddr
		}

		opts := demo.DefaultOptions()
		opts.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")
		opts.ExpireAfter, _ = cmd.Flags().GetDuration("expire-after")
		opts.CleanupAfter, _ = cmd.Flags().GetDuration("cleanup-after")
		opts.Logger = logger

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
		var registry *prometheus.Registry
		events := httpAdapter.NewEventStream()
		if metricsAddr != "" {
			registry = prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			hooks = append(hooks, observability.NewMetrics(registry).Hooks(), events.Hooks())
		}
		sessOpts := []session.Option{
			session.WithLogger(logger),
			session.WithHooks(observability.Combine(hooks...)),
		}

		var sess *session.Session
		if dryRun {
			tr, err := memory.New()
			if err != nil {
				return err
			}
			sess = session.New(tr, appConfig.Session, sessOpts...)
		} else {
			var err error
			sess, err = kvsession.Open(appConfig.Session, sessOpts...)
			if err != nil {
				return err
			}
		}
		defer sess.Close()

		if registry != nil {
			srv := &http.Server{
				Addr: metricsAddr,
				Handler: httpAdapter.NewHandler(&httpAdapter.Server{
					Status:  sess,
					Events:  events,
					Version: strings.TrimSpace(kvsession.Version),
					Logger:  logger,
				}, registry),
			}
			go func() {
				logger.Info("Serving status endpoints", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Status server failed", "err", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Graceful shutdown did not complete", "err", err)
					_ = srv.Close()
				}
			}()
		}

		if _, err := sess.Connect().Await(ctx); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		report, err := demo.Run(ctx, sess, opts)
		if err != nil {
			return err
		}

		markdown := tui.ReportMarkdown(report)
		if plain {
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		}
		render, err := tui.NewRenderer("")
		if err != nil {
			return err
		}
		out, err := render(markdown)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	defaults := demo.DefaultOptions()
	demoCmd.Flags().Bool("dry-run", false, "Use the in-memory store instead of Redis")
	demoCmd.Flags().String("metrics-addr", "", "Serve /healthz, /metrics and /events on this address during the run")
	demoCmd.Flags().Bool("plain", false, "Print the report as raw markdown")
	demoCmd.Flags().Duration("poll-interval", defaults.PollInterval, "How often the expiring key is read")
	demoCmd.Flags().Duration("expire-after", defaults.ExpireAfter, "TTL of the expiring key")
	demoCmd.Flags().Duration("cleanup-after", defaults.CleanupAfter, "Delay before the demo keys are deleted")
}
