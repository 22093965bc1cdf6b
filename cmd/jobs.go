package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-coinwallet/app/metrics"
	"github.com/vibast-solutions/ms-go-coinwallet/config"
)

const (
	jobPoll         = "payments_poll"
	jobCreditsRetry = "credits_retry"
	jobExpire       = "payments_expire"
)

var (
	workerMode bool
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Reconcile non-terminal payment intents against the provider",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			jobPoll,
			func(cfg *config.Config) time.Duration { return cfg.Jobs.PollInterval },
			func(app *application, ctx context.Context) error {
				_, err := app.payments.RunPollBatch(ctx)
				return err
			},
		)
	},
}

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Run payment intent maintenance commands",
}

var paymentsExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Cancel payment intents left pending past the configured timeout",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			jobExpire,
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpireInterval },
			func(app *application, ctx context.Context) error {
				_, err := app.payments.RunExpirePendingBatch(ctx)
				return err
			},
		)
	},
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Run wallet credit related commands",
}

var creditsRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry pending wallet credits for succeeded payments",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			jobCreditsRetry,
			func(cfg *config.Config) time.Duration { return cfg.Jobs.CreditRetryInterval },
			func(app *application, ctx context.Context) error {
				return app.payments.RunCreditRetryBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(paymentsCmd)
	paymentsCmd.AddCommand(paymentsExpireCmd)
	rootCmd.AddCommand(creditsCmd)
	creditsCmd.AddCommand(creditsRetryCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(app *application, ctx context.Context) error,
) {
	app := mustCreateApplication()
	defer app.Close()

	if workerMode {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runWorker(ctx, name, intervalResolver(app.cfg), app.metrics, func(ctx context.Context) error { return fn(app, ctx) })
		return
	}

	ctx := context.Background()
	runJob(name, app.metrics, func() error { return fn(app, ctx) })
}

// runWorker runs fn immediately and then on every tick until ctx is done. A
// run that overruns the interval delays the next tick rather than stacking.
func runWorker(
	ctx context.Context,
	name string,
	interval time.Duration,
	m *metrics.Metrics,
	fn func(ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runJob(name, m, func() error { return fn(ctx) })

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, m, func() error { return fn(ctx) })
		}
	}
}

func runJob(name string, m *metrics.Metrics, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	m.ObserveJob(name, latency, err)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
