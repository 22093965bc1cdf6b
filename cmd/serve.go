package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-coinwallet/app/controller"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server and, unless disabled, the in-process poll, credit retry and expiry workers.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	app := mustCreateApplication()
	defer app.Close()
	app.enableWebhookGuard()

	e := setupHTTPServer(
		controller.NewPaymentController(app.payments),
		controller.NewWalletController(app.wallets),
		controller.NewCoinPackController(app.coinPacks),
		app.registry,
		app.cfg.Metrics.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var workers sync.WaitGroup
	if app.cfg.Jobs.PollInProcess {
		workers.Add(3)
		go func() {
			defer workers.Done()
			runWorker(ctx, jobPoll, app.cfg.Jobs.PollInterval, app.metrics, func(ctx context.Context) error {
				_, err := app.payments.RunPollBatch(ctx)
				return err
			})
		}()
		go func() {
			defer workers.Done()
			runWorker(ctx, jobCreditsRetry, app.cfg.Jobs.CreditRetryInterval, app.metrics, app.payments.RunCreditRetryBatch)
		}()
		go func() {
			defer workers.Done()
			runWorker(ctx, jobExpire, app.cfg.Jobs.ExpireInterval, app.metrics, func(ctx context.Context) error {
				_, err := app.payments.RunExpirePendingBatch(ctx)
				return err
			})
		}()
	}

	go func() {
		httpAddr := net.JoinHostPort(app.cfg.HTTP.Host, app.cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	workers.Wait()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	walletController *controller.WalletController,
	coinPackController *controller.CoinPackController,
	registry *prometheus.Registry,
	metricsEnabled bool,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(ensureRequestID())

	e.GET("/health", paymentController.Health)
	if metricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	payments := e.Group("/payments")
	payments.POST("/intents", paymentController.CreatePaymentIntent)
	payments.POST("/webhook", paymentController.HandleWebhook)
	payments.GET("/:id", paymentController.GetPaymentStatus)
	payments.GET("/:id/events", paymentController.ListPaymentEvents)

	wallets := e.Group("/wallets")
	wallets.POST("", walletController.OpenWallet)
	wallets.POST("/transfers", walletController.Transfer)
	wallets.GET("/:userId", walletController.GetWallet)
	wallets.GET("/:userId/transactions", walletController.ListTransactions)
	wallets.POST("/:userId/credit", walletController.Credit)
	wallets.POST("/:userId/debit", walletController.Debit)

	coinPacks := e.Group("/coin-packs")
	coinPacks.GET("", coinPackController.ListPacks)
	coinPacks.GET("/suggest", coinPackController.SuggestPack)
	coinPacks.POST("/:number/checkout", coinPackController.Checkout)

	return e
}

// ensureRequestID echoes the caller's X-Request-ID or assigns one; webhook
// deliveries arrive without it.
func ensureRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
				ctx.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}
