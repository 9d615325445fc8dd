package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"mojbudzet/internal/amqp"
	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/cache"
	"mojbudzet/internal/cli"
	"mojbudzet/internal/core"
	apphttp "mojbudzet/internal/http"
	"mojbudzet/internal/loader"
	"mojbudzet/internal/log"
	"mojbudzet/internal/session"
	"mojbudzet/internal/worker"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	sessions := cli.InitSessions(logger.WithComponent(log.ComponentStorage), cfg.SessionDBPath)
	store := session.NewStore(sessions, session.Options{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.CookieSecure,
	})

	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		UserAgent: "mojbudzet-web",
	},
		apiclient.WithTokenSource(session.Token),
		apiclient.WithUnauthorizedHandler(store.ClearOnUnauthorized),
	)
	if err != nil {
		logger.Error("Failed to initialize API client", log.FieldError, err.Error())
		os.Exit(1)
	}

	caches := cache.NewManager()
	caches.Register(session.NewReaper(sessions))
	caches.StartCleanup(context.Background(), 5*time.Minute)

	pages := loader.New(api, loader.Config{
		Location:    cfg.Location(),
		Reconciler:  core.NewReconciler(cfg.Language()),
		SnapshotTTL: cfg.SnapshotTTL,
	}, caches)

	deps := apphttp.Dependencies{
		API:            api,
		Sessions:       store,
		Loader:         pages,
		Location:       cfg.Location(),
		Currency:       cfg.Currency,
		CookieSecure:   cfg.CookieSecure,
		LoginRateLimit: cfg.LoginRateLimit,
		ReadyChecks: map[string]apphttp.ReadyCheck{
			"sessions": sessions.Ping,
		},
		Logger: logger,
	}

	// Change events are optional; without a broker each instance only
	// drops its own snapshots.
	var events *amqp.Client
	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	defer stopConsuming()
	if cfg.AMQPURL != "" {
		amqpLog := logger.WithComponent(log.ComponentAMQP)
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			amqpLog.Warn("AMQP unavailable, change events disabled", log.FieldError, err.Error())
		} else {
			deps.Publisher = events
			changes := worker.NewChangeWorker(pages, logger)
			go func() {
				if err := changes.Run(consumeCtx, events); err != nil {
					amqpLog.Error("Change event consumer stopped", log.FieldError, err.Error())
				}
			}()
			amqpLog.Info("Change events enabled", "exchange", cfg.AMQPExchange)
		}
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		stopConsuming()
		if events != nil {
			if err := events.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		caches.Stop()
		if err := sessions.Close(); err != nil {
			logger.Warn("Session storage close error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting Moj Budžet",
		"port", cfg.Port,
		"api", api.BaseURL(),
		"timezone", cfg.Timezone,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
