package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tsel-ticketmaster/tm-gate/config"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/cache"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/outbox"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/scan"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/gateapp/serverapi"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/redeem"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
	"github.com/tsel-ticketmaster/tm-gate/pkg/applogger"
	"github.com/tsel-ticketmaster/tm-gate/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/pkg/server"
	"github.com/tsel-ticketmaster/tm-gate/pkg/sqlitedb"
	"github.com/tsel-ticketmaster/tm-gate/pkg/validator"
)

var c *config.Config

func init() {
	c = config.Get()
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := applogger.GetLogrus()
	validate := validator.Get()

	db, err := sqlitedb.Open(c.Gate.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("device store is unusable")
	}

	keyring := sign.NewKeyring(c.Ticketing.SigningKeys)
	policy := redeem.Policy{ReplayWindow: c.Ticketing.ReplayWindow}

	serverAPI := serverapi.NewRepository(serverapi.RepositoryProperty{
		Logger:   logger,
		Client:   &http.Client{Timeout: 15 * time.Second},
		BaseURL:  c.Gate.ServerBaseURL,
		APIToken: c.Gate.APIToken,
	})

	ticketCache := cache.NewTicketCacheRepository(logger, db)
	gateConfig := cache.NewGateConfigRepository(logger, db)
	historyRepo := cache.NewLocalHistoryRepository(logger, db)
	outboxRepo := outbox.NewOutboxRepository(logger, db)

	refreshUseCase := cache.NewRefreshUseCase(cache.RefreshUseCaseProperty{
		Logger:     logger,
		Timeout:    c.Application.Timeout,
		CacheTTL:   c.Gate.CacheTTL,
		ServerAPI:  serverAPI,
		Tickets:    ticketCache,
		GateConfig: gateConfig,
	})

	outboxUseCase := outbox.NewOutboxUseCase(outbox.OutboxUseCaseProperty{
		Logger:       logger,
		Repository:   outboxRepo,
		MaxQueuedOps: int64(c.Gate.MaxQueuedOps),
	})

	drainer := outbox.NewDrainer(outbox.DrainerProperty{
		Logger:     logger,
		Repository: outboxRepo,
		ServerAPI:  serverAPI,
		MaxRetries: int64(c.Gate.MaxRetries),
		Interval:   c.Gate.SyncInterval,
	})

	scanUseCase := scan.NewScanUseCase(scan.ScanUseCaseProperty{
		Logger:        logger,
		Timeout:       c.Application.Timeout,
		DeviceID:      c.Gate.DeviceID,
		Keyring:       keyring,
		Policy:        policy,
		TicketCache:   ticketCache,
		HistoryRepo:   historyRepo,
		OutboxUseCase: outboxUseCase,
		Drainer:       drainer,
	})

	router := mux.NewRouter()
	router.Use(
		middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError).Middleware,
	)

	scan.InitHTTPHandler(router, validate, scanUseCase)
	outbox.InitHTTPHandler(router, outboxUseCase, drainer)

	// Starting offline is fine; the refresher keeps trying.
	if err := refreshUseCase.Refresh(ctx); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("initial bootstrap is unavailable, serving from the existing cache")
	}

	go drainer.Run(ctx)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refreshUseCase.RefreshIfStale(ctx); err != nil {
					logger.WithContext(ctx).WithError(err).Warn("bootstrap refresh did not complete")
				}
			}
		}
	}()

	srv := &server.Server{
		Server: http.Server{
			Addr:    fmt.Sprintf("127.0.0.1:%d", c.Gate.Port),
			Handler: router,
		},
		Logger: logger,
	}

	go func() {
		srv.ListenAndServe()
	}()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	<-sigterm

	srv.Shutdown(ctx)
	cancel()
	db.Close()
}
