package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/tsel-ticketmaster/tm-gate/config"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/bootstrap"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/catalog"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/redemption"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/sale"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/shift"
	appsync "github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/sync"
	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/ticket"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/jwt"
	internalMiddleware "github.com/tsel-ticketmaster/tm-gate/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/redeem"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
	"github.com/tsel-ticketmaster/tm-gate/pkg/applogger"
	"github.com/tsel-ticketmaster/tm-gate/pkg/kafka"
	"github.com/tsel-ticketmaster/tm-gate/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-gate/pkg/monitoring"
	"github.com/tsel-ticketmaster/tm-gate/pkg/postgresql"
	"github.com/tsel-ticketmaster/tm-gate/pkg/pubsub"
	"github.com/tsel-ticketmaster/tm-gate/pkg/redis"
	"github.com/tsel-ticketmaster/tm-gate/pkg/server"
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

	mon := monitoring.NewOpenTelemetry(
		c.Application.Name,
		c.Application.Environment,
		c.Application.OTLPEndpoint,
	)

	mon.Start(ctx)

	validate := validator.Get()

	jsonWebToken := jwt.NewJSONWebToken(c.JWT.PrivateKey, c.JWT.PublicKey)

	psqldb := postgresql.GetDatabase()
	if err := psqldb.Ping(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	publisher := pubsub.PublisherFromConfluentKafkaProducer(logger, kafka.NewProducer())

	rc := redis.GetClient()
	if err := rc.Ping(context.Background()).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	keyring := sign.NewKeyring(c.Ticketing.SigningKeys)
	policy := redeem.Policy{ReplayWindow: c.Ticketing.ReplayWindow}

	sessionStore := session.NewRedisSessionStore(logger, rc)
	deviceSessionMiddleware := internalMiddleware.NewDeviceSessionMiddleware(jsonWebToken, sessionStore)

	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(c.Application.Name),
		middleware.HTTPResponseTraceInjection,
		middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError).Middleware,
	)

	packageRepo := catalog.NewPackageRepository(logger, psqldb)
	ticketRepo := ticket.NewTicketRepository(logger, psqldb)
	redemptionRepo := redemption.NewRedemptionRepository(logger, psqldb)
	saleRepo := sale.NewSaleRepository(logger, psqldb)
	shiftRepo := shift.NewShiftRepository(logger, psqldb)
	ledgerRepo := appsync.NewLedgerRepository(logger, psqldb)

	issuer := ticket.NewIssuer(keyring, c.Ticketing.ActiveKeyVersion)

	ticketUseCase := ticket.NewTicketUseCase(ticket.TicketUseCaseProperty{
		Logger:           logger,
		Timeout:          c.Application.Timeout,
		TicketRepository: ticketRepo,
	})
	ticket.InitHTTPHandler(router, deviceSessionMiddleware, ticketUseCase)

	saleUseCase := sale.NewSaleUseCase(sale.SaleUseCaseProperty{
		Logger:            logger,
		Timeout:           c.Application.Timeout,
		Issuer:            issuer,
		PackageRepository: packageRepo,
		SaleRepository:    saleRepo,
		TicketRepository:  ticketRepo,
		Publisher:         publisher,
	})
	sale.InitHTTPHandler(router, deviceSessionMiddleware, validate, saleUseCase)

	redemptionUseCase := redemption.NewRedemptionUseCase(redemption.RedemptionUseCaseProperty{
		Logger:               logger,
		Timeout:              c.Application.Timeout,
		Keyring:              keyring,
		Policy:               policy,
		TicketRepository:     ticketRepo,
		RedemptionRepository: redemptionRepo,
		Publisher:            publisher,
	})
	redemption.InitHTTPHandler(router, deviceSessionMiddleware, validate, redemptionUseCase)

	shiftUseCase := shift.NewShiftUseCase(shift.ShiftUseCaseProperty{
		Logger:          logger,
		Timeout:         c.Application.Timeout,
		ShiftRepository: shiftRepo,
	})
	shift.InitHTTPHandler(router, deviceSessionMiddleware, validate, shiftUseCase)

	syncUseCase := appsync.NewSyncUseCase(appsync.SyncUseCaseProperty{
		Logger:            logger,
		Timeout:           c.Application.Timeout,
		LedgerRepository:  ledgerRepo,
		SaleUseCase:       saleUseCase,
		RedemptionUseCase: redemptionUseCase,
		ShiftUseCase:      shiftUseCase,
	})
	appsync.InitHTTPHandler(router, deviceSessionMiddleware, validate, syncUseCase)

	bootstrapUseCase := bootstrap.NewBootstrapUseCase(bootstrap.BootstrapUseCaseProperty{
		Logger:  logger,
		Timeout: c.Application.Timeout,
		Window:  c.Gate.BootstrapWindow,
		GateConfig: bootstrap.GateConfig{
			OfflineWindowMinutes: int64(c.Gate.BootstrapWindow.Minutes()),
			MaxQueuedOps:         int64(c.Gate.MaxQueuedOps),
			CacheTTLMinutes:      int64(c.Gate.CacheTTL.Minutes()),
			ReplayWindowSeconds:  int64(c.Ticketing.ReplayWindow.Seconds()),
		},
		TicketRepository: ticketRepo,
	})
	bootstrap.InitHTTPHandler(router, deviceSessionMiddleware, bootstrapUseCase)

	handler := middleware.SetChain(
		router,
		cors.New(cors.Options{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			MaxAge:           c.CORS.MaxAge,
			AllowCredentials: c.CORS.AllowCredentials,
		}).Handler,
	)

	srv := &server.Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", c.Application.Port),
			Handler: handler,
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
	publisher.Close()
	psqldb.Close()
	rc.Close()
	mon.Stop(ctx)
}
