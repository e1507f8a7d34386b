package main

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"

	"p2p-funding-core/internal/adapter/events"
	httpadp "p2p-funding-core/internal/adapter/http"
	idemp "p2p-funding-core/internal/adapter/middleware"
	"p2p-funding-core/internal/adapter/repository/mysql"
	resredis "p2p-funding-core/internal/adapter/reservation"
	"p2p-funding-core/internal/amortization"
	"p2p-funding-core/internal/config"
	"p2p-funding-core/internal/domain/event"
	"p2p-funding-core/internal/infrastructure/cache"
	"p2p-funding-core/internal/infrastructure/db"
	"p2p-funding-core/internal/observability"
	"p2p-funding-core/internal/usecase/funding"
	"p2p-funding-core/internal/usecase/loanbook"
	"p2p-funding-core/internal/usecase/reservation"
)

func main() {
	logger := observability.NewLogger("api")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("mysql")
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}

	bus := events.NewBus()
	defer bus.Close()
	pubs := events.Fanout{bus}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("p2p-funding-core"))
		if err != nil {
			logger.Fatal().Err(err).Msg("nats")
		}
		defer nc.Drain()
		pubs = append(pubs, events.NewNATSPublisher(nc, observability.NewLogger("nats")))
	}
	var pub event.Publisher = pubs

	loans := mysql.NewLoanRepository(gdb)
	guow := mysql.NewGormUoW(gdb)
	holds := resredis.NewRedisStore(rdb)

	pol := amortization.Policy{
		LateFeeMode: amortization.LateFeeStandalone,
		LateFeeFlat: cfg.LateFeeFlat,
	}
	if cfg.LateFeeMode == "capitalize" {
		pol.LateFeeMode = amortization.LateFeeCapitalize
	}

	loanUC := loanbook.NewUsecase(loans, holds)
	resUC := reservation.NewUsecase(loans, holds, pub,
		time.Duration(cfg.ReservationTTLSecs)*time.Second)
	fundUC := funding.NewUsecase(guow, holds, pub, pol, observability.NewLogger("funding"))

	h := httpadp.NewHandler()
	loanH := httpadp.NewLoanHandler(loanUC)
	resH := httpadp.NewReservationHandler(resUC)
	invH := httpadp.NewInvestmentHandler(fundUC)
	ledgerH := httpadp.NewLedgerHandler(fundUC, cfg.PlatformCut)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())
	e.Use(idemp.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))

	// routes
	e.GET("/health", h.Health)

	e.POST("/loans", loanH.CreateLoan)
	e.GET("/loans/:loan_id", loanH.GetLoan)

	e.POST("/loans/:loan_id/reservations", resH.Reserve)
	e.GET("/loans/:loan_id/reservations", resH.List)
	e.DELETE("/loans/:loan_id/reservations/:investor_id", resH.Cancel)

	e.POST("/loans/:loan_id/investments", invH.CreateInvestment)
	e.POST("/loans/:loan_id/fanout", invH.CreateFanout)
	e.POST("/investments/:investment_id/confirm", invH.Confirm)
	e.POST("/investments/:investment_id/reject", invH.Reject)
	e.POST("/investments/:investment_id/dispute", invH.Dispute)

	e.GET("/loans/:loan_id/schedule", ledgerH.GetSchedule)
	e.GET("/loans/:loan_id/payoff", ledgerH.GetPayoff)
	e.GET("/loans/:loan_id/participation", ledgerH.GetParticipation)
	e.POST("/loans/:loan_id/payments", ledgerH.RecordPayment)

	addr := ":" + cfg.AppPort
	logger.Info().Str("addr", addr).Msg("listening")
	if err := e.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
