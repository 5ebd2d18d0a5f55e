package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-psych/internal/api/http"
	auth "github.com/mind-engage/mindengage-psych/internal/auth/middleware"
	"github.com/mind-engage/mindengage-psych/internal/config"
	"github.com/mind-engage/mindengage-psych/internal/db"
	"github.com/mind-engage/mindengage-psych/internal/logging"
	"github.com/mind-engage/mindengage-psych/internal/outbox"
	"github.com/mind-engage/mindengage-psych/internal/psytest"
	"github.com/mind-engage/mindengage-psych/internal/scoring"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogFormat, cfg.LogLevel)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver := db.Driver(cfg.DBDriver)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Error("db open failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer dbh.Close()

	store := psytest.NewSQLStore(dbh, driver)
	events := outbox.NewEventRepo(dbh, driver, cfg.SiteID)
	svc := psytest.NewService(store,
		psytest.WithLogger(log),
		psytest.WithPublisher(events),
		psytest.WithScorer(scoring.NewScorer(scoring.WithOutOfRangeRejection(cfg.RejectOutOfRange))),
	)

	h := api.NewRouter(api.RouterConfig{
		Service:         svc,
		Events:          events,
		Auth:            auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Log:             log,
		EnableLocalAuth: cfg.EnableLocalAuth,
		EnableGuest:     cfg.EnableGuest,
		AdminUser:       cfg.AdminUser,
		AdminPassHash:   cfg.AdminPassHash,
		CORSOrigins:     cfg.CORSOrigins(),
		Ready:           dbh.PingContext,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", "err", err)
	}
}
