package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/adapters"
	router "github.com/aona/duolink/internal/adapters/http"
	"github.com/aona/duolink/internal/adapters/store"
	"github.com/aona/duolink/internal/app"
	"github.com/aona/duolink/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()
	st := store.NewPostgres(db)

	registry := app.NewRegistry()
	tickets := app.NewTicketStore(cfg.TicketTTL)
	moderator := app.PassThroughModerator{}
	catalog := app.NewStaticCatalog(cfg.Games, cfg.Regions)

	deps := router.Deps{
		Recruiting: app.NewRecruiting(st, registry, moderator, catalog, cfg.RecruitmentTTL),
		Matcher:    app.NewMatcher(st, registry, cfg.RoomTTL),
		Rooms:      app.NewRooms(st, registry, moderator),
		Blocks:     app.NewBlocks(st),
		Tickets:    tickets,
		WS: &adapters.WSController{
			Registry:    registry,
			Tickets:     tickets,
			IdleTimeout: cfg.IdleTimeout,
			PingPeriod:  cfg.PingPeriod,
			ReadLimit:   cfg.ReadLimit,
		},
	}

	sweeper := app.NewSweeper(st, cfg.SweepInterval, cfg.MessageTTL)
	go sweeper.Run(ctx)

	r := router.SetupRouter(ctx, cfg, deps)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("duolink server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
