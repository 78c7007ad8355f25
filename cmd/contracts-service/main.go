package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/nurpe/contracts-service/internal/auth"
	"github.com/nurpe/contracts-service/internal/config"
	"github.com/nurpe/contracts-service/internal/db"
	"github.com/nurpe/contracts-service/internal/events"
	"github.com/nurpe/contracts-service/internal/excel"
	httphandler "github.com/nurpe/contracts-service/internal/http"
	"github.com/nurpe/contracts-service/internal/http/middleware"
	"github.com/nurpe/contracts-service/internal/logger"
	"github.com/nurpe/contracts-service/internal/pdf"
	"github.com/nurpe/contracts-service/internal/repository"
	"github.com/nurpe/contracts-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	negotiationRepo := repository.NewNegotiationRepository(database)
	offerRepo := repository.NewOfferRepository(database)

	var publisher service.Publisher
	if cfg.Events.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
		publisher = events.NewRedisPublisher(client, cfg.Events.Channel, log)
		log.Info().Str("channel", cfg.Events.Channel).Msg("event publishing enabled")
	} else {
		publisher = events.NewNopPublisher(log)
	}

	contractService := service.NewContractService(
		contractRepo,
		offerRepo,
		negotiationRepo,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		publisher,
	)
	negotiationService := service.NewNegotiationService(
		negotiationRepo,
		contractRepo,
		publisher,
		cfg.Negotiation.NotesMaxLen,
	)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, negotiationService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
