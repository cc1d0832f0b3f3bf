package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/huzaifa321s/proposal-maker/config"
	"github.com/huzaifa321s/proposal-maker/llm"
	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/nlp"
	"github.com/huzaifa321s/proposal-maker/pipeline"
	"github.com/huzaifa321s/proposal-maker/progress"
	"github.com/huzaifa321s/proposal-maker/proposal"
	"github.com/huzaifa321s/proposal-maker/transcribe"
)

func main() {
	cfg := config.Load()
	log := logger.New()
	log.WithField("service", "proposal-maker").Info("starting service")

	transcriber, err := transcribe.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("invalid transcription config")
	}

	hub := progress.NewHub()
	polisher := llm.NewPolisher(cfg.GroqAPIKey, cfg.GroqPolishModel)
	extractor := nlp.NewExtractor(cfg.GroqAPIKey, cfg.GroqExtractModel)
	pipe := pipeline.New(hub, transcriber, polisher, extractor)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.WithError(err).Fatal("cannot create upload dir")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 60 * 1024 * 1024, // audio uploads
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
	}))

	srv := &server{cfg: cfg, hub: hub, pipe: pipe, log: log}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("In-House Proposal System API")
	})

	api := app.Group("/api")
	api.Get("/transcribe/sse", srv.handleSSE)
	api.Post("/transcribe", srv.handleUpload)

	api.Use("/transcribe/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/transcribe/live", websocket.New(srv.handleLive))

	var store *proposal.Store
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = proposal.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("mongo connection failed")
		}
		proposal.NewHandler(store).Register(api)
		log.Info("proposal routes mounted")
	} else {
		log.Warn("MONGODB_URI not set, proposal routes disabled")
	}

	go func() {
		addr := ":" + cfg.Port
		log.WithField("addr", addr).Info("listening")
		if err := app.Listen(addr); err != nil {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	_ = app.Shutdown()
	hub.Close()
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = store.Close(ctx)
		cancel()
	}
}
