package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"waterguard/internal/ai/gemini"
	"waterguard/internal/config"
	"waterguard/internal/database/redis"
	"waterguard/internal/event"
	"waterguard/internal/handlers"
	"waterguard/internal/models"
	"waterguard/internal/repository"
	"waterguard/internal/services"
	"waterguard/internal/worker"

	"github.com/gofiber/fiber/v3"
)

func setupLogging(logDir string) (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	if absPath, err := filepath.Abs(logFile); err == nil {
		fmt.Printf("Logging to: %s\n", absPath)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	cfg := config.New()

	logFile, err := setupLogging(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stream
	store := repository.NewReadingRepository(cfg.StreamCfg.WindowSize)
	aggregator := services.NewStreamAggregator(models.StreamMode(cfg.StreamCfg.Mode), store, cfg.StreamCfg.TickInterval)
	evaluator := services.NewRiskEvaluator()
	ingestionService := services.NewIngestionService(aggregator, cfg.IngestCfg.RequireAllFields)

	if cfg.RedisCfg.Enabled() {
		redisClient, err := redis.NewRedisClient(cfg.RedisCfg)
		if err != nil {
			slog.Error("Redis unavailable, reading publisher disabled", "error", err)
		} else {
			defer redisClient.Close()
			aggregator.AddNotifier(redis.NewReadingPublisher(redisClient, cfg.RedisCfg.Channel))
			slog.Info("Redis reading publisher enabled", "channel", cfg.RedisCfg.Channel)
		}
	}

	if cfg.RabbitCfg.Enabled() {
		rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitCfg)
		if err != nil {
			slog.Error("RabbitMQ unavailable, risk alerts disabled", "error", err)
		} else {
			defer rabbitConn.Close()
			alertPublisher := event.NewRiskAlertPublisher(rabbitConn.Channel, cfg.RabbitCfg.AlertQueue, evaluator)
			aggregator.AddNotifier(alertPublisher)
			defer func() {
				published, failed := alertPublisher.Stats()
				slog.Info("Risk alert publisher stopped", "published", published, "failed", failed)
			}()
		}
	}

	// Prediction
	geminiClients := gemini.NewGenAIClients(ctx, cfg.GeminiCfg.APIKeys, cfg.GeminiCfg.FlashName)
	defer func() {
		for _, client := range geminiClients {
			client.Close()
		}
	}()
	if len(geminiClients) == 0 {
		slog.Warn("No Gemini API keys configured, predictions will fail")
	}
	selector := gemini.NewSelectorFromClients(geminiClients)
	predictionService := services.NewPredictionService(selector, evaluator)
	liveJob := services.NewLivePredictionJob(aggregator, predictionService)

	// Background work
	var wg sync.WaitGroup
	pool := worker.NewWorkingPool(cfg.StreamCfg.NumWorkers, cfg.StreamCfg.NumWorkers*2)
	wg.Add(1)
	go pool.Start(ctx, &wg)

	if aggregator.Mode() == models.StreamModeSimulated {
		if cfg.StreamCfg.Backfill {
			aggregator.Backfill(time.Now())
		}
		simScheduler := worker.NewJobScheduler("simulator", aggregator.TickInterval(), pool)
		simScheduler.AddJob(worker.NamedJob{Name: "simulator-tick", Run: aggregator.Tick})
		wg.Add(1)
		go func() {
			defer wg.Done()
			simScheduler.Run(ctx)
		}()
	}

	predictScheduler := worker.NewJobScheduler("live-prediction", cfg.StreamCfg.PollInterval, pool)
	predictScheduler.AddJob(worker.NamedJob{Name: "live-prediction", Run: func(ctx context.Context) error {
		if err := liveJob.Run(ctx); err != nil && !errors.Is(err, services.ErrPredictionBusy) {
			return err
		}
		return nil
	}})
	wg.Add(1)
	go func() {
		defer wg.Done()
		predictScheduler.Run(ctx)
	}()

	if cfg.MQTTCfg.Enabled() {
		consumer := event.NewMQTTConsumer(cfg.MQTTCfg, ingestionService)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("MQTT unavailable, broker ingestion disabled", "error", err)
		} else {
			defer func() {
				consumer.Close()
				processed, rejected := consumer.Stats()
				slog.Info("MQTT consumer stopped", "processed", processed, "rejected", rejected)
			}()
		}
	}

	// HTTP
	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("WaterGuard service is healthy")
	})

	handlers.NewSensorHandler(ingestionService, aggregator, evaluator).Register(app)
	handlers.NewRiskHandler(aggregator, evaluator).Register(app)
	handlers.NewPredictionHandler(predictionService, liveJob).Register(app)

	go func() {
		slog.Info("Starting server", "port", cfg.Port, "stream_mode", aggregator.Mode())
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	wg.Wait()
	slog.Info("Shutdown complete")
}
