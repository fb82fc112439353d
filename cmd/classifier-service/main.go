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
	"github.com/synaptica-ai/classifier/pkg/api"
	"github.com/synaptica-ai/classifier/pkg/common/config"
	"github.com/synaptica-ai/classifier/pkg/common/database"
	"github.com/synaptica-ai/classifier/pkg/common/logger"
	"github.com/synaptica-ai/classifier/pkg/events"
	"github.com/synaptica-ai/classifier/pkg/gateway/auth"
	"github.com/synaptica-ai/classifier/pkg/gateway/middleware"
	"github.com/synaptica-ai/classifier/pkg/registry"
	"github.com/synaptica-ai/classifier/pkg/serving"
	"github.com/synaptica-ai/classifier/pkg/training"
)

func main() {
	logger.Init()
	cfg := config.Load()

	profile, err := config.LoadTrainingProfile(cfg.TrainingProfilePath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load training profile")
	}
	defaults, err := profile.Options()
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid training profile")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	jobRepo := training.NewRepository(db)
	if err := jobRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate training tables")
	}
	predictionRepo := serving.NewRepository(db)
	if err := predictionRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate prediction tables")
	}

	redisClient := database.GetRedis(cfg)
	defer database.CloseRedis()

	store, err := registry.NewStore(cfg.ArtifactDir, redisClient, cfg.ModelCacheTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize model registry")
	}

	predictor := serving.NewPredictor(store, cfg.ModelCacheTTL)

	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	defer stopConsuming()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, "classifier-service")
		defer producer.Close()
		publisher = producer

		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup(cfg))
		defer consumer.Close()
		go func() {
			if err := consumer.Consume(consumeCtx, events.InvalidateOnChange(predictor.Invalidate)); err != nil && consumeCtx.Err() == nil {
				logger.Log.WithError(err).Error("Event consumer stopped")
			}
		}()
	} else {
		logger.Log.Info("Kafka not configured, lifecycle events disabled")
	}

	trainingService := training.NewService(jobRepo, store, publisher, cfg.TrainingWorkers)
	trainingService.OnModelTrained(predictor.Invalidate)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured, running without auth")
	} else {
		router.Use(middleware.Authenticate(oidcAuth, "/health", "/metrics"))
	}

	api.NewHandler(trainingService, store, predictor, predictionRepo, publisher, defaults).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":         cfg.ServerHost,
			"port":         cfg.ServerPort,
			"artifact_dir": cfg.ArtifactDir,
		}).Info("Classifier Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Classifier Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	stopConsuming()
	trainingService.Wait()

	logger.Log.Info("Classifier Service stopped")
}

func consumerGroup(cfg *config.Config) string {
	if cfg.KafkaGroupID != "" {
		return cfg.KafkaGroupID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "classifier-cache-" + host
}
