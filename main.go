package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"lungsurv/config"
	shttp "lungsurv/http"
	"lungsurv/logging"
	"lungsurv/ml"
	"lungsurv/survival"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		logging.Must(config.Default().Log).Fatal("failed to load config", zap.Error(err))
	}
	logger := logging.Must(cfg.Log)
	defer logger.Sync()

	// 2. Load the model once; every request shares it
	opts := ml.LoadOptions{Type: cfg.ML.ModelType, Endpoint: cfg.ML.Endpoint, Timeout: cfg.ML.Timeout}
	registry, err := ml.NewRegistry(cfg.ML.CacheSize, func(path string) (ml.Classifier, error) {
		return ml.LoadModel(path, opts)
	})
	if err != nil {
		logger.Fatal("failed to create model registry", zap.Error(err))
	}
	model, err := registry.Get(cfg.ML.ModelPath)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", cfg.ML.ModelPath), zap.Error(err))
	}
	logger.Info("model loaded",
		zap.String("path", cfg.ML.ModelPath),
		zap.Int("features", len(model.FeatureNames())))

	// 3. Start HTTP server
	service := survival.NewService(ml.NewEncoder(), registry.Source(cfg.ML.ModelPath), logger)
	server := shttp.NewServer(shttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, service, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
