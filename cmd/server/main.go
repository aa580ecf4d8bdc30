package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/facturaia/invoice-trust-service/api"
	"github.com/facturaia/invoice-trust-service/internal/ai"
	"github.com/facturaia/invoice-trust-service/internal/models"
	"github.com/facturaia/invoice-trust-service/internal/pipeline"
	"github.com/facturaia/invoice-trust-service/internal/services"
)

func main() {
	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logging
	logger, err := buildLogger(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Create AI provider
	provider, err := ai.NewProvider(config.AI)
	if err != nil {
		logger.Fatal("failed to create AI provider", zap.Error(err))
	}

	// Wire up the validation pipeline
	validator := services.NewValidator(services.PolicyFromConfig(config.Validation))
	processor := pipeline.NewProcessor(provider, validator, config.Batch.MaxConcurrency)

	// Create API handler
	handler := api.NewHandler(config, provider, processor)
	router := handler.SetupRoutes()

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	logger.Info("starting Invoice Trust Service",
		zap.String("version", api.Version),
		zap.String("addr", addr),
		zap.String("provider", provider.Name()),
		zap.Int("maxConcurrency", config.Batch.MaxConcurrency))
	logger.Info("endpoints",
		zap.String("extractBatch", fmt.Sprintf("POST http://%s/api/invoices/extract-batch", addr)),
		zap.String("analyze", fmt.Sprintf("POST http://%s/api/analyze", addr)),
		zap.String("engagement", fmt.Sprintf("POST http://%s/api/telemetry/engagement", addr)),
		zap.String("health", fmt.Sprintf("GET  http://%s/health", addr)))

	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func buildLogger(cfg models.LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if n := os.Getenv("MAX_CONCURRENCY"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil && parsed > 0 {
			config.Batch.MaxConcurrency = parsed
		}
	}

	return &config, nil
}
