package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Batch pipeline config
	Batch BatchConfig `yaml:"batch"`

	// Validation policy config
	Validation ValidationConfig `yaml:"validation"`

	// Logging config
	Log LogConfig `yaml:"log"`
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "gemini" or "openai"

	// Per-request timeout in seconds
	RequestTimeout float64 `yaml:"request_timeout"`

	// Retries per document before giving up
	MaxRetries int `yaml:"max_retries"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// OpenAI (or any OpenAI-compatible endpoint)
	OpenAI OpenAIConfig `yaml:"openai"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// OpenAIConfig for OpenAI or compatible endpoints
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o-mini"
}

// BatchConfig controls the concurrent batch pipeline
type BatchConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"` // Default: 3
}

// ValidationConfig exposes the tunable validation policy knobs
type ValidationConfig struct {
	AmountTolerance      float64 `yaml:"amount_tolerance"`       // Default: 0.01
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold"` // Default: 0.95
	VerifyThreshold      float64 `yaml:"verify_threshold"`       // Default: 0.85
	ValidationWeight     float64 `yaml:"validation_weight"`      // Default: 0.7
	ExtractionWeight     float64 `yaml:"extraction_weight"`      // Default: 0.3
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}
