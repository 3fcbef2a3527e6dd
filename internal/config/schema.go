package config

// Config holds epubedit configuration.
// Stored at: ~/.epubedit/config.yaml
type Config struct {
	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	LLM        LLMCfg        `mapstructure:"llm" yaml:"llm"`
	Processing ProcessingCfg `mapstructure:"processing" yaml:"processing"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LLMCfg configures the model gateway.
type LLMCfg struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`   // "openai-compatible", "openai", "mock"
	Endpoint          string  `mapstructure:"endpoint" yaml:"endpoint"`   // Base URL for openai-compatible endpoints
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`     // API key (supports ${ENV_VAR} syntax)
	Model             string  `mapstructure:"model" yaml:"model"`         // Model name
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	ContextWindow     int     `mapstructure:"context_window" yaml:"context_window"` // Tokens; 0 disables budgeting
}

// ProcessingCfg configures the batch scheduler.
type ProcessingCfg struct {
	Workers          int    `mapstructure:"workers" yaml:"workers"`
	ChaptersPerBatch int    `mapstructure:"chapters_per_batch" yaml:"chapters_per_batch"`
	PromptStyle      string `mapstructure:"prompt_style" yaml:"prompt_style"` // "default", "light", "heavy"
	SafetyBuffer     int    `mapstructure:"safety_buffer" yaml:"safety_buffer"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8080,
		},
		LLM: LLMCfg{
			Provider:          "openai-compatible",
			Endpoint:          "https://openrouter.ai/api/v1",
			APIKey:            "${OPENROUTER_API_KEY}",
			Model:             "anthropic/claude-sonnet-4",
			Temperature:       0.3,
			MaxTokens:         4096,
			MaxRetries:        3,
			RequestsPerMinute: 60,
			TimeoutSeconds:    120,
			ContextWindow:     128000,
		},
		Processing: ProcessingCfg{
			Workers:          3,
			ChaptersPerBatch: 3,
			PromptStyle:      "default",
			SafetyBuffer:     500,
		},
	}
}
