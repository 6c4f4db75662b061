package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig
	Model      ModelConfig
	Session    SessionConfig
	Guardrails GuardrailsConfig
	History    HistoryConfig
	Log        LogConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// ModelConfig holds the text-generation backend configuration.
// BaseURL points at any OpenAI-compatible local server (llama.cpp, ollama).
type ModelConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
	TopP        float32 `mapstructure:"top_p"`
}

// SessionConfig holds conversation session settings
type SessionConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxContextLength int `mapstructure:"max_context_length"`
	SummaryTrigger   int `mapstructure:"summary_trigger"`
}

// GuardrailsConfig holds crisis-detection and content-filter settings
type GuardrailsConfig struct {
	EnableCrisisDetection bool     `mapstructure:"enable_crisis_detection"`
	RiskThreshold         float64  `mapstructure:"risk_threshold"`
	CrisisKeywords        []string `mapstructure:"crisis_keywords"`
	SuicideHotline        string   `mapstructure:"suicide_hotline"`
	CrisisText            string   `mapstructure:"crisis_text"`
	Emergency             string   `mapstructure:"emergency"`
}

// HistoryConfig holds the transcript archive settings
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultCrisisKeywords is the keyword list used when none is configured.
var DefaultCrisisKeywords = []string{
	"suicidio", "suicidar", "matarme", "matar me",
	"acabar con mi vida", "no quiero vivir",
	"autolesión", "cortarme", "hacerme daño",
	"morir", "muerte", "desaparecer",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8000")
	v.SetDefault("model.base_url", "http://localhost:11434/v1")
	v.SetDefault("model.api_key", "local")
	v.SetDefault("model.model", "qwen2.5-7b-instruct")
	v.SetDefault("model.max_tokens", 256)
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.top_p", 0.9)
	v.SetDefault("session.timeout_seconds", 3600)
	v.SetDefault("session.max_context_length", 4096)
	v.SetDefault("session.summary_trigger", 10)
	v.SetDefault("guardrails.enable_crisis_detection", true)
	v.SetDefault("guardrails.risk_threshold", 0.75)
	v.SetDefault("guardrails.crisis_keywords", DefaultCrisisKeywords)
	v.SetDefault("guardrails.suicide_hotline", "988")
	v.SetDefault("guardrails.crisis_text", "741741")
	v.SetDefault("guardrails.emergency", "911")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "history.db")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from config.yaml (or the file named by the
// CONFIG_PATH environment variable) plus SERENO_* environment overrides.
// A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SERENO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that thresholds and keyword lists are sane. A failure here
// is fatal at startup; nothing recovers from a malformed guardrail setup.
func (c *Config) Validate() error {
	g := c.Guardrails
	if g.RiskThreshold < 0 || g.RiskThreshold > 1 {
		return fmt.Errorf("invalid configuration: guardrails.risk_threshold must be in [0,1], got %v", g.RiskThreshold)
	}
	if g.EnableCrisisDetection && len(g.CrisisKeywords) == 0 {
		return fmt.Errorf("invalid configuration: crisis detection enabled with empty keyword list")
	}
	for _, kw := range g.CrisisKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("invalid configuration: blank crisis keyword")
		}
	}
	if g.SuicideHotline == "" || g.CrisisText == "" || g.Emergency == "" {
		return fmt.Errorf("invalid configuration: emergency contact numbers must all be set")
	}
	if c.Session.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid configuration: session.timeout_seconds must be positive, got %d", c.Session.TimeoutSeconds)
	}
	if c.Session.SummaryTrigger <= 0 {
		return fmt.Errorf("invalid configuration: session.summary_trigger must be positive, got %d", c.Session.SummaryTrigger)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("invalid configuration: model.max_tokens must be positive, got %d", c.Model.MaxTokens)
	}
	return nil
}
