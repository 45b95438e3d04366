package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Log     LogConfig
	Session SessionConfig
}

// Load 从环境变量加载配置。调用方负责事先加载 .env。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	var logCfg LogConfig
	if err := env.Parse(&logCfg); err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}

	var sessionCfg SessionConfig
	if err := env.Parse(&sessionCfg); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if sessionCfg.IdleTTL <= 0 {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TTL value %s: must be positive", sessionCfg.IdleTTL)
	}

	return &Config{Server: server, AI: ai, Log: logCfg, Session: sessionCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Supported completion providers.
const (
	ProviderGemini    = "gemini"
	ProviderArk       = "ark"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string        `env:"AI_PROVIDER" envDefault:"gemini"`
	Model    string        `env:"AI_MODEL"`
	APIKey   string        `env:"AI_API_KEY"`
	BaseURL  string        `env:"AI_BASE_URL"`
	Timeout  time.Duration `env:"AI_TIMEOUT"`

	// Provider specific credentials, consulted when AI_API_KEY is empty.
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	ArkAPIKey       string `env:"ARK_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	// Ark AK/SK 组合与区域。
	AccessKey string `env:"ARK_ACCESS_KEY"`
	SecretKey string `env:"ARK_SECRET_KEY"`
	Region    string `env:"ARK_REGION" envDefault:"cn-beijing"`

	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Credential 返回当前 provider 使用的 API Key。
func (c AIConfig) Credential() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderArk:
		return c.ArkAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func loadAIConfig() (AIConfig, error) {
	var cfg AIConfig
	if err := env.Parse(&cfg); err != nil {
		return AIConfig{}, fmt.Errorf("invalid ai config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens != nil && *maxTokens < 1 {
		return AIConfig{}, fmt.Errorf("invalid AI_MAX_TOKENS value %d: must be positive", *maxTokens)
	}

	cfg.Temperature = temperature
	cfg.TopP = topP
	cfg.MaxTokens = maxTokens
	return cfg, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// SessionConfig 描述会话生命周期配置。
type SessionConfig struct {
	DefaultLocale string        `env:"SESSION_LOCALE" envDefault:"ko"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	ReapSpec      string        `env:"SESSION_REAP_SPEC" envDefault:"@every 10m"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
