// Package config provides configuration for the chatbot engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/chatbot/internal/commerce"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/pricing"
)

// EnvConfigFile names the optional YAML file loaded before env overrides.
const EnvConfigFile = "CHATBOT_CONFIG"

// Config holds the engine configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
	Database  DatabaseConfig   `yaml:"database"`
	Redis     RedisConfig      `yaml:"redis"`
	Logging   LoggingConfig    `yaml:"logging"`
	Tracing   TracingConfig    `yaml:"tracing"`
	API       APIConfig        `yaml:"api"`
	Pricing   PricingConfig    `yaml:"pricing"`
	Session   SessionConfig    `yaml:"session"`
	Retention RetentionConfig  `yaml:"retention"`
	Training  TrainingConfig   `yaml:"training"`
	Commerce  CommerceConfig   `yaml:"commerce"`
	Contacts  ContactsConfig   `yaml:"contacts"`
	File      FileConfig       `yaml:"file"`
	Email     EmailConfig      `yaml:"email"`
	Chatbots  []domain.Chatbot `yaml:"chatbots"`
}

type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	RPCPort         int           `yaml:"rpc_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WebSocketConfig tunes the /v1/ws chat endpoint.
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the search cache. An empty Addr disables it.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	SearchCacheTTL time.Duration `yaml:"search_cache_ttl"`
}

type LoggingConfig struct {
	Mode     string `yaml:"mode"`
	Level    string `yaml:"level"`
	HashSalt string `yaml:"hash_salt"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	SiteURL string `yaml:"site_url"`
	AppName string `yaml:"app_name"`
}

type OpenWebUIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// APIConfig holds provider credentials. Mode "MOCK" swaps every provider for an echo.
type APIConfig struct {
	OpenAI         OpenAIConfig     `yaml:"openai"`
	OpenRouter     OpenRouterConfig `yaml:"openrouter"`
	OpenWebUI      OpenWebUIConfig  `yaml:"open_webui"`
	RequestTimeout time.Duration    `yaml:"request_timeout"`
	Mode           string           `yaml:"mode"`
}

type PricingConfig struct {
	Currency string        `yaml:"currency"`
	Models   pricing.Table `yaml:"models"`
}

type SessionConfig struct {
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
}

// RetentionConfig bounds how long data is kept. Zero disables a rule.
type RetentionConfig struct {
	SessionDays   int           `yaml:"session_days"`
	AbandonedDays int           `yaml:"abandoned_days"`
	DebugLogDays  int           `yaml:"debug_log_days"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

type TrainingConfig struct {
	SearchLimit  int `yaml:"search_limit"`
	SnippetChars int `yaml:"snippet_chars"`
}

type CommerceConfig struct {
	Enabled          bool   `yaml:"enabled"`
	RequireEmail     bool   `yaml:"require_email"`
	MaxDaysBack      int    `yaml:"max_days_back"`
	ResponseTemplate string `yaml:"response_template"`
}

type ContactsConfig struct {
	CaptureEnabled  bool `yaml:"capture_enabled"`
	NotifyOnCapture bool `yaml:"notify_on_capture"`
}

// FileConfig governs chat uploads. RetentionDays of zero keeps files until
// their session is purged.
type FileConfig struct {
	Dir           string   `yaml:"dir"`
	AllowedTypes  []string `yaml:"allowed_types"`
	MaxFileSize   int64    `yaml:"max_file_size"`
	RetentionDays int      `yaml:"retention_days"`
}

// EmailConfig configures contact notification mail. An empty APIKey or
// AdminEmail leaves notifications on the log.
type EmailConfig struct {
	AdminEmail string        `yaml:"admin_email"`
	FromEmail  string        `yaml:"from_email"`
	FromName   string        `yaml:"from_name"`
	SiteName   string        `yaml:"site_name"`
	AdminURL   string        `yaml:"admin_url"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Enabled reports whether notification mail can be sent.
func (e EmailConfig) Enabled() bool {
	return e.APIKey != "" && e.AdminEmail != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			RPCPort:         8081,
			ShutdownTimeout: 10 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingInterval:   30 * time.Second,
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    60 * time.Second,
			MaxMessageSize: 65536,
		},
		Database: DatabaseConfig{DSN: "file:chatbot.db?cache=shared&mode=rwc&_busy_timeout=5000"},
		Redis:    RedisConfig{SearchCacheTTL: 5 * time.Minute},
		Logging:  LoggingConfig{Mode: "dev", Level: "info"},
		Tracing:  TracingConfig{ServiceName: "chatbot", SampleRatio: 0.1},
		API:      APIConfig{RequestTimeout: 60 * time.Second},
		Pricing:  PricingConfig{Currency: "USD", Models: pricing.DefaultTable()},
		Session: SessionConfig{
			InactivityTimeout: time.Hour,
			SweepInterval:     time.Minute,
		},
		Retention: RetentionConfig{
			SessionDays:   90,
			AbandonedDays: 7,
			DebugLogDays:  30,
			PurgeInterval: time.Hour,
		},
		Training: TrainingConfig{SearchLimit: 5, SnippetChars: 500},
		Commerce: CommerceConfig{
			RequireEmail:     true,
			MaxDaysBack:      365,
			ResponseTemplate: commerce.DefaultTemplate,
		},
		Contacts: ContactsConfig{CaptureEnabled: true},
		File: FileConfig{
			Dir:           "uploads",
			AllowedTypes:  []string{"pdf", "docx", "txt", "jpg", "jpeg", "png"},
			MaxFileSize:   10 << 20,
			RetentionDays: 30,
		},
		Email: EmailConfig{
			FromName: "ChatBot",
			SiteName: "ChatBot",
			BaseURL:  "https://api.sendgrid.com",
			Timeout:  10 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the file named by CHATBOT_CONFIG
// and environment variables, in that order.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.HTTPPort = getEnvInt("HTTP_PORT", c.Server.HTTPPort)
	c.Server.RPCPort = getEnvInt("RPC_PORT", c.Server.RPCPort)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)

	if ms := getEnvInt("WS_PING_INTERVAL_MS", 0); ms > 0 {
		c.WebSocket.PingInterval = time.Duration(ms) * time.Millisecond
	}
	if ms := getEnvInt("WS_READ_TIMEOUT_MS", 0); ms > 0 {
		c.WebSocket.ReadTimeout = time.Duration(ms) * time.Millisecond
	}
	c.WebSocket.MaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", int(c.WebSocket.MaxMessageSize)))

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Logging.Mode = getEnv("LOG_MODE", c.Logging.Mode)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)

	c.API.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.API.OpenAI.APIKey)
	c.API.OpenRouter.APIKey = getEnv("OPENROUTER_API_KEY", c.API.OpenRouter.APIKey)
	c.API.OpenRouter.SiteURL = getEnv("OPENROUTER_SITE_URL", c.API.OpenRouter.SiteURL)
	c.API.OpenRouter.AppName = getEnv("OPENROUTER_APP_NAME", c.API.OpenRouter.AppName)
	c.API.OpenWebUI.BaseURL = getEnv("OPEN_WEBUI_BASE_URL", c.API.OpenWebUI.BaseURL)
	c.API.OpenWebUI.APIKey = getEnv("OPEN_WEBUI_API_KEY", c.API.OpenWebUI.APIKey)
	c.API.Mode = getEnv("CHATBOT_MODE", c.API.Mode)
	if ms := getEnvInt("LLM_TIMEOUT_MS", 0); ms > 0 {
		c.API.RequestTimeout = time.Duration(ms) * time.Millisecond
	}

	if s := getEnvInt("SESSION_INACTIVITY_TIMEOUT_S", 0); s > 0 {
		c.Session.InactivityTimeout = time.Duration(s) * time.Second
	}
	c.Commerce.Enabled = getEnvBool("COMMERCE_ENABLED", c.Commerce.Enabled)

	c.File.Dir = getEnv("UPLOAD_DIR", c.File.Dir)
	c.Email.APIKey = getEnv("SENDGRID_API_KEY", c.Email.APIKey)
	c.Email.FromEmail = getEnv("SENDGRID_FROM_EMAIL", c.Email.FromEmail)
	c.Email.AdminEmail = getEnv("CHATBOT_ADMIN_EMAIL", c.Email.AdminEmail)
}

// Validate checks the configuration once after loading.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.http_port %d out of range", c.Server.HTTPPort))
	}
	if c.Server.RPCPort < 0 || c.Server.RPCPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.rpc_port %d out of range", c.Server.RPCPort))
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		problems = append(problems, "websocket.read_timeout must exceed a positive ping_interval")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "server.shutdown_timeout must be positive")
	}
	if c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required")
	}
	if c.API.RequestTimeout <= 0 {
		problems = append(problems, "api.request_timeout must be positive")
	}
	if c.Session.InactivityTimeout <= 0 {
		problems = append(problems, "session.inactivity_timeout must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		problems = append(problems, "session.sweep_interval must be positive")
	}
	if c.Training.SearchLimit <= 0 {
		problems = append(problems, "training.search_limit must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		problems = append(problems, "tracing.sample_ratio must be within [0, 1]")
	}
	if c.Commerce.MaxDaysBack < 0 {
		problems = append(problems, "commerce.max_days_back must not be negative")
	}
	if c.File.Dir == "" {
		problems = append(problems, "file.dir is required")
	}
	if c.File.MaxFileSize <= 0 {
		problems = append(problems, "file.max_file_size must be positive")
	}
	if c.File.RetentionDays < 0 {
		problems = append(problems, "file.retention_days must not be negative")
	}
	if c.Email.Enabled() && c.Email.FromEmail == "" {
		problems = append(problems, "email.from_email is required when email is enabled")
	}
	if c.Email.Timeout <= 0 {
		problems = append(problems, "email.timeout must be positive")
	}
	for i, bot := range c.Chatbots {
		if bot.Slug == "" {
			problems = append(problems, fmt.Sprintf("chatbots[%d].slug is required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
