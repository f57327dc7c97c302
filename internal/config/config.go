package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"chairbook/internal/models"
	"chairbook/internal/slots"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Notifier   NotifierConfig   `yaml:"notifier"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey identifies an API consumer. Role is the actor role used for
// eligibility queries when the request does not name one.
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Role        string   `yaml:"role"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// BackendConfig points at the REST API that owns chairs, availabilities and bookings.
type BackendConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Token    string        `yaml:"token"`
	Timeout  time.Duration `yaml:"timeout"`
	PageSize int           `yaml:"page_size"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	CacheTTL int    `yaml:"cache_ttl"` // seconds
}

type ScheduleConfig struct {
	DayStart    string `yaml:"day_start"`
	DayEnd      string `yaml:"day_end"`
	StepMinutes int    `yaml:"step_minutes"`
	Timezone    string `yaml:"timezone"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	ScheduleSpreadSheetID string `yaml:"schedule_spreadsheet_id"`
}

type NotifierConfig struct {
	Enabled      bool    `yaml:"enabled"`
	BotToken     string  `yaml:"bot_token"`
	ChatIDs      []int64 `yaml:"chat_ids"`
	RunTime      string  `yaml:"run_time"`
	LookaheadHrs int     `yaml:"lookahead_hours"`
	MaxRetries   int     `yaml:"max_retries"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend base_url is required")
	}

	if _, err := slots.NewGenerator(c.Schedule.DayStart, c.Schedule.DayEnd, c.Schedule.StepMinutes); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}

	if c.Notifier.Enabled && c.Notifier.BotToken == "" {
		return errors.New("notifier bot_token is required when notifier is enabled")
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if strings.TrimSpace(k.Key) == "" {
			return fmt.Errorf("api key '%s' is empty", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key for client '%s'", k.Name)
		}
		seen[k.Key] = true

		switch k.Role {
		case "", models.RoleUser, models.RoleAttendant, models.RoleAdmin:
		default:
			return fmt.Errorf("api key '%s' has unknown role %q", k.Name, k.Role)
		}
	}
	return nil
}

// Location returns the configured schedule timezone, UTC when unset or invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlotGenerator returns the configured business day.
func (c *Config) SlotGenerator() slots.Generator {
	g, err := slots.NewGenerator(c.Schedule.DayStart, c.Schedule.DayEnd, c.Schedule.StepMinutes)
	if err != nil {
		return slots.Default()
	}
	return g
}

func (c *Config) applyDefaults() {
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Backend.PageSize == 0 {
		c.Backend.PageSize = models.DefaultPageSize
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = models.DefaultCacheTTL
	}

	// Schedule defaults
	if c.Schedule.DayStart == "" {
		c.Schedule.DayStart = models.DefaultDayStart
	}
	if c.Schedule.DayEnd == "" {
		c.Schedule.DayEnd = models.DefaultDayEnd
	}
	if c.Schedule.StepMinutes == 0 {
		c.Schedule.StepMinutes = models.DefaultStepMinutes
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}

	// Notifier defaults
	if c.Notifier.RunTime == "" {
		c.Notifier.RunTime = fmt.Sprintf("%02d:00", models.ReminderHour)
	}
	if c.Notifier.LookaheadHrs == 0 {
		c.Notifier.LookaheadHrs = 24
	}
	if c.Notifier.MaxRetries == 0 {
		c.Notifier.MaxRetries = 3
	}
}
