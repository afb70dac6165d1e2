package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"clinicbot/internal/models"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Chat       ChatConfig       `yaml:"chat"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Email      EmailConfig      `yaml:"email"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// DashboardConfig carries the two shared staff secrets. A request whose
// x-staff-key matches one of them acts with that role.
type DashboardConfig struct {
	ReceptionistKey string `yaml:"receptionist_key"`
	AdminKey        string `yaml:"admin_key"`
}

type ChatConfig struct {
	ClinicName        string  `yaml:"clinic_name"`
	SessionTTLHours   int     `yaml:"session_ttl_hours"`
	RateLimitMessages int     `yaml:"rate_limit_messages"`
	RateLimitWindow   int     `yaml:"rate_limit_window"`
	RateLimitRPS      float64 `yaml:"rate_limit_rps"`
	RateLimitBurst    int     `yaml:"rate_limit_burst"`
}

type KnowledgeConfig struct {
	Dir            string  `yaml:"dir"`
	OpenAIKey      string  `yaml:"openai_key"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	TopK           int     `yaml:"top_k"`
	MinScore       float64 `yaml:"min_score"`
}

type EmailConfig struct {
	SendGridKey string `yaml:"sendgrid_key"`
	FromEmail   string `yaml:"from_email"`
	FromName    string `yaml:"from_name"`
	StaffEmail  string `yaml:"staff_email"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadSheetID string `yaml:"bookings_spreadsheet_id"`
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

func Load(configPath string) (*Config, error) {
	// .env необязателен; переменные окружения подставляются в YAML
	_ = godotenv.Load(".env")

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
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Dashboard.ReceptionistKey == "" || c.Dashboard.AdminKey == "" {
		return errors.New("dashboard receptionist_key and admin_key are required")
	}

	if c.Dashboard.ReceptionistKey == c.Dashboard.AdminKey {
		return errors.New("dashboard keys must differ between roles")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "clinicbot"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Chat.ClinicName == "" {
		c.Chat.ClinicName = "SmileCare Dental Clinic"
	}
	if c.Chat.SessionTTLHours == 0 {
		c.Chat.SessionTTLHours = 24
	}
	if c.Chat.RateLimitMessages == 0 {
		c.Chat.RateLimitMessages = models.RateLimitMessages
	}
	if c.Chat.RateLimitWindow == 0 {
		c.Chat.RateLimitWindow = models.RateLimitWindow
	}
	if c.Chat.RateLimitRPS == 0 {
		c.Chat.RateLimitRPS = 5
	}
	if c.Chat.RateLimitBurst == 0 {
		c.Chat.RateLimitBurst = 10
	}
	if c.Knowledge.EmbeddingModel == "" {
		c.Knowledge.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Knowledge.ChatModel == "" {
		c.Knowledge.ChatModel = "gpt-4o-mini"
	}
	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = 4
	}
	if c.Knowledge.MinScore == 0 {
		c.Knowledge.MinScore = 0.25
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.Chat.ClinicName
	}
}
