package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Email struct {
		APIKey     string
		From       string
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Telegram struct {
		BotToken string
		ChatID   int64
	}
	API struct {
		Port     string
		BasePath string
	}
	Dispatch struct {
		BatchSize int
		SendDelay time.Duration
		Interval  time.Duration
		AppURL    string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Email provider settings
	cfg.Email.APIKey = os.Getenv("EMAIL_API_KEY")
	cfg.Email.From = os.Getenv("EMAIL_FROM")
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")

	// Kafka settings (consumer disabled when broker is empty)
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Telegram ops alerts (disabled when token is empty)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Dispatch settings
	if bs, err := strconv.Atoi(os.Getenv("DISPATCH_BATCH_SIZE")); err == nil {
		cfg.Dispatch.BatchSize = bs
	}
	if ms, err := strconv.Atoi(os.Getenv("DISPATCH_SEND_DELAY_MS")); err == nil {
		cfg.Dispatch.SendDelay = time.Duration(ms) * time.Millisecond
	}
	if s, err := strconv.Atoi(os.Getenv("DISPATCH_INTERVAL_SECONDS")); err == nil {
		cfg.Dispatch.Interval = time.Duration(s) * time.Second
	}
	cfg.Dispatch.AppURL = os.Getenv("APP_URL")

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Email.From == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 50
	}
	if cfg.Dispatch.SendDelay == 0 {
		// Provider contract is 2 requests per second; 600ms leaves one request of slack.
		cfg.Dispatch.SendDelay = 600 * time.Millisecond
	}
	if cfg.Dispatch.Interval == 0 {
		cfg.Dispatch.Interval = time.Minute
	}
	if cfg.Dispatch.AppURL == "" {
		cfg.Dispatch.AppURL = "https://app.meujardim.com.br"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "task_events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "reminder-service"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
