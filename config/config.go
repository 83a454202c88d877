package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	PublicBaseURL     string `mapstructure:"PUBLIC_BASE_URL"`
	APIKey            string `mapstructure:"API_KEY"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// OpenAI Realtime configuration.
	OpenAIAPIKey        string  `mapstructure:"OPENAI_API_KEY"`
	RealtimeModel       string  `mapstructure:"REALTIME_MODEL"`
	RealtimeVoice       string  `mapstructure:"REALTIME_VOICE"`
	RealtimeTemperature float64 `mapstructure:"REALTIME_TEMPERATURE"`

	// Twilio configuration.
	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`

	// Notification sinks.
	NotifyWebhookURL string `mapstructure:"NOTIFY_WEBHOOK_URL"`
	NotifySMSNumber  string `mapstructure:"NOTIFY_SMS_NUMBER"`

	// Redis configuration (session registry + notification queue).
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB     int    `mapstructure:"REDIS_SESSION_DB"`
	RedisNotifyQueueDB int    `mapstructure:"REDIS_NOTIFY_QUEUE_DB"`
	UseRedisRegistry   bool   `mapstructure:"USE_REDIS_REGISTRY"`
	UseNotifyQueue     bool   `mapstructure:"USE_NOTIFY_QUEUE"`

	// MongoDB (call record archival; optional).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REALTIME_MODEL", "gpt-4o-realtime-preview-2024-12-17")
	viper.SetDefault("REALTIME_VOICE", "alloy")
	viper.SetDefault("REALTIME_TEMPERATURE", 0.8)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_NOTIFY_QUEUE_DB", 1)
	viper.SetDefault("USE_REDIS_REGISTRY", false)
	viper.SetDefault("USE_NOTIFY_QUEUE", false)
	viper.SetDefault("DATABASE_URL", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
