package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	MQTT       MQTTConfig
	Monitor    MonitorConfig
	Irrigation IrrigationConfig
	Weather    WeatherConfig
	Model      ModelConfig
	Push       PushConfig
	SMTP       SMTPConfig
	Summary    SummaryConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers        []string
	TopicDecisions string
}

type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	AlertTopic  string
	ConnectWait time.Duration
	PublishWait time.Duration
}

// MonitorConfig drives the polling temperature/humidity monitor.
type MonitorConfig struct {
	SourceID         string
	PollInterval     time.Duration
	TemperatureLimit float64
	HumidityLimit    float64
	HistoryCapacity  int
	CycleBackoff     time.Duration
}

// IrrigationConfig drives the message-driven irrigation advisor.
type IrrigationConfig struct {
	SensorTopic     string
	FieldName       string
	DeviceToken     string
	Latitude        float64
	Longitude       float64
	Cutoff          float64
	HistoryCapacity int
	ReadTimeout     time.Duration
	CycleBackoff    time.Duration
	StaleAfter      time.Duration
}

type WeatherConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type ModelConfig struct {
	Path string
}

type PushConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type SummaryConfig struct {
	DailyTime string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "sensor_user"),
			Password: getEnv("DB_PASSWORD", "sensor_pass"),
			DBName:   getEnv("DB_NAME", "sensor_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicDecisions: getEnv("KAFKA_TOPIC_DECISIONS", "sensors.decisions"),
		},
		MQTT: MQTTConfig{
			BrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "sensor-monitor"),
			AlertTopic:  getEnv("MQTT_ALERT_TOPIC", "home/alert/notification"),
			ConnectWait: getEnvAsDuration("MQTT_CONNECT_WAIT", 10*time.Second),
			PublishWait: getEnvAsDuration("MQTT_PUBLISH_WAIT", 5*time.Second),
		},
		Monitor: MonitorConfig{
			SourceID:         getEnv("MONITOR_SOURCE_ID", "home_sensor_1"),
			PollInterval:     getEnvAsDuration("MONITOR_POLL_INTERVAL", 60*time.Second),
			TemperatureLimit: getEnvAsFloat("MONITOR_TEMPERATURE_LIMIT", 30.0),
			HumidityLimit:    getEnvAsFloat("MONITOR_HUMIDITY_LIMIT", 80.0),
			HistoryCapacity:  getEnvAsInt("MONITOR_HISTORY_CAPACITY", 24),
			CycleBackoff:     getEnvAsDuration("MONITOR_CYCLE_BACKOFF", 10*time.Second),
		},
		Irrigation: IrrigationConfig{
			SensorTopic:     getEnv("IRRIGATION_SENSOR_TOPIC", "farm/sensors/soil_sensor_1"),
			FieldName:       getEnv("IRRIGATION_FIELD_NAME", "Field A"),
			DeviceToken:     getEnv("IRRIGATION_DEVICE_TOKEN", ""),
			Latitude:        getEnvAsFloat("IRRIGATION_LATITUDE", 36.7783),
			Longitude:       getEnvAsFloat("IRRIGATION_LONGITUDE", -119.4179),
			Cutoff:          getEnvAsFloat("IRRIGATION_CUTOFF", 0.7),
			HistoryCapacity: getEnvAsInt("IRRIGATION_HISTORY_CAPACITY", 24),
			ReadTimeout:     getEnvAsDuration("IRRIGATION_READ_TIMEOUT", 5*time.Minute),
			CycleBackoff:    getEnvAsDuration("IRRIGATION_CYCLE_BACKOFF", 10*time.Second),
			StaleAfter:      getEnvAsDuration("IRRIGATION_STALE_AFTER", 15*time.Minute),
		},
		Weather: WeatherConfig{
			BaseURL:  getEnv("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5/weather"),
			APIKey:   getEnv("WEATHER_API_KEY", ""),
			Timeout:  getEnvAsDuration("WEATHER_TIMEOUT", 5*time.Second),
			CacheTTL: getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		},
		Model: ModelConfig{
			Path: getEnv("MODEL_PATH", "irrigation_model.json"),
		},
		Push: PushConfig{
			Endpoint: getEnv("PUSH_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
			APIKey:   getEnv("PUSH_API_KEY", ""),
			Timeout:  getEnvAsDuration("PUSH_TIMEOUT", 5*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "sensor-monitor@example.com"),
			To:       getEnv("SMTP_TO", "admin@example.com"),
		},
		Summary: SummaryConfig{
			DailyTime: getEnv("SUMMARY_DAILY_TIME", "00:05"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
