package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MQTTBroker         string
	MQTTClientID       string
	MQTTTopic          string
	MQTTUsername       string
	MQTTPassword       string
	MQTTReconnectDelay time.Duration

	SessionTTL        time.Duration
	SubscriptionGrace time.Duration

	BootstrapCompany    string
	BootstrapAdminEmail string
	BootstrapAdminPass  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "ecosnap"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "json")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ecosnap"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		MQTTBroker:         getenv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:       getenv("MQTT_CLIENT_ID", "ecosnap-backend"),
		MQTTTopic:          getenv("MQTT_TOPIC", "sensors/+/readings"),
		MQTTUsername:       getenv("MQTT_USERNAME", ""),
		MQTTPassword:       getenv("MQTT_PASSWORD", ""),
		MQTTReconnectDelay: getenvDuration("MQTT_RECONNECT_DELAY", 5*time.Second),

		SessionTTL:        getenvDuration("SESSION_TTL", 24*time.Hour),
		SubscriptionGrace: getenvDuration("SUBSCRIPTION_GRACE", 3*time.Second),

		BootstrapCompany:    getenv("BOOTSTRAP_COMPANY", "EcoSnap"),
		BootstrapAdminEmail: getenv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPass:  getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
