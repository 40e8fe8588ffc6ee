package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DSN           string
	MigrationsDir string
	HTTPPort      string
	GRPCPort      string
	Username      string
	Password      string
	FilterWord    string
	Timezone      string
	LogLevel      string

	RedisAddr string
	DraftTTL  time.Duration

	KafkaBrokers []string
	KafkaGroupID string
	KafkaTopic   string

	KakaoRESTKey       string
	KakaoGeocodeURL    string
	KakaoDirectionsURL string

	TossSecretKey  string
	TossConfirmURL string

	SendGridAPIKey string
	MailFrom       string
	MailTo         string
}

func LoadConfig() *Config {
	brokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	return &Config{
		DSN:           getEnv("APP_DSN", "host=localhost user=postgres password=postgres dbname=bigmove sslmode=disable"),
		MigrationsDir: getEnv("APP_MIGRATIONS", "migrations"),
		HTTPPort:      getEnv("APP_PORT", "8000"),
		GRPCPort:      getEnv("GRPC_PORT", "9000"),
		Username:      getEnv("APP_USER", "admin"),
		Password:      getEnv("APP_PASS", "secret"),
		FilterWord:    getEnv("APP_FILTER", ""),
		Timezone:      getEnv("APP_TZ", "Asia/Seoul"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		DraftTTL:  getDuration("DRAFT_TTL", 7*24*time.Hour),

		KafkaBrokers: strings.Split(brokersStr, ","),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "order-notify-group"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),

		KakaoRESTKey:       getEnv("KAKAO_REST_KEY", ""),
		KakaoGeocodeURL:    getEnv("KAKAO_GEOCODE_URL", "https://dapi.kakao.com/v2/local/search/address.json"),
		KakaoDirectionsURL: getEnv("KAKAO_DIRECTIONS_URL", "https://apis-navi.kakaomobility.com/v1/directions"),

		TossSecretKey:  getEnv("TOSS_SECRET_KEY", ""),
		TossConfirmURL: getEnv("TOSS_CONFIRM_URL", "https://api.tosspayments.com/v1/payments/confirm"),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "noreply@bigmove.kr"),
		MailTo:         getEnv("MAIL_TO", "ops@bigmove.kr"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}

func (c *Config) GRPCAddr() string {
	return fmt.Sprintf(":%s", c.GRPCPort)
}

// Location falls back to UTC when the zone database has no entry for Timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
