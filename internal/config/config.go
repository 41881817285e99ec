package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（4000）

	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	GoEnv       string // dev/prod
	FrontendURL string // 決済後のリダイレクト先
	LogLevel    string

	Payment PaymentConfig

	// true ならステータス更新を遷移表で検証する
	OrderStatusStrict bool

	KafkaBrokers    []string // 空ならイベント送信しない
	KafkaOrderTopic string

	RedisAddr     string // 空ならwebhookの重複排除をしない
	RedisPassword string
	RedisDB       int
}

// 決済まわりの設定
type PaymentConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	DeliveryFee         decimal.Decimal
	// true ならクライアントのsuccessフラグをゲートウェイに問い合わせて確認する
	// 支払い済みの注文はキャンセル扱いでも消さない
	VerifyWithGateway bool
}

// LookupFunc は環境変数の取得元（テストで差し替える）
type LookupFunc func(key string) (string, bool)

// Loadは .env があれば読み込んでから環境変数を読む
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFrom(os.LookupEnv)
}

// LoadFrom は lookup から設定を組み立てる
func LoadFrom(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	pgPort, err := intWithDefault(lookup, "POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}

	fee, err := decimal.NewFromString(stringWithDefault(lookup, "DELIVERY_FEE", "2"))
	if err != nil {
		return Config{}, fmt.Errorf("DELIVERY_FEE must be decimal: %w", err)
	}
	if fee.IsNegative() {
		return Config{}, fmt.Errorf("DELIVERY_FEE must not be negative")
	}

	redisDB, err := intWithDefault(lookup, "REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}

	verify, err := boolWithDefault(lookup, "PAYMENT_VERIFY_WITH_GATEWAY", false)
	if err != nil {
		return Config{}, err
	}

	strictStatus, err := boolWithDefault(lookup, "ORDER_STATUS_STRICT", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: stringWithDefault(lookup, "PORT", "4000"),

		DatabaseURL:      stringWithDefault(lookup, "DATABASE_URL", ""),
		PostgresUser:     stringWithDefault(lookup, "POSTGRES_USER", "postgres"),
		PostgresPassword: stringWithDefault(lookup, "POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       stringWithDefault(lookup, "POSTGRES_DB", "food_del"),
		PostgresHost:     stringWithDefault(lookup, "POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  stringWithDefault(lookup, "POSTGRES_SSLMODE", "disable"),

		JWTSecret: stringWithDefault(lookup, "JWT_SECRET", ""),

		GoEnv:       stringWithDefault(lookup, "GO_ENV", "dev"),
		FrontendURL: strings.TrimRight(stringWithDefault(lookup, "FRONTEND_URL", "http://localhost:5174"), "/"),
		LogLevel:    stringWithDefault(lookup, "LOG_LEVEL", "info"),

		Payment: PaymentConfig{
			StripeSecretKey:     stringWithDefault(lookup, "STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: stringWithDefault(lookup, "STRIPE_WEBHOOK_SECRET", ""),
			Currency:            strings.ToLower(stringWithDefault(lookup, "PAYMENT_CURRENCY", "usd")),
			DeliveryFee:         fee,
			VerifyWithGateway:   verify,
		},
		OrderStatusStrict: strictStatus,

		KafkaBrokers:    csv(stringWithDefault(lookup, "KAFKA_BROKERS", "")),
		KafkaOrderTopic: stringWithDefault(lookup, "KAFKA_ORDER_TOPIC", "orders"),

		RedisAddr:     stringWithDefault(lookup, "REDIS_ADDR", ""),
		RedisPassword: stringWithDefault(lookup, "REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Payment.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.GoEnv == "prod" && cfg.Payment.StripeWebhookSecret == "" {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in prod")
	}

	return cfg, nil
}

// DSN は gorm postgres 用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addr は ":4000" 形式
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func stringWithDefault(lookup LookupFunc, key, def string) string {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func intWithDefault(lookup LookupFunc, key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolWithDefault(lookup LookupFunc, key string, def bool) (bool, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
