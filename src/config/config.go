package config

import (
	"context"
	"fmt"
	"fms/src/pricing"
	"fms/src/types"
	"log"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Store    StoreConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	S3       S3Config
	Pricing  PricingConfig
	VNPay    VNPayConfig
	MoMo     MoMoConfig
	Stripe   StripeConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Env         types.AppEnv
	Port        string
	Maintenance bool
	AppHost     string
	LogDir      string
}

type AuthConfig struct {
	// Provider is "jwt" (HS256 with JWTSecret) or "firebase" (ID tokens).
	Provider  string
	JWTSecret string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone)
}

type StoreConfig struct {
	// Backend is firestore, postgres or memory.
	Backend string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	URL        string
	CatalogTTL time.Duration
}

type KafkaConfig struct {
	Broker   string
	ClientID string
	Enabled  bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Enabled  bool
}

type S3Config struct {
	ReportBucket string
	ReportPrefix string
}

type PricingConfig struct {
	ExchangeValue  int64
	EarnRate       int64
	FoodVATPercent int64
	RankDiscounts  map[types.Rank]int64
	Location       *time.Location
}

func (p PricingConfig) Policy() pricing.Policy {
	policy := pricing.DefaultPolicy()
	policy.ExchangeValue = p.ExchangeValue
	policy.EarnRate = p.EarnRate
	if len(p.RankDiscounts) > 0 {
		policy.RankDiscounts = p.RankDiscounts
	}
	return policy
}

type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
	Locale     string
	ExpireIn   time.Duration
}

type MoMoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
	RequestType string
	Timeout     time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
}

type JobsConfig struct {
	Enabled            bool
	ExpirationInterval time.Duration
	PendingPaymentTTL  time.Duration
	StaleScanInterval  time.Duration
	RankRecalcInterval time.Duration
	ReportHour         uint
}

// Load builds the process configuration once. In local mode a .env file in
// the working directory is read first. When PAYMENT_SECRETS_ID is set the
// named AWS Secrets Manager secret is overlaid on top.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("API_ENV") == string(types.Local) {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("[Config] .env not loaded: %s\n", err.Error())
		}
	}
	cfg := FromEnv(os.Getenv)
	if secretID := os.Getenv("PAYMENT_SECRETS_ID"); secretID != "" {
		client, err := NewSecretsClient(ctx)
		if err != nil {
			return nil, err
		}
		if err := ApplySecrets(ctx, cfg, client, secretID); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func FromEnv(getenv func(string) string) *Config {
	e := env(getenv)
	return &Config{
		Server: ServerConfig{
			Env:         types.AppEnv(e.str("API_ENV", string(types.Local))),
			Port:        e.str("PORT", "8080"),
			Maintenance: e.boolean("MAINTENANCE_MODE", false),
			AppHost:     e.str("APP_HOST", ""),
			LogDir:      e.str("LOG_DIR", "logs"),
		},
		Auth: AuthConfig{
			Provider:  e.str("AUTH_PROVIDER", "jwt"),
			JWTSecret: e.str("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Host:     e.str("DATABASE_HOST", "localhost"),
			Port:     e.str("DATABASE_PORT", "5432"),
			User:     e.str("DATABASE_USER", "postgres"),
			Password: e.str("DATABASE_PASSWORD", ""),
			Name:     e.str("DATABASE_NAME", "fms"),
			SSLMode:  e.str("DATABASE_SSLMODE", "disable"),
			TimeZone: e.str("DATABASE_TIMEZONE", "Asia/Ho_Chi_Minh"),
		},
		Store: StoreConfig{
			Backend: e.str("STORE_BACKEND", "firestore"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       e.str("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: path.Join(e.str("SECRETS_DIR", "."), e.str("FIREBASE_CREDENTIALS_FILE", "admin-sdk-credentials.json")),
		},
		Redis: RedisConfig{
			URL:        e.str("REDIS_HOST", ""),
			CatalogTTL: e.duration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Broker:   e.str("KAFKA_BROKER", ""),
			ClientID: e.str("KAFKA_CLIENT_ID", "fms-api"),
			Enabled:  e.boolean("KAFKA_ENABLED", false),
		},
		SMTP: SMTPConfig{
			Host:     e.str("SMTP_HOST", ""),
			Port:     e.integer("SMTP_PORT", 587),
			Username: e.str("SMTP_USERNAME", ""),
			Password: e.str("SMTP_PASSWORD", ""),
			From:     e.str("SMTP_FROM", "no-reply@fms.local"),
			FromName: e.str("SMTP_FROM_NAME", "Facility Services"),
			Enabled:  e.boolean("SMTP_ENABLED", false),
		},
		S3: S3Config{
			ReportBucket: e.str("S3_REPORTS_BUCKET", ""),
			ReportPrefix: e.str("S3_REPORTS_PREFIX", "reports"),
		},
		Pricing: PricingConfig{
			ExchangeValue:  e.int64("POINTS_EXCHANGE_VALUE", 1000),
			EarnRate:       e.int64("POINTS_EARN_RATE", 10000),
			FoodVATPercent: e.int64("FOOD_VAT_PERCENT", 10),
			RankDiscounts:  parseRankDiscounts(e.str("RANK_DISCOUNTS", "")),
			Location:       loadLocation(e.str("APP_TIMEZONE", "Asia/Ho_Chi_Minh")),
		},
		VNPay: VNPayConfig{
			TmnCode:    e.str("VNPAY_TMN_CODE", ""),
			HashSecret: e.str("VNPAY_HASH_SECRET", ""),
			PayURL:     e.str("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  e.str("VNPAY_RETURN_URL", ""),
			Locale:     e.str("VNPAY_LOCALE", "vn"),
			ExpireIn:   e.duration("VNPAY_EXPIRE_IN", 15*time.Minute),
		},
		MoMo: MoMoConfig{
			PartnerCode: e.str("MOMO_PARTNER_CODE", ""),
			AccessKey:   e.str("MOMO_ACCESS_KEY", ""),
			SecretKey:   e.str("MOMO_SECRET_KEY", ""),
			Endpoint:    e.str("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create"),
			RedirectURL: e.str("MOMO_REDIRECT_URL", ""),
			IPNURL:      e.str("MOMO_IPN_URL", ""),
			RequestType: e.str("MOMO_REQUEST_TYPE", "captureWallet"),
			Timeout:     e.duration("MOMO_TIMEOUT", 30*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:     e.str("STRIPE_SECRET_KEY", ""),
			WebhookSecret: e.str("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    e.str("STRIPE_SUCCESS_URL", ""),
			CancelURL:     e.str("STRIPE_CANCEL_URL", ""),
			Currency:      e.str("STRIPE_CURRENCY", "vnd"),
		},
		Jobs: JobsConfig{
			Enabled:            e.boolean("JOBS_ENABLED", true),
			ExpirationInterval: e.duration("JOB_EXPIRATION_INTERVAL", 10*time.Minute),
			PendingPaymentTTL:  e.duration("PENDING_PAYMENT_TTL", 30*time.Minute),
			StaleScanInterval:  e.duration("JOB_STALE_PAYMENT_INTERVAL", 5*time.Minute),
			RankRecalcInterval: e.duration("JOB_RANK_INTERVAL", 24*time.Hour),
			ReportHour:         uint(e.integer("JOB_REPORT_HOUR", 1)),
		},
	}
}

type env func(string) string

func (e env) str(key, def string) string {
	if v := strings.TrimSpace(e(key)); v != "" {
		return v
	}
	return def
}

func (e env) boolean(key string, def bool) bool {
	v, err := strconv.ParseBool(e(key))
	if err != nil {
		return def
	}
	return v
}

func (e env) integer(key string, def int) int {
	v, err := strconv.Atoi(e(key))
	if err != nil {
		return def
	}
	return v
}

func (e env) int64(key string, def int64) int64 {
	v, err := strconv.ParseInt(e(key), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func (e env) duration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(e(key))
	if err != nil {
		return def
	}
	return v
}

// parseRankDiscounts reads "bronze:0,silver:5,gold:10". Malformed pairs are
// skipped.
func parseRankDiscounts(raw string) map[types.Rank]int64 {
	if raw == "" {
		return nil
	}
	out := map[types.Rank]int64{}
	for _, pair := range strings.Split(raw, ",") {
		rank, pct, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(pct), 10, 64)
		if err != nil || v < 0 || v > 100 {
			log.Printf("[Config] ignoring rank discount %q\n", pair)
			continue
		}
		out[types.Rank(strings.ToLower(strings.TrimSpace(rank)))] = v
	}
	return out
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Config] unknown timezone %s, using UTC+7: %s\n", name, err.Error())
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}
