package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Flags     FeatureFlagsConfig
	Square    SquareConfig
	Sheets    SheetsConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	Eventing  EventingConfig
	Orders    OrdersConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GALA_APP_ENV" required:"true"`
	Port         string `envconfig:"GALA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GALA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GALA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GALA_DB_DSN"`
	Driver string `envconfig:"GALA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GALA_DB_HOST"`
	LegacyPort     int    `envconfig:"GALA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GALA_DB_USER"`
	LegacyPassword string `envconfig:"GALA_DB_PASSWORD"`
	LegacyName     string `envconfig:"GALA_DB_NAME"`
	LegacySSLMode  string `envconfig:"GALA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GALA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GALA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GALA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GALA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GALA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GALA_REDIS_ADDR"`
	Password     string        `envconfig:"GALA_REDIS_PASSWORD"`
	DB           int           `envconfig:"GALA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GALA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GALA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GALA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GALA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GALA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GALA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GALA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GALA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GALA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GALA_AUTO_MIGRATE" default:"false"`
}

type SquareConfig struct {
	AccessToken   string        `envconfig:"GALA_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string        `envconfig:"GALA_SQUARE_WEBHOOK_SECRET"`
	LocationID    string        `envconfig:"GALA_SQUARE_LOCATION_ID"`
	Env           string        `envconfig:"GALA_SQUARE_ENV" default:"sandbox"`
	CallTimeout   time.Duration `envconfig:"GALA_SQUARE_CALL_TIMEOUT" default:"10s"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SheetsConfig struct {
	SpreadsheetID string `envconfig:"GALA_SHEETS_SPREADSHEET_ID"`
	GuestRange    string `envconfig:"GALA_SHEETS_GUEST_RANGE" default:"Guests!A2"`
	TableRange    string `envconfig:"GALA_SHEETS_TABLE_RANGE" default:"Tables!A2"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GALA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GALA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GALA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"GALA_PUBSUB_DOMAIN_TOPIC" default:"gala-domain-events"`
	NotificationTopic  string `envconfig:"GALA_PUBSUB_NOTIFICATION_TOPIC" default:"gala-notifications"`
	DomainSubscription string `envconfig:"GALA_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GALA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GALA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GALA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"GALA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// OrdersConfig covers checkout and invitation behavior.
type OrdersConfig struct {
	Currency  string        `envconfig:"GALA_ORDERS_CURRENCY" default:"USD"`
	InviteTTL time.Duration `envconfig:"GALA_ORDERS_INVITE_TTL" default:"336h"`
}

// RateLimitConfig throttles the unauthenticated invitation routes. A zero
// window or limit disables the check.
type RateLimitConfig struct {
	InviteWindow time.Duration `envconfig:"GALA_RATE_LIMIT_INVITE_WINDOW" default:"1m"`
	InviteLimit  int           `envconfig:"GALA_RATE_LIMIT_INVITE_LIMIT" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
