package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Ledger       LedgerConfig
	Lifecycle    LifecycleConfig
	Cache        CacheConfig
	Feed         FeedConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvAppTimezone, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FREIGHTDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"FREIGHTDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"FREIGHTDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FREIGHTDESK_LOG_WARN_STACK" default:"false"`
	Timezone     string   `envconfig:"FREIGHTDESK_APP_TIMEZONE" default:"Asia/Kolkata"`
	CORSOrigins  []string `envconfig:"FREIGHTDESK_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	env := strings.ToLower(strings.TrimSpace(a.Env))
	return env == AppEnvProd || env == "production"
}

// Location resolves the configured business timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ServiceConfig struct {
	Kind string `envconfig:"FREIGHTDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FREIGHTDESK_DB_DSN"`
	Driver string `envconfig:"FREIGHTDESK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FREIGHTDESK_DB_HOST"`
	Port     int    `envconfig:"FREIGHTDESK_DB_PORT" default:"5432"`
	User     string `envconfig:"FREIGHTDESK_DB_USER"`
	Password string `envconfig:"FREIGHTDESK_DB_PASSWORD"`
	Name     string `envconfig:"FREIGHTDESK_DB_NAME"`
	SSLMode  string `envconfig:"FREIGHTDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FREIGHTDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FREIGHTDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FREIGHTDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FREIGHTDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FREIGHTDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FREIGHTDESK_REDIS_ADDR"`
	Password     string        `envconfig:"FREIGHTDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FREIGHTDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FREIGHTDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FREIGHTDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FREIGHTDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FREIGHTDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FREIGHTDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FREIGHTDESK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FREIGHTDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FREIGHTDESK_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"FREIGHTDESK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FREIGHTDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FREIGHTDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FREIGHTDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FREIGHTDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FREIGHTDESK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FREIGHTDESK_AUTO_MIGRATE" default:"false"`
}

// LedgerConfig picks the sign applied to halting charges in balance figures.
type LedgerConfig struct {
	HaltingMode string `envconfig:"FREIGHTDESK_LEDGER_HALTING_MODE" default:"add"`
}

// LifecycleConfig overrides the built-in status transition tables.
// Tables use the form "from=to1|to2;from2=to3".
type LifecycleConfig struct {
	Permissive  bool   `envconfig:"FREIGHTDESK_LIFECYCLE_PERMISSIVE" default:"false"`
	IndentTable string `envconfig:"FREIGHTDESK_LIFECYCLE_INDENT_TABLE"`
	TripTable   string `envconfig:"FREIGHTDESK_LIFECYCLE_TRIP_TABLE"`
}

// AuthRateLimitConfig throttles login attempts per client IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FREIGHTDESK_LOGIN_RATE_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"FREIGHTDESK_LOGIN_RATE_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"FREIGHTDESK_LOGIN_RATE_EMAIL_LIMIT" default:"5"`
}

type CacheConfig struct {
	TTL time.Duration `envconfig:"FREIGHTDESK_CACHE_TTL" default:"5m"`
}

type FeedConfig struct {
	Channel           string        `envconfig:"FREIGHTDESK_FEED_CHANNEL" default:"fd:feed:indents"`
	HeartbeatInterval time.Duration `envconfig:"FREIGHTDESK_FEED_HEARTBEAT" default:"25s"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"FREIGHTDESK_CRON_INTERVAL" default:"5m"`
	LockTTL         time.Duration `envconfig:"FREIGHTDESK_CRON_LOCK_TTL" default:"4m"`
	OutboxRetention time.Duration `envconfig:"FREIGHTDESK_CRON_OUTBOX_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FREIGHTDESK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FREIGHTDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FREIGHTDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"FREIGHTDESK_PUBSUB_EVENTS_TOPIC" default:"freight-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FREIGHTDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FREIGHTDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FREIGHTDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
