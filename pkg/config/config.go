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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Booking      BookingConfig
	Seating      SeatingConfig
	Reconcile    ReconcileConfig
	FeatureFlags FeatureFlags
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Seating.parseBaseDate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RAILTIX_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"RAILTIX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RAILTIX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RAILTIX_SERVICE_KIND" default:"fulfillment-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"RAILTIX_DB_DSN"`
	Driver string `envconfig:"RAILTIX_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RAILTIX_DB_HOST"`
	Port     int    `envconfig:"RAILTIX_DB_PORT" default:"5432"`
	User     string `envconfig:"RAILTIX_DB_USER"`
	Password string `envconfig:"RAILTIX_DB_PASSWORD"`
	Name     string `envconfig:"RAILTIX_DB_NAME"`
	SSLMode  string `envconfig:"RAILTIX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RAILTIX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RAILTIX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RAILTIX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RAILTIX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RAILTIX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RAILTIX_REDIS_ADDR"`
	Password     string        `envconfig:"RAILTIX_REDIS_PASSWORD"`
	DB           int           `envconfig:"RAILTIX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RAILTIX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RAILTIX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RAILTIX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RAILTIX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RAILTIX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RAILTIX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RAILTIX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RAILTIX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"RAILTIX_PUBSUB_BOOKING_TOPIC" required:"true"`
	BookingSubscription string `envconfig:"RAILTIX_PUBSUB_BOOKING_SUBSCRIPTION" required:"true"`
}

// BookingConfig tunes admission control and fulfillment.
type BookingConfig struct {
	DefaultBasePrice   string `envconfig:"RAILTIX_BOOKING_DEFAULT_BASE_PRICE" default:"100.00"`
	MaxPassengers      int    `envconfig:"RAILTIX_BOOKING_MAX_PASSENGERS" default:"10"`
	LedgerRetries      int    `envconfig:"RAILTIX_BOOKING_LEDGER_RETRIES" default:"3"`
	FulfillmentWorkers int    `envconfig:"RAILTIX_BOOKING_FULFILLMENT_WORKERS" default:"4"`
}

// SeatingConfig anchors the rolling occupancy window.
type SeatingConfig struct {
	BaseDate string `envconfig:"RAILTIX_SEATING_BASE_DATE" default:"2025-07-01"`

	baseDate time.Time
}

func (s *SeatingConfig) parseBaseDate() error {
	parsed, err := time.Parse("2006-01-02", s.BaseDate)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvSeatingBaseDate, s.BaseDate, err)
	}
	s.baseDate = parsed
	return nil
}

// BaseDateTime returns the parsed window base date (UTC midnight).
func (s SeatingConfig) BaseDateTime() time.Time {
	return s.baseDate
}

type FeatureFlags struct {
	AutoMigrate bool `envconfig:"RAILTIX_FEATURE_AUTO_MIGRATE" default:"false"`
}

type ReconcileConfig struct {
	Interval       time.Duration `envconfig:"RAILTIX_RECONCILE_INTERVAL" default:"30s"`
	RestoreEnabled bool          `envconfig:"RAILTIX_RECONCILE_RESTORE_ENABLED" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	hostValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range hostDBEnvVars {
		if hostValues[env] == "" {
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
