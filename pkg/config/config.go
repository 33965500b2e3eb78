package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	IFood      IFoodConfig
	Resilience ResilienceConfig
	Poller     PollerConfig
	ERP        ERPConfig
	Features   FeatureFlagsConfig
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
	Env          string `envconfig:"IFOODSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"IFOODSYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"IFOODSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IFOODSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"IFOODSYNC_DB_DSN"`
	Driver string `envconfig:"IFOODSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"IFOODSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"IFOODSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"IFOODSYNC_DB_USER"`
	LegacyPassword string `envconfig:"IFOODSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"IFOODSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"IFOODSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IFOODSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IFOODSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IFOODSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IFOODSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"IFOODSYNC_REDIS_URL"`
	Address      string        `envconfig:"IFOODSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"IFOODSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"IFOODSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IFOODSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IFOODSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IFOODSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IFOODSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IFOODSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IFoodConfig covers the marketplace API surface.
type IFoodConfig struct {
	BaseURL         string        `envconfig:"IFOODSYNC_IFOOD_BASE_URL" default:"https://merchant-api.ifood.com.br"`
	APIToken        string        `envconfig:"IFOODSYNC_IFOOD_API_TOKEN"`
	SignatureSecret string        `envconfig:"IFOODSYNC_IFOOD_SIGNATURE_SECRET"`
	HTTPTimeout     time.Duration `envconfig:"IFOODSYNC_IFOOD_HTTP_TIMEOUT" default:"15s"`

	DetailMaxAttempts int           `envconfig:"IFOODSYNC_IFOOD_DETAIL_MAX_ATTEMPTS" default:"10"`
	DetailMaxElapsed  time.Duration `envconfig:"IFOODSYNC_IFOOD_DETAIL_MAX_ELAPSED" default:"10m"`
	DetailBaseDelay   time.Duration `envconfig:"IFOODSYNC_IFOOD_DETAIL_BASE_DELAY" default:"1s"`

	BatchWaitTries int           `envconfig:"IFOODSYNC_IFOOD_BATCH_WAIT_TRIES" default:"12"`
	BatchWaitDelay time.Duration `envconfig:"IFOODSYNC_IFOOD_BATCH_WAIT_DELAY" default:"5s"`
}

// ResilienceConfig feeds the outbound-call policy registry.
type ResilienceConfig struct {
	MaxAttempts      int           `envconfig:"IFOODSYNC_HTTP_RETRIES" default:"4"`
	BackoffBase      time.Duration `envconfig:"IFOODSYNC_HTTP_BACKOFF_BASE" default:"300ms"`
	BackoffCap       time.Duration `envconfig:"IFOODSYNC_HTTP_BACKOFF_CAP" default:"8s"`
	RateMaxPerWindow int           `envconfig:"IFOODSYNC_RATE_MAX" default:"10"`
	RateWindow       time.Duration `envconfig:"IFOODSYNC_RATE_WINDOW" default:"1s"`
	BreakerThreshold int           `envconfig:"IFOODSYNC_CB_FAIL_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"IFOODSYNC_CB_OPEN_FOR" default:"10s"`
}

type PollerConfig struct {
	Enabled          bool          `envconfig:"IFOODSYNC_POLLING_ENABLED" default:"true"`
	Interval         time.Duration `envconfig:"IFOODSYNC_POLL_INTERVAL" default:"30s"`
	Types            []string      `envconfig:"IFOODSYNC_POLL_TYPES"`
	Groups           []string      `envconfig:"IFOODSYNC_POLL_GROUPS"`
	Merchants        []string      `envconfig:"IFOODSYNC_POLL_MERCHANTS"`
	ExcludeHeartbeat bool          `envconfig:"IFOODSYNC_POLL_EXCLUDE_HEARTBEAT" default:"true"`
	LockTTL          time.Duration `envconfig:"IFOODSYNC_POLL_LOCK_TTL" default:"2m"`
	MetricsPort      string        `envconfig:"IFOODSYNC_POLL_METRICS_PORT" default:"9090"`
}

// ERPConfig covers the back-office API plus the situation ids its sale
// transitions require.
type ERPConfig struct {
	BaseURL     string        `envconfig:"IFOODSYNC_ERP_BASE_URL"`
	APIToken    string        `envconfig:"IFOODSYNC_ERP_API_TOKEN"`
	HTTPTimeout time.Duration `envconfig:"IFOODSYNC_ERP_HTTP_TIMEOUT" default:"15s"`

	SaleKind             string `envconfig:"IFOODSYNC_ERP_SALE_KIND" default:"produto"`
	SituationIDConfirmed int    `envconfig:"IFOODSYNC_ERP_SITUATION_CONFIRMED" default:"3150"`
	SituationIDCancelled int    `envconfig:"IFOODSYNC_ERP_SITUATION_CANCELLED" default:"9998"`
	SituationIDConcluded int    `envconfig:"IFOODSYNC_ERP_SITUATION_CONCLUDED" default:"9999"`
}

// Enabled reports whether the ERP integration is configured at all; every
// ERP call is a soft-skip when it is not.
func (e ERPConfig) Enabled() bool {
	return strings.TrimSpace(e.BaseURL) != ""
}

// NormalizedBaseURL strips trailing slashes so paths can be joined safely.
func (e ERPConfig) NormalizedBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
}

type FeatureFlagsConfig struct {
	// ERPControlsStock redirects physical-quantity adjustments to the ERP
	// stock table and suppresses marketplace publishes.
	ERPControlsStock bool `envconfig:"IFOODSYNC_ERP_CONTROLS_STOCK" default:"false"`
	AutoMigrate      bool `envconfig:"IFOODSYNC_AUTO_MIGRATE" default:"false"`
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
