package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Share         ShareConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	GameAPI       GameAPIConfig
	PriceAPI      PriceAPIConfig
	Sendgrid      SendgridConfig
	Cron          CronConfig
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
	Env          string `envconfig:"GAMESHELF_APP_ENV" required:"true"`
	Port         string `envconfig:"GAMESHELF_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"GAMESHELF_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"GAMESHELF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GAMESHELF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ShareLink builds the public wishlist URL handed to gift-givers.
func (a AppConfig) ShareLink(token string) string {
	return strings.TrimRight(a.BaseURL, "/") + "/wishlist/" + token
}

type DBConfig struct {
	DSN    string `envconfig:"GAMESHELF_DB_DSN"`
	Driver string `envconfig:"GAMESHELF_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GAMESHELF_DB_HOST"`
	LegacyPort     int    `envconfig:"GAMESHELF_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GAMESHELF_DB_USER"`
	LegacyPassword string `envconfig:"GAMESHELF_DB_PASSWORD"`
	LegacyName     string `envconfig:"GAMESHELF_DB_NAME"`
	LegacySSLMode  string `envconfig:"GAMESHELF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GAMESHELF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GAMESHELF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GAMESHELF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GAMESHELF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GAMESHELF_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GAMESHELF_REDIS_ADDR"`
	Password     string        `envconfig:"GAMESHELF_REDIS_PASSWORD"`
	DB           int           `envconfig:"GAMESHELF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GAMESHELF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GAMESHELF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GAMESHELF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GAMESHELF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GAMESHELF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GAMESHELF_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GAMESHELF_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GAMESHELF_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GAMESHELF_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GAMESHELF_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GAMESHELF_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GAMESHELF_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GAMESHELF_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GAMESHELF_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GAMESHELF_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GAMESHELF_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GAMESHELF_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GAMESHELF_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GAMESHELF_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GAMESHELF_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// ShareConfig throttles the anonymous share-token surface.
type ShareConfig struct {
	RateLimitWindow  time.Duration `envconfig:"GAMESHELF_SHARE_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP   int           `envconfig:"GAMESHELF_SHARE_RATE_LIMIT_PER_IP" default:"30"`
	RateLimitPerTkn  int           `envconfig:"GAMESHELF_SHARE_RATE_LIMIT_PER_TOKEN" default:"60"`
	UnreadCountTTL   time.Duration `envconfig:"GAMESHELF_NOTIFICATION_COUNT_TTL" default:"5m"`
	NotifRetention   int           `envconfig:"GAMESHELF_NOTIFICATION_RETENTION_DAYS" default:"90"`
	EventDedupeTTL   time.Duration `envconfig:"GAMESHELF_NOTIFICATION_EVENT_DEDUPE_TTL" default:"72h"`
	EmailSendTimeout time.Duration `envconfig:"GAMESHELF_NOTIFICATION_EMAIL_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GAMESHELF_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GAMESHELF_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GAMESHELF_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GAMESHELF_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GAMESHELF_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"GAMESHELF_PUBSUB_NOTIFICATION_TOPIC" default:"gs-notification-events"`
	NotificationSubscription string `envconfig:"GAMESHELF_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"gs-notification-mailer"`
}

// GameAPIConfig points at the external game metadata provider.
type GameAPIConfig struct {
	BaseURL string        `envconfig:"GAMESHELF_GAME_API_BASE_URL" default:"https://api.thegamesdb.net"`
	APIKey  string        `envconfig:"GAMESHELF_GAME_API_KEY"`
	Timeout time.Duration `envconfig:"GAMESHELF_GAME_API_TIMEOUT" default:"10s"`
}

// PriceAPIConfig points at the auction price provider.
type PriceAPIConfig struct {
	BaseURL     string        `envconfig:"GAMESHELF_PRICE_API_BASE_URL" default:"https://www.pricecharting.com/api"`
	APIKey      string        `envconfig:"GAMESHELF_PRICE_API_KEY"`
	Timeout     time.Duration `envconfig:"GAMESHELF_PRICE_API_TIMEOUT" default:"15s"`
	MaxAttempts int           `envconfig:"GAMESHELF_PRICE_API_MAX_ATTEMPTS" default:"3"`
	SyncMaxAge  time.Duration `envconfig:"GAMESHELF_PRICE_SYNC_MAX_AGE" default:"24h"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"GAMESHELF_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"GAMESHELF_SENDGRID_FROM_EMAIL"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GAMESHELF_CRON_INTERVAL" default:"24h"`
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
