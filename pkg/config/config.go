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
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	OpenAI       OpenAIConfig
	Assistant    AssistantConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ESHOPLITE_APP_ENV" required:"true"`
	Port         string `envconfig:"ESHOPLITE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ESHOPLITE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ESHOPLITE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"ESHOPLITE_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"ESHOPLITE_SERVICE_KIND" default:"payments"`
}

type DBConfig struct {
	DSN    string `envconfig:"ESHOPLITE_DB_DSN"`
	Driver string `envconfig:"ESHOPLITE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ESHOPLITE_DB_HOST"`
	LegacyPort     int    `envconfig:"ESHOPLITE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ESHOPLITE_DB_USER"`
	LegacyPassword string `envconfig:"ESHOPLITE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ESHOPLITE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ESHOPLITE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ESHOPLITE_SQLITE_PATH" default:"eshoplite.db"`

	MaxOpenConns    int           `envconfig:"ESHOPLITE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ESHOPLITE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ESHOPLITE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ESHOPLITE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ESHOPLITE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ESHOPLITE_REDIS_ADDR"`
	Password     string        `envconfig:"ESHOPLITE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ESHOPLITE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ESHOPLITE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ESHOPLITE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ESHOPLITE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ESHOPLITE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ESHOPLITE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RateLimitConfig struct {
	SearchWindow     time.Duration `envconfig:"ESHOPLITE_RATE_LIMIT_SEARCH_WINDOW" default:"1m"`
	SearchIPLimit    int           `envconfig:"ESHOPLITE_RATE_LIMIT_SEARCH_IP_LIMIT" default:"30"`
	AssistantWindow  time.Duration `envconfig:"ESHOPLITE_RATE_LIMIT_ASSISTANT_WINDOW" default:"1m"`
	AssistantIPLimit int           `envconfig:"ESHOPLITE_RATE_LIMIT_ASSISTANT_IP_LIMIT" default:"20"`
	IdempotencyTTL   time.Duration `envconfig:"ESHOPLITE_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ESHOPLITE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ESHOPLITE_AUTO_MIGRATE" default:"false"`
	SeedCatalog bool `envconfig:"ESHOPLITE_SEED_CATALOG" default:"false"`
}

type OpenAIConfig struct {
	APIKey         string        `envconfig:"ESHOPLITE_OPENAI_API_KEY"`
	BaseURL        string        `envconfig:"ESHOPLITE_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	ChatModel      string        `envconfig:"ESHOPLITE_OPENAI_CHAT_MODEL" default:"gpt-4.1-mini"`
	EmbeddingModel string        `envconfig:"ESHOPLITE_OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Timeout        time.Duration `envconfig:"ESHOPLITE_OPENAI_TIMEOUT" default:"30s"`
}

// Enabled reports whether an API key was supplied.
func (o OpenAIConfig) Enabled() bool {
	return strings.TrimSpace(o.APIKey) != ""
}

type AssistantConfig struct {
	HistoryLimit    int           `envconfig:"ESHOPLITE_ASSISTANT_HISTORY_LIMIT" default:"20"`
	ContextMessages int           `envconfig:"ESHOPLITE_ASSISTANT_CONTEXT_MESSAGES" default:"10"`
	ConversationTTL time.Duration `envconfig:"ESHOPLITE_ASSISTANT_CONVERSATION_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ESHOPLITE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ESHOPLITE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ESHOPLITE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic string `envconfig:"ESHOPLITE_PUBSUB_PAYMENTS_TOPIC" default:"eshoplite-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ESHOPLITE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ESHOPLITE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ESHOPLITE_OUTBOX_MAX_ATTEMPTS" default:"10"`

	RetentionDays     int           `envconfig:"ESHOPLITE_OUTBOX_RETENTION_DAYS" default:"30"`
	RetentionInterval time.Duration `envconfig:"ESHOPLITE_OUTBOX_RETENTION_INTERVAL" default:"24h"`
}

// RequirePubSub checks the settings the outbox publisher cannot run without.
func (c *Config) RequirePubSub() error {
	missing := []string{}
	if strings.TrimSpace(c.GCP.ProjectID) == "" {
		missing = append(missing, EnvGCPProjectID)
	}
	if strings.TrimSpace(c.PubSub.PaymentsTopic) == "" {
		missing = append(missing, EnvPubSubPaymentsTopic)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required pubsub settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
