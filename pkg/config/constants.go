package config

const (
	EnvPrefix = "ESHOPLITE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ServiceKindPayments = "payments"
	ServiceKindProducts = "products"
	ServiceKindOutbox   = "outbox-publisher"
	ServiceKindMigrate  = "migrate"
)

const (
	EnvAppEnv   = "ESHOPLITE_APP_ENV"
	EnvPort     = "ESHOPLITE_APP_PORT"
	EnvLogLevel = "ESHOPLITE_LOG_LEVEL"

	EnvDBDSN    = "ESHOPLITE_DB_DSN"
	EnvDBDriver = "ESHOPLITE_DB_DRIVER"
	EnvDBHost   = "ESHOPLITE_DB_HOST"
	EnvDBUser   = "ESHOPLITE_DB_USER"
	EnvDBName   = "ESHOPLITE_DB_NAME"

	EnvRedisURL = "ESHOPLITE_REDIS_URL"

	EnvUseSQLite   = "ESHOPLITE_USE_SQLITE"
	EnvSeedCatalog = "ESHOPLITE_SEED_CATALOG"

	EnvOpenAIAPIKey = "ESHOPLITE_OPENAI_API_KEY"

	EnvGCPProjectID        = "ESHOPLITE_GCP_PROJECT_ID"
	EnvPubSubPaymentsTopic = "ESHOPLITE_PUBSUB_PAYMENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
