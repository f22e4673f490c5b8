package config

// EnvPrefix is passed to envconfig.Process; individual fields carry explicit
// names, so it stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv          = "RAILTIX_APP_ENV"
	EnvDBDSN           = "RAILTIX_DB_DSN"
	EnvDBHost          = "RAILTIX_DB_HOST"
	EnvDBUser          = "RAILTIX_DB_USER"
	EnvDBName          = "RAILTIX_DB_NAME"
	EnvRedisURL        = "RAILTIX_REDIS_URL"
	EnvGCPProjectID    = "RAILTIX_GCP_PROJECT_ID"
	EnvBookingTopic    = "RAILTIX_PUBSUB_BOOKING_TOPIC"
	EnvBookingSub      = "RAILTIX_PUBSUB_BOOKING_SUBSCRIPTION"
	EnvSeatingBaseDate = "RAILTIX_SEATING_BASE_DATE"
)

var hostDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
