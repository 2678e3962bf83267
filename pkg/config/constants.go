package config

const (
	EnvPrefix = "FREIGHTDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv              = "FREIGHTDESK_APP_ENV"
	EnvPort                = "FREIGHTDESK_APP_PORT"
	EnvAppTimezone         = "FREIGHTDESK_APP_TIMEZONE"
	EnvDBDSN               = "FREIGHTDESK_DB_DSN"
	EnvDBHost              = "FREIGHTDESK_DB_HOST"
	EnvDBUser              = "FREIGHTDESK_DB_USER"
	EnvDBName              = "FREIGHTDESK_DB_NAME"
	EnvRedisURL            = "FREIGHTDESK_REDIS_URL"
	EnvJWTSecret           = "FREIGHTDESK_JWT_SECRET"
	EnvJWTIssuer           = "FREIGHTDESK_JWT_ISSUER"
	EnvJWTExpMins          = "FREIGHTDESK_JWT_EXPIRATION_MINUTES"
	EnvLedgerHaltingMode   = "FREIGHTDESK_LEDGER_HALTING_MODE"
	EnvLifecyclePermissive = "FREIGHTDESK_LIFECYCLE_PERMISSIVE"
	EnvLifecycleIndent     = "FREIGHTDESK_LIFECYCLE_INDENT_TABLE"
	EnvCacheTTL            = "FREIGHTDESK_CACHE_TTL"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
