package config

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = "ifoodsync"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "IFOODSYNC_DB_DSN"
	EnvDBHost = "IFOODSYNC_DB_HOST"
	EnvDBUser = "IFOODSYNC_DB_USER"
	EnvDBName = "IFOODSYNC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
