package config

// EnvPrefix is the envconfig prefix for all platform variables.
const EnvPrefix = "GALA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GALA_DB_DSN"
	EnvDBHost = "GALA_DB_HOST"
	EnvDBUser = "GALA_DB_USER"
	EnvDBName = "GALA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
