package config

// EnvPrefix namespaces every environment variable read by envconfig.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "GAMESHELF_DB_DSN"
	EnvDBHost = "GAMESHELF_DB_HOST"
	EnvDBUser = "GAMESHELF_DB_USER"
	EnvDBName = "GAMESHELF_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
