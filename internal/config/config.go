package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SessionConfig
	ProviderConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetAPIBaseURL() string
	GetStorageBackend() string
}

type SessionConfig interface {
	GetTokenValidity() time.Duration
	GetIdleTimeout() time.Duration
	GetRefreshThreshold() time.Duration
	GetAutoRefresh() bool
}

type ProviderConfig interface {
	GetAuthProvider() string
	GetOidcIssuerURL() string
	GetOidcClientID() string
	GetOidcClientSecret() string
	GetOidcRedirectURL() string
	GetOidcEndSessionURL() string
}

// Storage backends
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Identity providers
const (
	ProviderStatic = "static"
	ProviderOidc   = "oidc"
)

type mainConfig struct {
	EnvVars
	SessionVars
	ProviderVars
}

// New builds a Config reading from the environment, with a .env file loaded
// first when one is present.
func New() Config {
	_ = godotenv.Load() // a missing .env file is fine
	return mainConfig{}
}
