package config

import (
	"os"
	"time"
)

const (
	appNameVar = "APP_NAME"
	folderVar  = "FOLDER"
	apiBaseVar = "API_BASE_URL"
	storageVar = "SESSION_STORAGE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "AI Academy")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderVar, "./data")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseVar, "http://localhost:8000")
}

func (EnvVars) GetStorageBackend() string {
	return GetEnv(storageVar, StorageFile)
}

type SessionVars struct{}

var _ SessionConfig = SessionVars{}

func (SessionVars) GetTokenValidity() time.Duration {
	return getDuration("TOKEN_VALIDITY", 14*24*time.Hour)
}

func (SessionVars) GetIdleTimeout() time.Duration {
	return getDuration("IDLE_TIMEOUT", 30*time.Minute)
}

func (SessionVars) GetRefreshThreshold() time.Duration {
	return getDuration("REFRESH_THRESHOLD", 30*time.Minute)
}

func (SessionVars) GetAutoRefresh() bool {
	return GetEnv("AUTO_REFRESH", "true") != "false"
}

type ProviderVars struct{}

var _ ProviderConfig = ProviderVars{}

func (ProviderVars) GetAuthProvider() string {
	return GetEnv("AUTH_PROVIDER", ProviderStatic)
}

func (ProviderVars) GetOidcIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "")
}

func (ProviderVars) GetOidcClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (ProviderVars) GetOidcClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (ProviderVars) GetOidcRedirectURL() string {
	return GetEnv("OIDC_REDIRECT_URL", "")
}

func (ProviderVars) GetOidcEndSessionURL() string {
	return GetEnv("OIDC_END_SESSION_URL", "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
