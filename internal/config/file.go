package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileValues are the settings a TOML config file may carry. Unset values
// fall back to the environment.
type FileValues struct {
	AppName        string `toml:"app_name"`
	DataFolder     string `toml:"data_folder"`
	APIBaseURL     string `toml:"api_base_url"`
	StorageBackend string `toml:"session_storage"`

	TokenValidity    string `toml:"token_validity"`
	IdleTimeout      string `toml:"idle_timeout"`
	RefreshThreshold string `toml:"refresh_threshold"`
	AutoRefresh      *bool  `toml:"auto_refresh"`

	AuthProvider      string `toml:"auth_provider"`
	OidcIssuerURL     string `toml:"oidc_issuer_url"`
	OidcClientID      string `toml:"oidc_client_id"`
	OidcClientSecret  string `toml:"oidc_client_secret"`
	OidcRedirectURL   string `toml:"oidc_redirect_url"`
	OidcEndSessionURL string `toml:"oidc_end_session_url"`
}

type fileConfig struct {
	mainConfig
	values FileValues
}

// NewFromFile builds a Config that overlays a TOML file over the
// environment defaults.
func NewFromFile(path string) (Config, error) {
	cfg := fileConfig{}
	if _, err := toml.DecodeFile(path, &cfg.values); err != nil {
		return nil, errors.Wrap(err, "[config.NewFromFile] DecodeFile")
	}
	return cfg, nil
}

func (f fileConfig) GetAppName() string {
	return pick(f.values.AppName, f.mainConfig.GetAppName)
}

func (f fileConfig) GetDataFolder() string {
	return pick(f.values.DataFolder, f.mainConfig.GetDataFolder)
}

func (f fileConfig) GetAPIBaseURL() string {
	return pick(f.values.APIBaseURL, f.mainConfig.GetAPIBaseURL)
}

func (f fileConfig) GetStorageBackend() string {
	return pick(f.values.StorageBackend, f.mainConfig.GetStorageBackend)
}

func (f fileConfig) GetTokenValidity() time.Duration {
	return pickDuration(f.values.TokenValidity, f.mainConfig.GetTokenValidity)
}

func (f fileConfig) GetIdleTimeout() time.Duration {
	return pickDuration(f.values.IdleTimeout, f.mainConfig.GetIdleTimeout)
}

func (f fileConfig) GetRefreshThreshold() time.Duration {
	return pickDuration(f.values.RefreshThreshold, f.mainConfig.GetRefreshThreshold)
}

func (f fileConfig) GetAutoRefresh() bool {
	if f.values.AutoRefresh != nil {
		return *f.values.AutoRefresh
	}
	return f.mainConfig.GetAutoRefresh()
}

func (f fileConfig) GetAuthProvider() string {
	return pick(f.values.AuthProvider, f.mainConfig.GetAuthProvider)
}

func (f fileConfig) GetOidcIssuerURL() string {
	return pick(f.values.OidcIssuerURL, f.mainConfig.GetOidcIssuerURL)
}

func (f fileConfig) GetOidcClientID() string {
	return pick(f.values.OidcClientID, f.mainConfig.GetOidcClientID)
}

func (f fileConfig) GetOidcClientSecret() string {
	return pick(f.values.OidcClientSecret, f.mainConfig.GetOidcClientSecret)
}

func (f fileConfig) GetOidcRedirectURL() string {
	return pick(f.values.OidcRedirectURL, f.mainConfig.GetOidcRedirectURL)
}

func (f fileConfig) GetOidcEndSessionURL() string {
	return pick(f.values.OidcEndSessionURL, f.mainConfig.GetOidcEndSessionURL)
}

func pick(value string, fallback func() string) string {
	if value != "" {
		return value
	}
	return fallback()
}

func pickDuration(value string, fallback func() time.Duration) time.Duration {
	if value == "" {
		return fallback()
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback()
	}
	return parsed
}
