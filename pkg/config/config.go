package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Channel  ChannelConfig
	AppStore AppStoreConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREBRIDGE_APP_PORT" default:"8787"`
	LogLevel     string `envconfig:"STOREBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects and configures the store backend the bridge wraps.
type StoreConfig struct {
	Backend     string `envconfig:"STOREBRIDGE_STORE_BACKEND" default:"local"`
	CatalogPath string `envconfig:"STOREBRIDGE_STORE_CATALOG_PATH"`
	BundleID    string `envconfig:"STOREBRIDGE_STORE_BUNDLE_ID" default:"com.example.app"`
}

const (
	StoreBackendLocal = "local"
)

func (s StoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StoreBackendLocal:
		if strings.TrimSpace(s.CatalogPath) == "" {
			return fmt.Errorf("%s is required for the local store backend", EnvStoreCatalogPath)
		}
		return nil
	default:
		return fmt.Errorf("unsupported store backend %q", s.Backend)
	}
}

type ChannelConfig struct {
	AllowedOrigins []string `envconfig:"STOREBRIDGE_CHANNEL_ALLOWED_ORIGINS"`
	WriteBufferKB  int      `envconfig:"STOREBRIDGE_CHANNEL_WRITE_BUFFER_KB" default:"1"`
	ReadBufferKB   int      `envconfig:"STOREBRIDGE_CHANNEL_READ_BUFFER_KB" default:"1"`
	EventQueueSize int      `envconfig:"STOREBRIDGE_CHANNEL_EVENT_QUEUE_SIZE" default:"64"`
}

// AppStoreConfig holds the App Store signed-payload verification settings.
type AppStoreConfig struct {
	BundleID       string `envconfig:"STOREBRIDGE_APPSTORE_BUNDLE_ID"`
	Environment    string `envconfig:"STOREBRIDGE_APPSTORE_ENVIRONMENT" default:"Sandbox"`
	RootCAPath     string `envconfig:"STOREBRIDGE_APPSTORE_ROOT_CA_PATH"`
	WebhookEnabled bool   `envconfig:"STOREBRIDGE_APPSTORE_WEBHOOK_ENABLED" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREBRIDGE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	Enabled      bool   `envconfig:"STOREBRIDGE_PUBSUB_ENABLED" default:"false"`
	UpdatesTopic string `envconfig:"STOREBRIDGE_PUBSUB_UPDATES_TOPIC" default:"storebridge-transaction-updates"`
}

const (
	EnvAppEnv           = "STOREBRIDGE_APP_ENV"
	EnvStoreCatalogPath = "STOREBRIDGE_STORE_CATALOG_PATH"
)
