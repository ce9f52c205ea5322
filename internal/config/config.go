package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceAccount is the privileged credential the server uses to mint and verify id tokens.
type ServiceAccount struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string // PEM, RSA
}

// Config holds application configuration (env + Viper).
type Config struct {
	Env      string
	Port     string
	LogLevel string

	ProjectID      string
	APIKey         string
	ServiceAccount ServiceAccount
	IDTokenTTL     time.Duration

	DatabaseURL string
	RedisURL    string

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
	StoragePublicURL string // base for persisted download URLs; defaults to the endpoint

	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	FormRatePerMinute   int

	MainAdminEmail     string
	MainAdminPassword  string
	MainAdminFirstName string
	MainAdminLastName  string
}

// Load loads config from env and optional .env file, then validates the required keys.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ID_TOKEN_TTL", "1h")
	viper.SetDefault("FORM_RATE_PER_MINUTE", 10)
	viper.SetDefault("MAIN_ADMIN_FIRST_NAME", "Main")
	viper.SetDefault("MAIN_ADMIN_LAST_NAME", "Admin")

	cfg := &Config{
		Env:      viper.GetString("APP_ENV"),
		Port:     viper.GetString("PORT"),
		LogLevel: viper.GetString("LOG_LEVEL"),

		ProjectID: viper.GetString("PLATFORM_PROJECT_ID"),
		APIKey:    viper.GetString("PLATFORM_API_KEY"),
		ServiceAccount: ServiceAccount{
			ProjectID:   viper.GetString("SERVICE_ACCOUNT_PROJECT_ID"),
			ClientEmail: viper.GetString("SERVICE_ACCOUNT_CLIENT_EMAIL"),
			PrivateKey:  normalizePrivateKey(viper.GetString("SERVICE_ACCOUNT_PRIVATE_KEY")),
		},
		IDTokenTTL: viper.GetDuration("ID_TOKEN_TTL"),

		DatabaseURL: viper.GetString("DATABASE_URL"),
		RedisURL:    viper.GetString("REDIS_URL"),

		StorageEndpoint:  viper.GetString("STORAGE_ENDPOINT"),
		StorageAccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
		StorageSecretKey: viper.GetString("STORAGE_SECRET_KEY"),
		StorageBucket:    viper.GetString("STORAGE_BUCKET"),
		StorageUseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		StoragePublicURL: viper.GetString("STORAGE_PUBLIC_URL"),

		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		FormRatePerMinute:   viper.GetInt("FORM_RATE_PER_MINUTE"),

		MainAdminEmail:     viper.GetString("MAIN_ADMIN_EMAIL"),
		MainAdminPassword:  viper.GetString("MAIN_ADMIN_PASSWORD"),
		MainAdminFirstName: viper.GetString("MAIN_ADMIN_FIRST_NAME"),
		MainAdminLastName:  viper.GetString("MAIN_ADMIN_LAST_NAME"),
	}
	if cfg.StoragePublicURL == "" && cfg.StorageEndpoint != "" {
		scheme := "http://"
		if cfg.StorageUseSSL {
			scheme = "https://"
		}
		cfg.StoragePublicURL = scheme + cfg.StorageEndpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required key in one error.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"PLATFORM_PROJECT_ID", c.ProjectID},
		{"PLATFORM_API_KEY", c.APIKey},
		{"SERVICE_ACCOUNT_PROJECT_ID", c.ServiceAccount.ProjectID},
		{"SERVICE_ACCOUNT_CLIENT_EMAIL", c.ServiceAccount.ClientEmail},
		{"SERVICE_ACCOUNT_PRIVATE_KEY", c.ServiceAccount.PrivateKey},
		{"DATABASE_URL", c.DatabaseURL},
		{"REDIS_URL", c.RedisURL},
		{"STORAGE_ENDPOINT", c.StorageEndpoint},
		{"STORAGE_ACCESS_KEY", c.StorageAccessKey},
		{"STORAGE_SECRET_KEY", c.StorageSecretKey},
		{"STORAGE_BUCKET", c.StorageBucket},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.ServiceAccount.ProjectID != c.ProjectID {
		return fmt.Errorf("SERVICE_ACCOUNT_PROJECT_ID %q does not match PLATFORM_PROJECT_ID %q", c.ServiceAccount.ProjectID, c.ProjectID)
	}
	if c.IDTokenTTL <= 0 {
		return fmt.Errorf("ID_TOKEN_TTL must be positive")
	}
	if (c.MainAdminEmail == "") != (c.MainAdminPassword == "") {
		return fmt.Errorf("MAIN_ADMIN_EMAIL and MAIN_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Keys copied out of JSON credential files carry literal \n sequences.
func normalizePrivateKey(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), `\n`, "\n")
}
