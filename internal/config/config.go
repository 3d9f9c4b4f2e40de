package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	HTTP       HTTPConfig
	Database   DatabaseConfig
	AA         AAConfig
	Classifier ClassifierConfig
	Reconcile  ReconcileConfig
	Auth       AuthConfig
	Timezone   string
}

// HTTPConfig holds server settings.
type HTTPConfig struct {
	Addr string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string
	MigrationsPath string
}

// AAConfig holds Account Aggregator provider settings.
type AAConfig struct {
	BaseURL           string
	LoginURL          string
	ClientID          string
	ClientSecret      string
	ProductInstanceID string
}

// ClassifierConfig selects the narration classifier implementation.
type ClassifierConfig struct {
	Provider string // "http" or "heuristic"
	URL      string
}

// ReconcileConfig holds matching settings.
type ReconcileConfig struct {
	WindowMinutes  int
	FuzzyMerchants bool
}

// AuthConfig holds OTP and session-token settings.
type AuthConfig struct {
	SigningKey    string
	OTPTTLMinutes int
}

// Load reads configuration from file and env. Env var overrides use prefix FINLINK_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "finlink", "finlink.db"))
	v.SetDefault("database.migrationspath", "internal/database/migrations")
	v.SetDefault("aa.baseurl", "https://fiu-sandbox.setu.co/v2")
	v.SetDefault("aa.loginurl", "https://orgservice-prod.setu.co/v1/users/login")
	v.SetDefault("aa.clientid", "")
	v.SetDefault("aa.clientsecret", "")
	v.SetDefault("aa.productinstanceid", "")
	v.SetDefault("classifier.provider", "http")
	v.SetDefault("classifier.url", "")
	v.SetDefault("reconcile.windowminutes", 5)
	v.SetDefault("reconcile.fuzzymerchants", false)
	v.SetDefault("auth.signingkey", "")
	v.SetDefault("auth.otpttlminutes", 5)
	v.SetDefault("timezone", "Asia/Kolkata")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("FINLINK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "finlink"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FINLINK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
