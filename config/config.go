package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all agent configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Network scanning.
	ScanSubnet      string `mapstructure:"SCAN_SUBNET"`
	ScanCommand     string `mapstructure:"SCAN_COMMAND"`
	ScanIntervalSec int    `mapstructure:"SCAN_INTERVAL_SEC"`
	ScanTimeoutSec  int    `mapstructure:"SCAN_TIMEOUT_SEC"`

	// Access enforcement.
	WirelessInterface string `mapstructure:"WIRELESS_INTERFACE"`

	// Persistence. Backend is "json" or "sqlite".
	DataDir        string `mapstructure:"DATA_DIR"`
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`

	// Optional enrichment probes.
	MDNSEnabled   bool   `mapstructure:"MDNS_ENABLED"`
	SNMPEnabled   bool   `mapstructure:"SNMP_ENABLED"`
	SNMPCommunity string `mapstructure:"SNMP_COMMUNITY"`

	// Dashboard origin allowed by CORS ("*" during development).
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`
}

var AppConfig Config

// Load reads config.yaml (current dir or ./config) and environment variable
// overrides into AppConfig.
func Load() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "5000")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SCAN_SUBNET", "192.168.1.0/24")
	viper.SetDefault("SCAN_COMMAND", "arp-scan")
	viper.SetDefault("SCAN_INTERVAL_SEC", 60)
	viper.SetDefault("SCAN_TIMEOUT_SEC", 30)
	viper.SetDefault("WIRELESS_INTERFACE", "wlan0")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("STORAGE_BACKEND", "json")
	viper.SetDefault("MDNS_ENABLED", false)
	viper.SetDefault("SNMP_ENABLED", false)
	viper.SetDefault("SNMP_COMMUNITY", "public")
	viper.SetDefault("CORS_ORIGIN", "*")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// ScanInterval returns the periodic scan interval as a duration.
func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSec) * time.Second
}

// ScanTimeout returns the external command timeout as a duration.
func (c Config) ScanTimeout() time.Duration {
	return time.Duration(c.ScanTimeoutSec) * time.Second
}

// IsProduction reports whether the agent runs with the production profile.
func IsProduction() bool {
	return AppConfig.Env == "production"
}
