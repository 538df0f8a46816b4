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
	Database DatabaseConfig
	Import   ImportConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// ImportConfig holds ingestion settings.
type ImportConfig struct {
	// Dir is scanned when `import` is run without file arguments.
	Dir string
	// KeepFiles disables deletion of source files after processing.
	KeepFiles bool `mapstructure:"keep_files"`
}

// Load reads configuration from file and env. Env var overrides use prefix SIMPLEBUDGET_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "simple-budget", "simple-budget.db"))
	v.SetDefault("import.dir", "imports")
	v.SetDefault("import.keep_files", false)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SIMPLEBUDGET_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "simple-budget"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SIMPLEBUDGET")
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
