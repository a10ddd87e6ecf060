package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadServerConfig loads the server config from the given path, or from
// ROUTEGRAPH_* environment variables when no path is given.
func LoadServerConfig(configPath *string) (*ServerConfig, error) {
	v := viper.New()

	if configPath == nil {
		// if no file expect envs
		config, err := loadServerEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadServerFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func loadServerEnv(v *viper.Viper) (*ServerConfig, error) {
	// godotenv might fail if the .env file is missing but env can come
	// from docker, systemd or other means, so skip the error
	_ = godotenv.Load()
	v.SetEnvPrefix("ROUTEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindServerEnvKeys(v)

	var config ServerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyServerConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindServerEnvKeys binds each config key to its env var so Unmarshal
// sees env values when no config file is loaded (env-only mode).
func bindServerEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"update_interval_minutes", "build_timeout_minutes",
		"cache_capacity", "cache_ttl_minutes",
		"oracle_url", "bulk_pair_limit", "verify_top_n",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadServerFile(v *viper.Viper, configPath string) (*ServerConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ServerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyServerConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}

	return &config, nil
}

func verifyServerConfig(config *ServerConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if config.UpdateIntervalMinutes < 0 {
		return fmt.Errorf("update_interval_minutes must not be negative")
	}

	if config.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity must not be negative")
	}

	return nil
}
