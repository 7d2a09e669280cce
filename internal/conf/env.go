// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Backend selection
		{"sqlite", "SQLITE", validateEnvBool},
		{"sqlite_database_file", "SQLITE_DATABASE_FILE", validateEnvNonEmpty},

		// MySQL connection parameters
		{"mysql_host", "MYSQL_HOST", nil},
		{"mysql_port", "MYSQL_PORT", validateEnvPort},
		{"mysql_database", "MYSQL_DATABASE", nil},
		{"mysql_user", "MYSQL_USER", nil},
		{"mysql_password", "MYSQL_PASSWORD", nil},

		// Logging
		{"log_level", "LOG_LEVEL", validateEnvLogLevel},
		{"log_file", "LOG_FILE", nil},
		{"log_rotation", "LOG_ROTATION", validateEnvRotation},
		{"log_max_size", "LOG_MAX_SIZE", validateEnvSize},

		// Misc
		{"debug", "DEBUG", validateEnvBool},
		{"monitoring_enabled", "MONITORING_ENABLED", validateEnvBool},
		{"monitoring_interval", "MONITORING_INTERVAL", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		// Bind the environment variable to the config key
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and validation function is provided
		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

// validateEnvNonEmpty rejects values that are set but blank
func validateEnvNonEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("value must not be blank")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of: trace, debug, info, warn, error")
}

func validateEnvRotation(value string) error {
	switch RotationType(strings.ToLower(value)) {
	case RotationDaily, RotationWeekly, RotationSize:
		return nil
	}
	return fmt.Errorf("must be one of: daily, weekly, size")
}

func validateEnvSize(value string) error {
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	// Set up key replacer for nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables with validation
	// Return any errors to the caller for centralized handling
	return bindEnvVars()
}

// resolveBool reads a boolean key, reporting malformed values with the
// environment variable name rather than silently defaulting to false.
func resolveBool(configKey, envVar string) (bool, error) {
	raw := viper.GetString(configKey)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value '%s': must be a boolean", envVar, raw)
	}
	return value, nil
}
