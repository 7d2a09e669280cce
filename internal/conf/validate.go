// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. Every problem is
// collected so one pass reports all missing or invalid keys.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLogSettings(&settings.Log); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMonitoringSettings(&settings.Monitoring); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateDatabaseSettings checks that the selected backend has everything it
// needs. The MySQL parameters are only required when SQLite is not selected.
func validateDatabaseSettings(settings *DatabaseSettings) error {
	var errs []string

	if settings.SQLite.Enabled {
		if strings.TrimSpace(settings.SQLite.Path) == "" {
			errs = append(errs, "SQLITE_DATABASE_FILE must not be empty when SQLITE is true")
		}
	} else {
		required := []struct {
			value  string
			envVar string
		}{
			{settings.MySQL.Host, "MYSQL_HOST"},
			{settings.MySQL.Database, "MYSQL_DATABASE"},
			{settings.MySQL.Username, "MYSQL_USER"},
			{settings.MySQL.Password, "MYSQL_PASSWORD"},
		}
		var missing []string
		for _, req := range required {
			if strings.TrimSpace(req.value) == "" {
				missing = append(missing, req.envVar)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Sprintf("MySQL backend selected but required keys are missing: %s "+
				"(set them in %s or the environment, or set SQLITE=true)",
				strings.Join(missing, ", "), EnvFileName))
		}
		if settings.MySQL.Port < 1 || settings.MySQL.Port > 65535 {
			errs = append(errs, fmt.Sprintf("MYSQL_PORT must be between 1 and 65535, got %d", settings.MySQL.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogSettings(settings *LogConfig) error {
	var errs []string

	switch strings.ToLower(settings.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of trace, debug, info, warn, error, got '%s'", settings.Level))
	}

	switch settings.Rotation {
	case RotationDaily, RotationWeekly, RotationSize:
	default:
		errs = append(errs, fmt.Sprintf("LOG_ROTATION must be one of daily, weekly, size, got '%s'", settings.Rotation))
	}

	if settings.MaxSize <= 0 {
		errs = append(errs, fmt.Sprintf("LOG_MAX_SIZE must be positive, got %d", settings.MaxSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMonitoringSettings(settings *MonitoringSettings) error {
	if settings.Enabled && settings.Interval <= 0 {
		return fmt.Errorf("MONITORING_INTERVAL must be positive when monitoring is enabled, got %v", settings.Interval)
	}
	return nil
}
