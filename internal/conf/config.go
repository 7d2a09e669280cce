// Package conf loads and validates the environment-driven configuration
// of the thermal event storage library.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings contains all configuration options for the thermal event store.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in the environment
	Version   string // Version from build
	BuildDate string // Build date from build

	Database   DatabaseSettings   // storage backend selection and credentials
	Log        LogConfig          // logging configuration
	Monitoring MonitoringSettings // periodic database monitoring
}

// DatabaseSettings selects and parameterizes the storage backend.
type DatabaseSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SQLiteSettings configures the file-backed SQLite store.
type SQLiteSettings struct {
	Enabled bool   // true to store thermal events in a local SQLite file
	Path    string // path to the SQLite database file
}

// MySQLSettings configures the networked MySQL store.
type MySQLSettings struct {
	Host     string // host of the MySQL server
	Port     int    // port of the MySQL server
	Database string // database name
	Username string // username for the MySQL database
	Password string // password for the MySQL database
}

// MonitoringSettings configures the periodic database monitoring loop.
type MonitoringSettings struct {
	Enabled  bool          // true to run connection pool and size monitoring
	Interval time.Duration // time between monitoring samples
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable file logging
	Level    string       // minimum level: trace, debug, info, warn, error
	Path     string       // Path to the log file, empty logs to stderr only
	Rotation RotationType // Type of log rotation
	MaxSize  int64        // Max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// EnvFileName is the environment file read from the working directory.
const EnvFileName = ".env"

// defaultEnvFileName is the optional site-wide defaults file in the home directory.
const defaultEnvFileName = ".env.default"

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the environment files and process environment into a Settings
// value and validates it. No database connection is attempted here; a
// configuration problem is reported before any backend is dialed.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	// Initialize viper and read the environment files
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing configuration: %w", err)
	}

	settings, err := buildSettings()
	if err != nil {
		return nil, err
	}

	// Validate settings, reporting every missing or invalid key at once
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	// Save settings instance
	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with defaults, environment files and
// environment variable bindings.
func initViper() error {
	viper.SetConfigType("env")

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Site-wide defaults from the home directory, read first so the local
	// file and the process environment can override them.
	if home, err := os.UserHomeDir(); err == nil {
		defaultEnvPath := filepath.Join(home, defaultEnvFileName)
		if fileExists(defaultEnvPath) {
			viper.SetConfigFile(defaultEnvPath)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("error reading %s: %w", defaultEnvPath, err)
			}
		}
	}

	// Local .env from the process working directory. The file is optional;
	// required keys may instead come from the real environment.
	if fileExists(EnvFileName) {
		viper.SetConfigFile(EnvFileName)
		if err := viper.MergeInConfig(); err != nil {
			return fmt.Errorf("error reading %s: %w", EnvFileName, err)
		}
	}

	// Process environment variables take precedence over both files
	return configureEnvironmentVariables()
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// buildSettings assembles a Settings value from the resolved configuration.
// Malformed values are reported here so they carry the variable name.
func buildSettings() (*Settings, error) {
	settings := &Settings{}

	sqliteEnabled, err := resolveBool("sqlite", "SQLITE")
	if err != nil {
		return nil, err
	}
	debug, err := resolveBool("debug", "DEBUG")
	if err != nil {
		return nil, err
	}

	settings.Debug = debug
	settings.Database.SQLite.Enabled = sqliteEnabled
	settings.Database.SQLite.Path = viper.GetString("sqlite_database_file")
	settings.Database.MySQL.Host = viper.GetString("mysql_host")
	settings.Database.MySQL.Port = viper.GetInt("mysql_port")
	settings.Database.MySQL.Database = viper.GetString("mysql_database")
	settings.Database.MySQL.Username = viper.GetString("mysql_user")
	settings.Database.MySQL.Password = viper.GetString("mysql_password")

	settings.Log.Level = viper.GetString("log_level")
	settings.Log.Path = viper.GetString("log_file")
	settings.Log.Enabled = settings.Log.Path != ""
	settings.Log.Rotation = RotationType(viper.GetString("log_rotation"))
	settings.Log.MaxSize = viper.GetInt64("log_max_size")

	settings.Monitoring.Enabled = viper.GetBool("monitoring_enabled")
	settings.Monitoring.Interval = viper.GetDuration("monitoring_interval")

	return settings, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				// Leave the instance nil; callers treat nil as "not configured"
				return
			}
		}
	})
	return GetSettings()
}

// SetSettings replaces the current settings instance. Intended for tests and
// for applications that assemble Settings programmatically.
func SetSettings(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = settings
}
