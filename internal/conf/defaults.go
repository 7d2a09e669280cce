// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration. Required MySQL keys
// deliberately have none so their absence is caught by validation.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Backend selection, SQLite by explicit opt-in only
	viper.SetDefault("sqlite", false)
	viper.SetDefault("sqlite_database_file", "database.db")
	viper.SetDefault("mysql_port", 3306)

	// Logging
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("log_rotation", string(RotationSize))
	viper.SetDefault("log_max_size", int64(100*1024*1024))

	// Monitoring
	viper.SetDefault("monitoring_enabled", false)
	viper.SetDefault("monitoring_interval", 5*time.Minute)
}
