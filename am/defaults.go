package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Camera tool defaults
	v.SetDefault("camera_tool.path", "CameraTool")
	v.SetDefault("camera_tool.timeout_seconds", 30)
	v.SetDefault("camera_tool.max_calls_per_second", 10.0)

	// Annotation defaults
	v.SetDefault("annotation.copy_box", true)
	v.SetDefault("annotation.copy_location", true)
	v.SetDefault("annotation.mode", "mixed")
	v.SetDefault("annotation.zone_classifier", "threshold")

	// Workspace defaults
	v.SetDefault("workspace.watch_images", true)
	v.SetDefault("workspace.debounce_ms", 250)
	v.SetDefault("workspace.autosave", false)

	// Database and history defaults
	v.SetDefault("database.path", "framemark.db")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.max_revisions", 50)

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	v.SetDefault("log.json", false)
}

// BindEnvVars explicitly binds settings commonly overridden per machine
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("camera_tool.path", "FRAMEMARK_CAMERA_TOOL_PATH")
	v.BindEnv("database.path", "FRAMEMARK_DATABASE_PATH")
	v.BindEnv("server.port", "FRAMEMARK_SERVER_PORT")
}

// GetServerPort returns server.port, or DefaultServerPort when unset
func (c *Config) GetServerPort() int {
	if c.Server.Port == nil {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "framemark.db"
	}
	return c.Database.Path
}

// GetServerAllowedOrigins returns the allowed websocket origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
		}
	}
	return c.Server.AllowedOrigins
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{CameraTool: %s, Database: %s, Annotation: {Mode: %s, Classifier: %s}}",
		c.CameraTool.Path, c.Database.Path, c.Annotation.Mode, c.Annotation.ZoneClassifier)
}
