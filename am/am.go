// Package am loads framemark's configuration ("annotation machine" settings).
//
// Configuration is TOML, merged from system, user and project files and
// overridden by FRAMEMARK_* environment variables. Settings changed from the
// annotation UI are persisted separately to ~/.framemark/am_from_ui.toml.
package am

// Config represents the framemark configuration
type Config struct {
	CameraTool CameraToolConfig `mapstructure:"camera_tool" toml:"camera_tool" json:"camera_tool" yaml:"camera_tool"`
	Annotation AnnotationConfig `mapstructure:"annotation" toml:"annotation" json:"annotation" yaml:"annotation"`
	Workspace  WorkspaceConfig  `mapstructure:"workspace" toml:"workspace" json:"workspace" yaml:"workspace"`
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	History    HistoryConfig    `mapstructure:"history" toml:"history" json:"history" yaml:"history"`
	Server     ServerConfig     `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// CameraToolConfig locates the external calibration binary
type CameraToolConfig struct {
	Path              string  `mapstructure:"path" toml:"path" json:"path" yaml:"path"`                                                     // command line, shell-quoted (e.g. "wine CameraTool.exe")
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`             // per invocation
	MaxCallsPerSecond float64 `mapstructure:"max_calls_per_second" toml:"max_calls_per_second" json:"max_calls_per_second" yaml:"max_calls_per_second"` // 0 = unlimited
}

// AnnotationConfig holds the initial annotation settings
type AnnotationConfig struct {
	CopyBox        bool   `mapstructure:"copy_box" toml:"copy_box" json:"copy_box" yaml:"copy_box"`
	CopyLocation   bool   `mapstructure:"copy_location" toml:"copy_location" json:"copy_location" yaml:"copy_location"`
	Mode           string `mapstructure:"mode" toml:"mode" json:"mode" yaml:"mode"`                                         // mixed | location
	ZoneClassifier string `mapstructure:"zone_classifier" toml:"zone_classifier" json:"zone_classifier" yaml:"zone_classifier"` // threshold | zones
}

// WorkspaceConfig controls how an open workspace tracks its directory
type WorkspaceConfig struct {
	WatchImages bool `mapstructure:"watch_images" toml:"watch_images" json:"watch_images" yaml:"watch_images"`
	DebounceMS  int  `mapstructure:"debounce_ms" toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
	Autosave    bool `mapstructure:"autosave" toml:"autosave" json:"autosave" yaml:"autosave"` // save annotation on every frame change
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// HistoryConfig configures annotation revision history
type HistoryConfig struct {
	Enabled      bool `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	MaxRevisions int  `mapstructure:"max_revisions" toml:"max_revisions" json:"max_revisions" yaml:"max_revisions"` // per annotation file, 0 = keep all
}

// ServerConfig configures the state stream server
type ServerConfig struct {
	Port           *int     `mapstructure:"port" toml:"port" json:"port" yaml:"port"` // nil = default 8470, 0 is invalid
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
}

// Server port constants
const (
	DefaultServerPort = 8470
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
