//nolint:lll
package config

// Config represents the complete configuration for zbarimg.
// It includes settings for all commands (image, batch, video, pdf, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Scanner configuration
	Scanner ScannerConfig `mapstructure:"scanner" yaml:"scanner" json:"scanner"`

	// Symbologies maps a symbology name to option values, e.g. ean13: {add-check: 1}.
	Symbologies map[string]map[string]int `mapstructure:"symbologies" yaml:"symbologies" json:"symbologies"`

	// Settings are applied after Symbologies, in order, as "[symbology.]option[=value]".
	Settings []string `mapstructure:"settings" yaml:"settings" json:"settings"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Video (frame sequence) configuration
	Video VideoConfig `mapstructure:"video" yaml:"video" json:"video"`
}

// ScannerConfig contains scan-line density settings shared by all symbologies.
type ScannerConfig struct {
	XDensity int `mapstructure:"x_density" yaml:"x_density" json:"x_density"`
	YDensity int `mapstructure:"y_density" yaml:"y_density" json:"y_density"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format      string `mapstructure:"format" yaml:"format" json:"format"`
	File        string `mapstructure:"file" yaml:"file" json:"file"`
	Raw         bool   `mapstructure:"raw" yaml:"raw" json:"raw"`
	Quiet       bool   `mapstructure:"quiet" yaml:"quiet" json:"quiet"`
	AnnotateDir string `mapstructure:"annotate_dir" yaml:"annotate_dir" json:"annotate_dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `mapstructure:"host" yaml:"host" json:"host"`
	Port              int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin        string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec        int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int    `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int    `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64  `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// VideoConfig contains frame sequence settings.
type VideoConfig struct {
	// EvictAfter is the number of frames a symbol may go unseen before the cache forgets it.
	EvictAfter int  `mapstructure:"evict_after" yaml:"evict_after" json:"evict_after"`
	FreshOnly  bool `mapstructure:"fresh_only" yaml:"fresh_only" json:"fresh_only"`
}
