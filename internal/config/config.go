package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// OutputFormats lists the accepted output.format values.
var OutputFormats = []string{"text", "json", "xml", "yaml"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Scanner: ScannerConfig{
			XDensity: 1,
			YDensity: 1,
		},
		Symbologies: map[string]map[string]int{},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RequestsPerMinute: 120,
			RequestsPerHour:   3000,
		},
		Batch: BatchConfig{
			Workers:         runtime.NumCPU(),
			ContinueOnError: true,
		},
		Video: VideoConfig{
			EvictAfter: 4,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: log level %q (must be one of: %s)", ErrInvalid, c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("%w: output format %q (must be one of: %s)", ErrInvalid, c.Output.Format, strings.Join(OutputFormats, ", "))
	}
	if c.Scanner.XDensity < 0 || c.Scanner.YDensity < 0 {
		return fmt.Errorf("%w: scan density must not be negative", ErrInvalid)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d (must be between 1 and 65535)", ErrInvalid, c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: max upload size %d (must be positive)", ErrInvalid, c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("%w: timeout %d (must be positive)", ErrInvalid, c.Server.TimeoutSec)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("%w: batch workers %d (must be positive)", ErrInvalid, c.Batch.Workers)
	}
	if c.Video.EvictAfter < 0 {
		return fmt.Errorf("%w: video evict_after %d", ErrInvalid, c.Video.EvictAfter)
	}

	// Dry-run the decoder options so typos surface before any scan.
	scratch := imagescanner.New()
	if err := c.ApplyTo(scratch); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ApplyTo configures a scanner: densities first, then the symbologies map in
// name order, then the settings list in order.
func (c *Config) ApplyTo(s *imagescanner.Scanner) error {
	if err := s.SetConfig(symbol.None, decoder.OptXDensity, c.Scanner.XDensity); err != nil {
		return err
	}
	if err := s.SetConfig(symbol.None, decoder.OptYDensity, c.Scanner.YDensity); err != nil {
		return err
	}

	names := make([]string, 0, len(c.Symbologies))
	for name := range c.Symbologies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		// "all" addresses every symbology
		base, err := symbol.ParseBase(name)
		if err != nil {
			return fmt.Errorf("symbologies.%s: %w", name, err)
		}
		opts := c.Symbologies[name]
		keys := make([]string, 0, len(opts))
		for k := range opts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			opt, err := decoder.ParseOption(k)
			if err != nil {
				return fmt.Errorf("symbologies.%s.%s: %w", name, k, err)
			}
			if err := s.SetConfig(base, opt, opts[k]); err != nil {
				return fmt.Errorf("symbologies.%s.%s: %w", name, k, err)
			}
		}
	}

	for _, setting := range c.Settings {
		base, opt, val, err := decoder.ParseSetting(setting)
		if err != nil {
			return fmt.Errorf("setting %q: %w", setting, err)
		}
		if err := s.SetConfig(base, opt, val); err != nil {
			return fmt.Errorf("setting %q: %w", setting, err)
		}
	}

	s.SetCacheWindow(c.Video.EvictAfter)
	return nil
}

// NewScanner returns a scanner configured from c.
func (c *Config) NewScanner() (*imagescanner.Scanner, error) {
	s := imagescanner.New()
	if err := c.ApplyTo(s); err != nil {
		return nil, err
	}
	return s, nil
}
