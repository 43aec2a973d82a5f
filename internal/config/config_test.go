package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/decoder"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Video.EvictAfter)
	assert.Positive(t, cfg.Batch.Workers)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"output format", func(c *Config) { c.Output.Format = "csv" }},
		{"negative density", func(c *Config) { c.Scanner.XDensity = -1 }},
		{"density too high", func(c *Config) { c.Scanner.YDensity = 1000 }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"unknown symbology", func(c *Config) { c.Symbologies["ean99"] = map[string]int{"enable": 1} }},
		{"unknown option", func(c *Config) { c.Symbologies["qr"] = map[string]int{"wobble": 1} }},
		{"inapplicable option", func(c *Config) { c.Symbologies["qr"] = map[string]int{"min-length": 3} }},
		{"bad setting", func(c *Config) { c.Settings = []string{"ean13.enable=yes"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestApplyTo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scanner.XDensity = 0
	cfg.Scanner.YDensity = 2
	cfg.Symbologies = map[string]map[string]int{
		"code39": {"min-length": 4, "max-length": 20},
		"isbn13": {"enable": 1},
	}
	cfg.Settings = []string{"disable", "ean13.enable", "isbn13.enable", "code39.enable"}

	s := imagescanner.New()
	require.NoError(t, cfg.ApplyTo(s))
	got := s.Config()

	assert.Equal(t, 0, got.XDensity)
	assert.Equal(t, 2, got.YDensity)
	assert.Equal(t, 4, got.Settings(symbol.Code39).MinLength)
	assert.Equal(t, 20, got.Settings(symbol.Code39).MaxLength)
	assert.True(t, got.Enabled(symbol.EAN13))
	assert.True(t, got.Enabled(symbol.ISBN13))
	assert.True(t, got.Enabled(symbol.Code39))
	assert.False(t, got.Enabled(symbol.QRCode))
	assert.False(t, got.Enabled(symbol.Code128))
}

func TestApplyTo_ConfigErrorSurfaces(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings = []string{"code128.ascii=1"}
	err := cfg.ApplyTo(imagescanner.New())
	var ce *decoder.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, decoder.ErrInvalidConfig)
}

func TestNewScanner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings = []string{"qrcode.disable"}
	s, err := cfg.NewScanner()
	require.NoError(t, err)
	assert.False(t, s.Config().Enabled(symbol.QRCode))
	assert.False(t, s.CacheEnabled())
}
