package decoder

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

// ErrInvalidConfig is returned when an option is unknown, does not apply to the
// symbology, or its value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Option is a configurable decoder setting.
type Option int

const (
	OptEnable Option = iota
	// OptAddCheck verifies the optional check character (Code39, I25) and
	// enables add-on decoding for the EAN/UPC family.
	OptAddCheck
	OptEmitCheck
	OptASCII
	OptMinLength
	OptMaxLength
	OptUncertainty
	OptPosition
	OptXDensity
	OptYDensity
)

var optionNames = map[Option]string{
	OptEnable:      "enable",
	OptAddCheck:    "add-check",
	OptEmitCheck:   "emit-check",
	OptASCII:       "ascii",
	OptMinLength:   "min-length",
	OptMaxLength:   "max-length",
	OptUncertainty: "uncertainty",
	OptPosition:    "position",
	OptXDensity:    "x-density",
	OptYDensity:    "y-density",
}

var optionAliases = map[string]Option{
	"addoncheck": OptAddCheck, "addcheck": OptAddCheck,
	"emitcheck": OptEmitCheck,
	"minlen":    OptMinLength, "minimumlength": OptMinLength, "minlength": OptMinLength,
	"maxlen": OptMaxLength, "maximumlength": OptMaxLength, "maxlength": OptMaxLength,
	"xdensity": OptXDensity, "ydensity": OptYDensity,
	"enable": OptEnable, "ascii": OptASCII, "uncertainty": OptUncertainty, "position": OptPosition,
}

func (o Option) String() string {
	if n, ok := optionNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// ParseOption resolves option names such as "min-length", "MinimumLength" or "AddOnCheck".
func ParseOption(name string) (Option, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	if o, ok := optionAliases[key]; ok {
		return o, nil
	}
	return 0, &ConfigError{Option: -1, Reason: fmt.Sprintf("unknown option %q", name)}
}

const (
	maxLengthLimit   = 256
	maxUncertainty   = 32
	maxDensity       = 100
	defaultI25MinLen = 6
)

// ConfigError describes a rejected configuration change.
type ConfigError struct {
	Symbology symbol.Base
	Option    Option
	Value     int
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Option < 0 {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s.%s=%d: %s", e.Symbology, e.Option, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Settings are the options of one symbology.
type Settings struct {
	Enabled     bool
	AddCheck    bool
	EmitCheck   bool
	ASCII       bool
	MinLength   int
	MaxLength   int // 0 means unlimited
	Uncertainty int
	Position    bool
}

// LengthOK reports whether n data characters satisfy the length limits.
func (s Settings) LengthOK(n int) bool {
	if n < s.MinLength {
		return false
	}
	return s.MaxLength == 0 || n <= s.MaxLength
}

// applies lists the options each symbology accepts.
var applies = map[symbol.Base]map[Option]bool{}

func init() {
	common := []Option{OptEnable, OptUncertainty, OptPosition}
	for _, b := range symbol.Bases {
		applies[b] = map[Option]bool{}
		for _, o := range common {
			applies[b][o] = true
		}
	}
	for _, b := range []symbol.Base{symbol.EAN8, symbol.UPCE, symbol.ISBN10, symbol.UPCA, symbol.EAN13, symbol.ISBN13} {
		applies[b][OptAddCheck] = true
		applies[b][OptEmitCheck] = true
	}
	for _, b := range []symbol.Base{symbol.Code39, symbol.I25} {
		applies[b][OptAddCheck] = true
		applies[b][OptEmitCheck] = true
	}
	for _, b := range []symbol.Base{symbol.Code39, symbol.Code128, symbol.I25} {
		applies[b][OptMinLength] = true
		applies[b][OptMaxLength] = true
	}
	for _, b := range []symbol.Base{symbol.Code39, symbol.QRCode, symbol.PDF417} {
		applies[b][OptASCII] = true
	}
}

// Config holds the per-symbology settings and the scan-line densities.
// A Config is not safe for concurrent mutation; the image scanner guards it.
type Config struct {
	sym      map[symbol.Base]Settings
	XDensity int
	YDensity int
}

// DefaultConfig enables every symbology except the ISBN reinterpretations.
func DefaultConfig() *Config {
	c := &Config{sym: make(map[symbol.Base]Settings, len(symbol.Bases)), XDensity: 1, YDensity: 1}
	for _, b := range symbol.Bases {
		s := Settings{Enabled: true, Position: true, Uncertainty: 1}
		switch {
		case b.IsEAN():
			s.EmitCheck = true
			s.AddCheck = true
		case b.Is2D():
			s.Uncertainty = 0
			s.ASCII = true
		}
		switch b {
		case symbol.ISBN10, symbol.ISBN13:
			s.Enabled = false
		case symbol.I25:
			s.MinLength = defaultI25MinLen
		case symbol.Code39:
			s.MinLength = 1
			s.Uncertainty = 0
		case symbol.Code128:
			s.Uncertainty = 0
		}
		c.sym[b] = s
	}
	return c
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	return &Config{sym: maps.Clone(c.sym), XDensity: c.XDensity, YDensity: c.YDensity}
}

// Settings returns the settings of b.
func (c *Config) Settings(b symbol.Base) Settings { return c.sym[b] }

// Enabled reports whether b is decoded.
func (c *Config) Enabled(b symbol.Base) bool { return c.sym[b].Enabled }

// AnyEnabled reports whether at least one of bs is decoded.
func (c *Config) AnyEnabled(bs ...symbol.Base) bool {
	for _, b := range bs {
		if c.sym[b].Enabled {
			return true
		}
	}
	return false
}

// Set changes one option. Base symbol.None applies the option to every symbology
// that supports it. On error the configuration is left unchanged.
func (c *Config) Set(b symbol.Base, opt Option, val int) error {
	fail := func(reason string) error {
		return &ConfigError{Symbology: b, Option: opt, Value: val, Reason: reason}
	}
	if _, ok := optionNames[opt]; !ok {
		return fail("unknown option")
	}

	if opt == OptXDensity || opt == OptYDensity {
		if b != symbol.None {
			return fail("density is a scanner-wide option")
		}
		if val < 0 || val > maxDensity {
			return fail(fmt.Sprintf("value out of range 0..%d", maxDensity))
		}
		if opt == OptXDensity {
			c.XDensity = val
		} else {
			c.YDensity = val
		}
		return nil
	}

	var targets []symbol.Base
	if b == symbol.None {
		for _, s := range symbol.Bases {
			if applies[s][opt] {
				targets = append(targets, s)
			}
		}
	} else {
		ap, known := applies[b]
		if !known {
			return fail("unknown symbology")
		}
		if !ap[opt] {
			return fail("option does not apply to symbology")
		}
		targets = []symbol.Base{b}
	}

	updated := make(map[symbol.Base]Settings, len(targets))
	for _, t := range targets {
		s := c.sym[t]
		switch opt {
		case OptEnable, OptAddCheck, OptEmitCheck, OptASCII, OptPosition:
			if val != 0 && val != 1 {
				return fail("boolean option takes 0 or 1")
			}
			on := val == 1
			switch opt {
			case OptEnable:
				s.Enabled = on
			case OptAddCheck:
				s.AddCheck = on
			case OptEmitCheck:
				s.EmitCheck = on
			case OptASCII:
				s.ASCII = on
			case OptPosition:
				s.Position = on
			}
		case OptMinLength:
			if val < 0 || val > maxLengthLimit {
				return fail(fmt.Sprintf("value out of range 0..%d", maxLengthLimit))
			}
			if s.MaxLength != 0 && val > s.MaxLength {
				return fail(fmt.Sprintf("minimum exceeds maximum length %d of %s", s.MaxLength, t))
			}
			s.MinLength = val
		case OptMaxLength:
			if val < 0 || val > maxLengthLimit {
				return fail(fmt.Sprintf("value out of range 0..%d", maxLengthLimit))
			}
			if val != 0 && val < s.MinLength {
				return fail(fmt.Sprintf("maximum below minimum length %d of %s", s.MinLength, t))
			}
			s.MaxLength = val
		case OptUncertainty:
			if val < 0 || val > maxUncertainty {
				return fail(fmt.Sprintf("value out of range 0..%d", maxUncertainty))
			}
			s.Uncertainty = val
		}
		updated[t] = s
	}
	maps.Copy(c.sym, updated)
	return nil
}

// Get returns the current value of an option.
func (c *Config) Get(b symbol.Base, opt Option) (int, error) {
	switch opt {
	case OptXDensity:
		return c.XDensity, nil
	case OptYDensity:
		return c.YDensity, nil
	}
	if !applies[b][opt] {
		return 0, &ConfigError{Symbology: b, Option: opt, Reason: "option does not apply to symbology"}
	}
	s := c.sym[b]
	b2i := func(v bool) int {
		if v {
			return 1
		}
		return 0
	}
	switch opt {
	case OptEnable:
		return b2i(s.Enabled), nil
	case OptAddCheck:
		return b2i(s.AddCheck), nil
	case OptEmitCheck:
		return b2i(s.EmitCheck), nil
	case OptASCII:
		return b2i(s.ASCII), nil
	case OptPosition:
		return b2i(s.Position), nil
	case OptMinLength:
		return s.MinLength, nil
	case OptMaxLength:
		return s.MaxLength, nil
	case OptUncertainty:
		return s.Uncertainty, nil
	}
	return 0, &ConfigError{Symbology: b, Option: opt, Reason: "unknown option"}
}

// ParseSetting parses a "[symbology.]option[=value]" string as accepted by zbarimg's --set.
// A missing value means 1; a missing symbology means every symbology.
func ParseSetting(s string) (symbol.Base, Option, int, error) {
	key, value, hasValue := strings.Cut(s, "=")
	val := 1
	if hasValue {
		if _, err := fmt.Sscanf(value, "%d", &val); err != nil {
			return 0, 0, 0, &ConfigError{Option: -1, Reason: fmt.Sprintf("bad value in %q", s)}
		}
	}
	base := symbol.None
	name := key
	if sym, opt, ok := strings.Cut(key, "."); ok {
		b, err := symbol.ParseBase(sym)
		if err != nil {
			return 0, 0, 0, &ConfigError{Option: -1, Reason: err.Error()}
		}
		base, name = b, opt
	}
	switch strings.ToLower(name) {
	case "disable":
		return base, OptEnable, 1 - val, nil
	}
	opt, err := ParseOption(name)
	if err != nil {
		return 0, 0, 0, err
	}
	return base, opt, val, nil
}
