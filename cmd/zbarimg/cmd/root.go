// Package cmd implements the zbarimg command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/MeKo-Tech/zbargo/internal/config"
	"github.com/MeKo-Tech/zbargo/internal/imagescanner"
	"github.com/MeKo-Tech/zbargo/internal/version"
)

// Exit codes, as zbarimg reports them.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitUsage     = 2
	ExitNoSymbols = 4
)

// ErrNoSymbols is returned by scanning commands when nothing was decoded.
var ErrNoSymbols = errors.New("no barcode symbols found")

// flagBinding ties a command flag to a configuration key.
type flagBinding struct {
	key  string
	flag string
}

// app is the state shared by one command tree: its configuration loader and
// the flag bindings of each subcommand. Bindings are applied only for the
// command that runs, so subcommands may share configuration keys.
type app struct {
	loader   *config.Loader
	cfgFile  string
	cfg      *config.Config
	bindings map[*cobra.Command][]flagBinding
}

func (a *app) bind(cmd *cobra.Command, bindings ...flagBinding) {
	a.bindings[cmd] = append(a.bindings[cmd], bindings...)
}

// NewRootCommand builds the zbarimg command tree with its own configuration state.
func NewRootCommand() *cobra.Command {
	a := &app{
		loader:   config.NewIsolatedLoader(),
		bindings: map[*cobra.Command][]flagBinding{},
	}

	root := &cobra.Command{
		Use:   "zbarimg",
		Short: "Scan images for barcodes",
		Long: `zbarimg scans images, frame sequences and PDF documents for barcodes and
prints the decoded data.

Supported symbologies: EAN-13, EAN-8, UPC-A, UPC-E, ISBN-10, ISBN-13, Code 39,
Code 128, Interleaved 2 of 5, QR Code and PDF417.

Examples:
  zbarimg image label.png
  zbarimg image -S disable -S qrcode.enable ticket.jpg
  zbarimg batch scans/ --recursive --format json
  zbarimg video frames/ --fresh-only
  zbarimg serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/zbarimg, /etc/zbarimg)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	a.bind(root,
		flagBinding{"verbose", "verbose"},
		flagBinding{"log_level", "log-level"},
	)

	root.AddCommand(
		newImageCommand(a),
		newBatchCommand(a),
		newVideoCommand(a),
		newPDFCommand(a),
		newConvertCommand(a),
		newServeCommand(a),
		newBenchCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// setup binds the running command's flags, loads the configuration and
// installs the structured logger.
func (a *app) setup(cmd *cobra.Command) error {
	v := a.loader.GetViper()
	for _, c := range []*cobra.Command{cmd.Root(), cmd} {
		for _, b := range a.bindings[c] {
			f := c.Flags().Lookup(b.flag)
			if f == nil {
				f = c.PersistentFlags().Lookup(b.flag)
			}
			if f == nil {
				return fmt.Errorf("unknown flag binding %q", b.flag)
			}
			if err := v.BindPFlag(b.key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", b.flag, err)
			}
		}
	}

	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := parseLogLevel(cfg.LogLevel)
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	// Results go to stdout, so logs use stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	slog.Debug("configuration loaded", "file", a.loader.GetConfigFileUsed(), "flags", changedFlags(cmd))
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// addScannerFlags registers the symbology configuration flags.
func (a *app) addScannerFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("set", "S", nil,
		"decoder setting [symbology.]option[=value], e.g. -S disable -S ean13.enable (repeatable)")
	cmd.Flags().StringSlice("symbology", nil, "only decode these symbologies (comma-separated)")
	cmd.Flags().Int("x-density", 1, "scan every n-th column (0 disables vertical scans)")
	cmd.Flags().Int("y-density", 1, "scan every n-th row (0 disables horizontal scans)")
	a.bind(cmd,
		flagBinding{"settings", "set"},
		flagBinding{"scanner.x_density", "x-density"},
		flagBinding{"scanner.y_density", "y-density"},
	)
}

// newScanner builds a scanner from the loaded configuration plus --symbology.
func (a *app) newScanner(cmd *cobra.Command) (*imagescanner.Scanner, error) {
	cfg := *a.cfg
	if f := cmd.Flags().Lookup("symbology"); f != nil && f.Changed {
		only, _ := cmd.Flags().GetStringSlice("symbology")
		settings := []string{"disable"}
		for _, s := range only {
			settings = append(settings, strings.TrimSpace(s)+".enable")
		}
		cfg.Settings = append(append([]string{}, cfg.Settings...), settings...)
	}
	return cfg.NewScanner()
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrNoSymbols) {
		return ExitNoSymbols
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	if isUsageError(err) {
		return ExitUsage
	}
	return ExitError
}

// usageError marks argument and flag mistakes.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func isUsageError(err error) bool {
	var u usageError
	return errors.As(err, &u) || strings.HasPrefix(err.Error(), "unknown command")
}

// minArgs is cobra.MinimumNArgs reporting a usage error.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// changedFlags lists the flags set on the command line; used in debug logs.
func changedFlags(cmd *cobra.Command) []string {
	var names []string
	cmd.Flags().Visit(func(f *pflag.Flag) { names = append(names, f.Name) })
	return names
}
