// Package cmdutil holds the plumbing shared by dittoshare commands: global
// flags, configuration loading and the share session lifecycle.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/marmos91/dittoshare/internal/cli/output"
	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/pkg/config"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/share"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the persistent flags of the root command.
type GlobalFlags struct {
	ConfigFile string
	Root       string
	Output     string
	NoColor    bool
	Verbose    bool
}

// Exit codes.
const (
	ExitOK          = 0
	ExitUserError   = 1
	ExitSystemError = 2
)

// ExitCode maps a command error to the process exit status. Failures of
// the storage layers get their own code so scripts can tell them apart
// from bad input.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case share.IsSystemError(err), errors.Is(err, share.ErrClosed):
		return ExitSystemError
	default:
		return ExitUserError
	}
}

// LoadConfig loads the configuration selected by --config and applies the
// --root and --verbose overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if Flags.Root != "" {
		cfg.Share.Root = Flags.Root
	}
	if Flags.Verbose {
		cfg.Logging.Level = "DEBUG"
	}
	return cfg, nil
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// NewPrinter returns a printer for w honoring --output and --no-color.
func NewPrinter(w io.Writer) (*output.Printer, error) {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !Flags.NoColor && isTerminal(w)), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SharePath turns a command-line argument into an absolute share path.
// Relative arguments are taken from the share root.
func SharePath(arg string) string {
	if arg == "" {
		return "/"
	}
	if !strings.HasPrefix(arg, "/") {
		return "/" + arg
	}
	return arg
}

// ShareExists reports whether root holds a share.
func ShareExists(root string) bool {
	_, err := os.Stat(share.AppDir(root))
	return !errors.Is(err, iofs.ErrNotExist)
}

// SessionOptions controls OpenSession.
type SessionOptions struct {
	// Version is reported to the tracing backend.
	Version string

	// Create allows a missing share to be created under Name, which
	// overrides share.name from the configuration.
	Create bool
	Name   string
}

// Session is an open share plus the process-level services started for it.
type Session struct {
	Config  *config.Config
	Share   *share.Core
	Printer *output.Printer

	shutdownTelemetry func(context.Context) error
}

// OpenSession loads configuration, starts logging, tracing and metrics,
// and opens the share. Without opts.Create a missing share is an error.
func OpenSession(ctx context.Context, w io.Writer, opts SessionOptions) (_ *Session, err error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	printer, err := NewPrinter(w)
	if err != nil {
		return nil, err
	}

	shareOpts, err := config.ShareOptions(cfg, nil)
	if err != nil {
		return nil, err
	}
	if opts.Create {
		if opts.Name != "" {
			shareOpts.Name = opts.Name
		}
	} else {
		if !ShareExists(shareOpts.Root) {
			return nil, fmt.Errorf("no share at %s (create one with 'dittoshare init NAME')", shareOpts.Root)
		}
		shareOpts.Name = ""
	}

	shutdown, err := config.InitializeTelemetry(ctx, cfg, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = shutdown(context.Background())
		}
	}()

	shareOpts.Metrics = config.InitializeMetrics(cfg)

	core, err := share.Open(ctx, shareOpts)
	if err != nil {
		return nil, err
	}

	return &Session{
		Config:            cfg,
		Share:             core,
		Printer:           printer,
		shutdownTelemetry: shutdown,
	}, nil
}

// Close closes the share, writes the metrics textfile and flushes traces.
func (s *Session) Close(ctx context.Context) error {
	errs := []error{s.Share.Close()}
	if err := config.FlushMetrics(s.Config); err != nil {
		errs = append(errs, err)
	}
	if err := s.shutdownTelemetry(ctx); err != nil {
		logger.Warn("Telemetry shutdown failed", logger.Err(err))
	}
	return errors.Join(errs...)
}

// Run opens a session, calls fn and closes the session. fn's error wins
// over a close error.
func Run(ctx context.Context, w io.Writer, opts SessionOptions, fn func(context.Context, *Session) error) (err error) {
	s, err := OpenSession(ctx, w, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, s)
}

// Lookup resolves path to an entry or reports that it does not exist.
func (s *Session) Lookup(ctx context.Context, path string) (*metadata.FileEntry, error) {
	e, ok, err := s.Share.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: no such file or directory", path)
	}
	return e, nil
}

// PrintEntry prints a single entry: key/value lines for tables, the
// encoded object otherwise.
func (s *Session) PrintEntry(e *metadata.FileEntry) error {
	view := output.NewEntry(e)
	if s.Printer.Format() == output.FormatTable {
		return output.PrintKeyValues(s.Printer.Writer(), view.KeyValues())
	}
	return s.Printer.Print(view)
}
