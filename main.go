package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/reader"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := envFromContext(ctx)

	env.cfgFile = cmd.String("config")
	if env.cfgFile == "" {
		if path := config.DefaultPath(); path != "" {
			if _, err := os.Stat(path); err == nil {
				env.cfgFile = path
			}
		}
	}
	if env.cfg, err = config.LoadConfiguration(env.cfgFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}

	// a book to read rather than a subcommand
	first := cmd.Args().First()
	interactive := !slices.ContainsFunc(cmd.Commands, func(c *cli.Command) bool { return c.Name == first })
	if cmd.Bool("debug") {
		env.cfg.Logging.FileLogger.Level = "debug"
		env.cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if interactive && !consoleWhileReading {
		env.cfg.Logging.ConsoleLogger.Level = "none"
	}
	if env.log, err = env.cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.redirectStdLog()

	env.log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()), zap.String("hash", commit))

	if len(env.cfgFile) == 0 {
		env.log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	env.log.Debug("Program ended", zap.Duration("elapsed", env.uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	env.restoreStdLogs()
	return nil
}

// Errors from subcommands are regular errors, they are logged here and
// reported to stderr by main only when logging was not ready.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := envFromContext(ctx)
	if env.cfg != nil {
		env.log.Error("Program ended with error", zap.Error(err))
		errWasHandled = env.cfg.Logging.ConsoleLogger.Level != "none"
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            config.AppName,
		Usage:           "paginated reader for EPUB, FB2, PDF, Markdown and text books",
		Version:         version + " (" + runtime.Version() + ") : " + commit + " " + date,
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Action:          readBook,
		ArgsUsage:       "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug messages"},
		},
		Commands: []*cli.Command{
			{
				Name:         "blocks",
				Usage:        "Lists the content blocks a book is parsed into",
				OnUsageError: usageErrorHandler,
				Action:       listBlocks,
				ArgsUsage:    "FILE",
			},
			{
				Name:         "paginate",
				Usage:        "Prints page boundaries for a viewport",
				OnUsageError: usageErrorHandler,
				Action:       printPages,
				ArgsUsage:    "FILE",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "width", Value: 800, Usage: "viewport width in `PIXELS`"},
					&cli.FloatFlag{Name: "height", Value: 600, Usage: "viewport height in `PIXELS`"},
					&cli.FloatFlag{Name: "font-size", Usage: "font size in `PIXELS` (default: configured)"},
					&cli.IntFlag{Name: "columns", Usage: "`NUMBER` of columns per page (default: configured)"},
				},
			},
			{
				Name:         "formats",
				Usage:        "Lists supported book formats",
				OnUsageError: usageErrorHandler,
				Action:       listFormats,
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
		Description: fmt.Sprintf(`FILE is the book to read, supported formats: %s.
Files with unknown extension are read as plain text when they are valid UTF-8.`,
			strings.Join(reader.SupportedFormats(), ", ")),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
}

var errNoBook = errors.New("no book specified")

// bookArg returns the single FILE argument of cmd.
func bookArg(ctx context.Context, cmd *cli.Command) (string, error) {
	if cmd.NArg() == 0 {
		return "", fmt.Errorf("%w, try '%s --help'", errNoBook, config.AppName)
	}
	if cmd.NArg() > 1 {
		envFromContext(ctx).log.Warn("Malformed command line, too many files", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	return cmd.Args().First(), nil
}
