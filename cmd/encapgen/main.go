package main

import (
	"context"
	"io"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			println(err.Error())
		}
		os.Exit(1)
	}
}

// errReported means the failure was already printed as diagnostics.
var errReported = errors.Base("errors reported")

type globals struct {
	logLevel string
	color    string

	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// colorize reports whether output written to w should carry color.
func (g *globals) colorize() bool {
	switch g.color {
	case "always":
		return true
	case "never":
		return false
	default:
		return !color.NoColor && g.stderr == io.Writer(os.Stderr)
	}
}

func (g *globals) logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(g.logLevel)
	if err != nil {
		return zerolog.Nop(), errors.Errorf("invalid --log-level: %w", err)
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        g.stderr,
		NoColor:    !g.colorize(),
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Logger(), nil
}

func newRootCommand(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "encapgen",
		Short:         "Generate typed Go bitflag enums from .encap definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}
	if rootCmd.Version == "" {
		rootCmd.Version = "(devel)"
	}

	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.color, "color", "auto", "color output (auto, always, never)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := g.logger()
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(newGenerateCommand(g))
	rootCmd.AddCommand(newCheckCommand(g))
	rootCmd.AddCommand(newFmtCommand(g))
	rootCmd.AddCommand(newServeLSPCommand(g, rootCmd.Version))

	return rootCmd
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	g := &globals{
		fs:     afero.NewOsFs(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rootCmd := newRootCommand(g)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errReported) {
			return err
		}
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
