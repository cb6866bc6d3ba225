package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/PLUS-POSTECH/soma"
)

// Deps is shared by every subcommand. Env is opened before a subcommand runs
// and closed by Run once it returns.
type Deps struct {
	DataDir  string
	LogLevel string

	Stdout io.Writer
	Stderr io.Writer

	// Options are passed to soma.Open.
	Options []soma.Option

	Env *soma.Environment
}

// NewRootCmd builds the soma command tree.
func NewRootCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "soma",
		Short:         "orchestrate CTF problem repositories and their containers",
		Version:       soma.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setLogger(deps.Stderr, slog.LevelInfo)

			opts := append([]soma.Option{soma.WithOutput(deps.Stdout)}, deps.Options...)
			env, err := soma.Open(cmd.Context(), deps.DataDir, opts...)
			if err != nil {
				return err
			}
			deps.Env = env

			levelName := deps.LogLevel
			if levelName == "" {
				levelName = env.Config().LogLevel
			}
			level, err := soma.ParseLogLevel(levelName)
			if err != nil {
				return err
			}
			setLogger(deps.Stderr, level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&deps.DataDir, "data-dir", deps.DataDir, "data directory (default $SOMA_DATA_DIR or ~/.soma)")
	cmd.PersistentFlags().StringVar(&deps.LogLevel, "log-level", "", "minimum log level: debug, info, warn or error")

	cmd.AddCommand(
		NewAddCmd(deps),
		NewBuildCmd(deps),
		NewCleanCmd(deps),
		NewFetchCmd(deps),
		NewListCmd(deps),
		NewRemoveCmd(deps),
		NewRunCmd(deps),
		NewStopCmd(deps),
		NewUpdateCmd(deps),
	)
	return cmd
}

func setLogger(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, opts ...soma.Option) int {
	deps := &Deps{
		DataDir: soma.Home(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Options: opts,
	}
	return execute(ctx, deps, args)
}

func execute(ctx context.Context, deps *Deps, args []string) int {
	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	err := cmd.ExecuteContext(ctx)
	if deps.Env != nil {
		err = errors.Join(err, deps.Env.Close())
	}
	if err != nil {
		fmt.Fprintln(deps.Stderr, color.RedString("error: %v", err))
		return 1
	}
	return 0
}
