package cli

import (
	"context"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	return run(ctx, argv, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) *Error {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	cfg := &config{}
	cmd := &cli.Command{
		Name:      appName,
		Usage:     "Terminal client for the AI assistant API",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     allFlags(cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			return runInteractive(ctx, c, cfg, modeAuto)
		},
		Commands: []*cli.Command{
			askCommand(cfg),
			summarizeCommand(cfg),
			createCommand(cfg),
			feedbackCommand(cfg),
			statsCommand(cfg),
			historyCommand(cfg),
			healthCommand(cfg),
			stylesCommand(cfg),
			tuiCommand(cfg),
			consoleCommand(cfg),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
