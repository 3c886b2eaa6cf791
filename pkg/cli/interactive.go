package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/aiassist/pkg/ui/console"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/aiassist/pkg/ui/tui"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

type interactiveMode int

const (
	modeAuto interactiveMode = iota
	modeTUI
	modeConsole
)

func tuiCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Start the full-screen interface",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runInteractive(ctx, c, cfg, modeTUI)
		},
	}
}

func consoleCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:  "console",
		Usage: "Start the menu driven line interface",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runInteractive(ctx, c, cfg, modeConsole)
		},
	}
}

// isTTY reports whether v is a file attached to a terminal.
func isTTY(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func isTerminal(r io.Reader, w io.Writer) bool {
	return isTTY(r) && isTTY(w)
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return render.DefaultWidth
}

func runInteractive(ctx context.Context, c *cli.Command, cfg *config, mode interactiveMode) error {
	stdin, stdout := c.Root().Reader, c.Root().Writer
	tty := isTerminal(stdin, stdout)
	if mode == modeAuto {
		mode = modeConsole
		if tty {
			mode = modeTUI
		}
	}
	if mode == modeTUI && !tty {
		return goerr.New("the full-screen interface needs a terminal; use the console command instead")
	}

	// logs would corrupt the full-screen UI
	logOut := c.Root().ErrWriter
	if mode == modeTUI {
		logOut = nil
	}
	ctx, err := cfg.setup(ctx, c, logOut)
	if err != nil {
		return err
	}
	defer cfg.close()

	app, cleanup, err := cfg.newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if mode == modeTUI {
		return tui.Run(ctx, app)
	}

	var (
		reader console.LineReader
		opts   = []console.Option{console.WithWidth(terminalWidth(stdout))}
	)
	if tty {
		rl, err := console.NewReadline(filepath.Join(cfg.storageDir, "console_history"), stdout)
		if err != nil {
			return err
		}
		defer rl.Close()
		reader = rl
		opts = append(opts, console.WithIndicator(console.NewSpinner(stdout)))
	} else {
		reader = console.NewScanner(stdin, stdout)
		opts = append(opts, console.WithMarkdown(false))
	}

	return console.New(app, reader, stdout, opts...).Run(ctx)
}
