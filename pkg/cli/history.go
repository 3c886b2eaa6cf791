package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func historyCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Review the session history",
		Commands: []*cli.Command{
			historyListCommand(cfg),
			historyShowCommand(cfg),
			historyClearCommand(cfg),
			historyRemoteCommand(cfg),
		},
	}
}

// openHistory opens the session history of cfg. The returned function closes
// the underlying storage.
func openHistory(ctx context.Context, cfg *config) (*history.Store, func(), error) {
	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	return history.Open(ctx, storage), func() { storage.Close() }, nil
}

func historyListCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List interactions of this session",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			store, closeFn, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Fprintln(c.Root().Writer, render.HistoryList(store.Interactions.List()))
			return nil
		},
	}
}

func historyShowCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one interaction in full",
		ArgsUsage: "<number>",
		Action: func(ctx context.Context, c *cli.Command) error {
			n, err := strconv.Atoi(c.Args().First())
			if err != nil {
				return goerr.New("entry number is required", goerr.V("arg", c.Args().First()))
			}

			ctx, err = cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			store, closeFn, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, ok := store.Interactions.At(n)
			if !ok {
				return goerr.New("no such history entry", goerr.V("number", n), goerr.V("count", store.Interactions.Len()))
			}
			fmt.Fprint(c.Root().Writer, render.HistoryDetail(n, rec))
			return nil
		},
	}
}

func historyClearCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete the history of this session",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			store, closeFn, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			count := store.Interactions.Len()
			if res := store.Clear(ctx); !res.OK() {
				return res.Err
			}
			fmt.Fprintf(c.Root().Writer, "Cleared %d interactions\n", count)
			return nil
		},
	}
}

func historyRemoteCommand(cfg *config) *cli.Command {
	var (
		page     int64
		pageSize int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "page",
			Usage:       "Page number",
			Value:       1,
			Destination: &page,
		},
		&cli.IntFlag{
			Name:        "page-size",
			Usage:       "Entries per page",
			Value:       20,
			Destination: &pageSize,
		},
	}

	return &cli.Command{
		Name:  "remote",
		Usage: "List queries recorded by the backend",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			client, err := cfg.newAssistant()
			if err != nil {
				return err
			}

			result, err := client.RemoteHistory(ctx, int(page), int(pageSize))
			if err != nil {
				return goerr.New(adapter.UserMessage(err))
			}

			w := c.Root().Writer
			for _, e := range result.Results {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.CreatedAt,
					model.FormatFunctionName(string(e.FunctionType)),
					e.Style,
					render.Clip(e.Query, 60),
				)
			}
			fmt.Fprintf(w, "page %d, %d of %d total\n", result.Page, len(result.Results), result.TotalCount)
			return nil
		},
	}
}
