package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func healthCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the backend is reachable",
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

			status, err := client.Health(ctx)
			if err != nil {
				return goerr.New(adapter.UserMessage(err), goerr.V("base_url", cfg.baseURL))
			}
			fmt.Fprintf(c.Root().Writer, "%s: %s (version %s)\n", status.Status, status.Message, status.Version)
			return nil
		},
	}
}

// stylesCommand lists the styles of one or all functions. The backend is
// asked first; the built-in catalogue is used when it does not answer.
func stylesCommand(cfg *config) *cli.Command {
	return &cli.Command{
		Name:      "styles",
		Usage:     "List response styles",
		ArgsUsage: "[function]",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			var targets []model.FunctionSpec
			if arg := c.Args().First(); arg != "" {
				fn, err := model.ParseFunctionType(arg)
				if err != nil {
					return err
				}
				spec, err := fn.Spec()
				if err != nil {
					return err
				}
				targets = append(targets, spec)
			} else {
				targets = model.Functions()
			}

			client, err := cfg.newAssistant()
			if err != nil {
				return err
			}

			w := c.Root().Writer
			for _, spec := range targets {
				styles, err := client.Styles(ctx, spec.Type)
				if err != nil {
					logging.From(ctx).Warn("using built-in styles", "function", spec.Type, "error", err)
					styles = spec.Styles
				}

				fmt.Fprintf(w, "%s (%s)\n", spec.Label, spec.Type)
				for _, s := range styles {
					fmt.Fprintf(w, "  %-15s %s - %s\n", s.ID, s.Name, s.Description)
				}
			}
			return nil
		},
	}
}
