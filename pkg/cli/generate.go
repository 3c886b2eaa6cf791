package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand(cfg *config) *cli.Command {
	return generateCommand(cfg, model.FunctionQuestionAnswering, "ask", []string{"qa"})
}

func summarizeCommand(cfg *config) *cli.Command {
	return generateCommand(cfg, model.FunctionTextSummarization, "summarize", []string{"sum"})
}

func createCommand(cfg *config) *cli.Command {
	return generateCommand(cfg, model.FunctionCreativeGeneration, "create", []string{"gen"})
}

// generateCommand builds the one-shot command of a text function. The text is
// taken from the arguments, or from stdin when there are none.
func generateCommand(cfg *config, fn model.FunctionType, name string, aliases []string) *cli.Command {
	spec, err := fn.Spec()
	if err != nil {
		panic(err)
	}

	var (
		style      string
		rating     int64
		suggestion string
		raw        bool
	)

	styleIDs := make([]string, 0, len(spec.Styles))
	for _, s := range spec.Styles {
		styleIDs = append(styleIDs, string(s.ID))
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "style",
			Aliases:     []string{"y"},
			Usage:       "Response style (" + strings.Join(styleIDs, ", ") + ")",
			Value:       styleIDs[0],
			Destination: &style,
		},
		&cli.IntFlag{
			Name:        "rate",
			Aliases:     []string{"r"},
			Usage:       "Rate the response (1-5) right away",
			Destination: &rating,
		},
		&cli.StringFlag{
			Name:        "suggestion",
			Usage:       "Improvement suggestion sent with --rate",
			Destination: &suggestion,
		},
		&cli.BoolFlag{
			Name:        "raw",
			Usage:       "Print the response without Markdown rendering",
			Destination: &raw,
		},
	}

	return &cli.Command{
		Name:      name,
		Aliases:   aliases,
		Usage:     spec.Description,
		ArgsUsage: "[text...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			text := strings.Join(c.Args().Slice(), " ")
			if text == "" {
				data, err := io.ReadAll(c.Root().Reader)
				if err != nil {
					return goerr.Wrap(err, "failed to read text from stdin")
				}
				text = string(data)
			}

			app, cleanup, err := cfg.newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Select(model.ViewState(fn)); err != nil {
				return err
			}
			p := app.Panel()
			p.Style = model.Style(style)
			p.Input = strings.TrimSpace(text)

			out, err := app.Submit(ctx)
			if err != nil {
				if errors.Is(err, model.ErrValidation) {
					return goerr.New(p.Err, goerr.V("style", style))
				}
				return err
			}
			if out.Record == nil {
				return goerr.New(out.Message, goerr.V("function", fn))
			}

			w := c.Root().Writer
			if raw || !isTTY(w) {
				fmt.Fprintln(w, p.Response)
			} else {
				fmt.Fprintln(w, render.Markdown(p.Response, terminalWidth(w)))
			}

			if rating != 0 {
				if err := app.SubmitFeedback(ctx, int(rating), suggestion); err != nil {
					if slot := p.Feedback(); slot != nil && slot.Err != "" {
						return goerr.New(slot.Err)
					}
					return err
				}
				fmt.Fprintf(c.Root().ErrWriter, "Thank you for your feedback! (Rating: %d/5)\n", rating)
			}
			return nil
		},
	}
}
