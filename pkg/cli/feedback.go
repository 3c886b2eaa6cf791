package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// feedbackCommand rates an entry of the session history, the latest one by
// default.
func feedbackCommand(cfg *config) *cli.Command {
	var (
		record     int64
		suggestion string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "record",
			Aliases:     []string{"n"},
			Usage:       "History entry number to rate (default: latest)",
			Destination: &record,
		},
		&cli.StringFlag{
			Name:        "suggestion",
			Usage:       "Improvement suggestion",
			Destination: &suggestion,
		},
	}

	return &cli.Command{
		Name:      "feedback",
		Usage:     "Rate a response from the session history",
		ArgsUsage: "<rating 1-5>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.New("rating is required", goerr.V("args", c.Args().Slice()))
			}
			rating, err := strconv.Atoi(c.Args().First())
			if err != nil {
				return goerr.Wrap(model.ErrInvalidRating, "rating must be a number", goerr.V("rating", c.Args().First()))
			}

			ctx, err = cfg.setup(ctx, c, c.Root().ErrWriter)
			if err != nil {
				return err
			}
			defer cfg.close()

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}
			defer storage.Close()

			log := history.Load[model.InteractionRecord](ctx, storage, history.KeySession)
			n := int(record)
			if n == 0 {
				n = log.Len()
			}
			rec, ok := log.At(n)
			if !ok {
				return goerr.New("no such history entry", goerr.V("record", n), goerr.V("count", log.Len()))
			}

			fn, err := model.ParseFunctionType(rec.Function)
			if err != nil {
				return err
			}
			sub := &model.FeedbackSubmission{
				FunctionType: fn,
				Query:        rec.Query,
				Response:     rec.Response,
				Rating:       rating,
				Suggestions:  suggestion,
			}
			if err := sub.Validate(); err != nil {
				return err
			}

			client, err := cfg.newAssistant()
			if err != nil {
				return err
			}
			if err := client.SubmitFeedback(ctx, sub); err != nil {
				return goerr.New(adapter.UserMessage(err))
			}

			fmt.Fprintf(c.Root().Writer, "Thank you for your feedback! (Rating: %d/5)\n", rating)
			return nil
		},
	}
}

func statsCommand(cfg *config) *cli.Command {
	var (
		asJSON bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print statistics as JSON",
			Destination: &asJSON,
		},
	}

	return &cli.Command{
		Name:    "stats",
		Aliases: []string{"analytics"},
		Usage:   "Show feedback analytics",
		Flags:   flags,
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

			stats, err := client.FeedbackStats(ctx)
			if err != nil {
				return goerr.New(adapter.UserMessage(err))
			}

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(stats); err != nil {
					return goerr.Wrap(err, "failed to encode stats")
				}
				return nil
			}
			fmt.Fprintln(w, render.Stats(stats))
			return nil
		},
	}
}
