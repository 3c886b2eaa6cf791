package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/aiassist/pkg/usecase/assistant"
	"github.com/m-mizutani/goerr/v2"
)

const (
	exitChoice  = "6"
	endOfText   = "END"
	ruleWidth   = 60
	bannerWidth = 80
)

// errQuit ends the session when input is closed or interrupted.
var errQuit = errors.New("quit")

// Console is the menu driven line-mode front end.
type Console struct {
	app       *assistant.App
	in        LineReader
	out       io.Writer
	indicator Indicator
	width     int
	markdown  bool
}

type Option func(*Console)

func WithIndicator(ind Indicator) Option {
	return func(c *Console) {
		c.indicator = ind
	}
}

// WithWidth sets the wrap width of responses.
func WithWidth(width int) Option {
	return func(c *Console) {
		c.width = width
	}
}

// WithMarkdown toggles Markdown rendering of responses.
func WithMarkdown(enabled bool) Option {
	return func(c *Console) {
		c.markdown = enabled
	}
}

func New(app *assistant.App, in LineReader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		app:       app,
		in:        in,
		out:       out,
		indicator: nopIndicator{},
		width:     render.DefaultWidth,
		markdown:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) rule(ch string, n int) {
	c.println(strings.Repeat(ch, n))
}

func (c *Console) read(prompt string) (string, error) {
	c.in.SetPrompt(prompt)
	line, err := c.in.Readline()
	if err != nil {
		if errors.Is(err, io.EOF) || isInterrupt(err) {
			return "", errQuit
		}
		return "", goerr.Wrap(err, "failed to read input")
	}
	return line, nil
}

// Run shows the main menu until the user exits or input ends.
func (c *Console) Run(ctx context.Context) error {
	c.banner()

	for {
		c.menu()

		choice, err := c.read("Select function (1-6): ")
		if err != nil {
			return c.finish(err)
		}
		choice = strings.TrimSpace(choice)

		switch choice {
		case "1", "2", "3":
			items := c.app.MenuItems()
			n, _ := strconv.Atoi(choice)
			err = c.panel(ctx, items[n-1].View)
		case "4":
			err = c.analytics(ctx)
		case "5":
			err = c.history()
		case exitChoice:
			c.println("\nThank you for using AI Assistant!")
			c.println("Session history has been saved.")
			return nil
		default:
			c.println("Invalid choice. Please select 1-6.")
		}
		c.app.Back()
		if err != nil {
			return c.finish(err)
		}

		if _, err := c.read("\nPress Enter to continue..."); err != nil {
			return c.finish(err)
		}
	}
}

func (c *Console) finish(err error) error {
	if errors.Is(err, errQuit) {
		c.println("\nSession interrupted. Goodbye!")
		return nil
	}
	return err
}

func (c *Console) banner() {
	c.rule("=", bannerWidth)
	c.println("AI ASSISTANT")
	c.rule("=", bannerWidth)
}

func (c *Console) menu() {
	c.println("\nMAIN FUNCTIONS:")
	for i, item := range c.app.MenuItems() {
		c.printf("  %d. %-20s - %s\n", i+1, item.Title, item.Description)
	}
	c.printf("  %s. %-20s - %s\n", exitChoice, "Exit Assistant", "End session")
	c.rule("-", bannerWidth)
}

func (c *Console) panel(ctx context.Context, view model.ViewState) error {
	if err := c.app.Select(view); err != nil {
		return err
	}
	p := c.app.Panel()
	spec := p.Spec()

	c.printf("\n%s MODE\n", strings.ToUpper(spec.Label))
	c.rule("-", 40)

	style, err := c.chooseStyle(spec)
	if err != nil {
		return err
	}
	p.Style = style

	text, err := c.readText(spec)
	if err != nil {
		return err
	}
	p.Input = text

	t, err := c.app.Begin()
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			c.println(p.Err)
			return nil
		}
		return err
	}

	c.indicator.Start()
	res := c.app.Do(ctx, t)
	c.indicator.Stop()

	out, err := c.app.Complete(ctx, res)
	if err != nil {
		return err
	}
	if out.Record == nil {
		c.println("Error: " + out.Message)
		return nil
	}

	c.println("")
	c.rule("=", ruleWidth)
	c.println(strings.ToUpper(spec.ResponseTitle) + ":")
	c.rule("=", ruleWidth)
	c.println(c.format(p.Response))
	c.rule("=", ruleWidth)

	return c.collectFeedback(ctx)
}

func (c *Console) format(text string) string {
	if c.markdown {
		return render.Markdown(text, c.width)
	}
	return render.Wrap(text, c.width)
}

func (c *Console) chooseStyle(spec model.FunctionSpec) (model.Style, error) {
	c.println("\nSELECT RESPONSE STYLE:")
	for i, opt := range spec.Styles {
		c.printf("  %d. %s\n", i+1, opt.Name)
	}

	prompt := fmt.Sprintf("\nChoose style (1-%d): ", len(spec.Styles))
	for {
		line, err := c.read(prompt)
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil {
			if opt, ok := spec.StyleAt(n); ok {
				return opt.ID, nil
			}
		}
		c.println("Invalid choice. Please select 1, 2, or 3.")
	}
}

// readText reads the panel input. Summaries take several lines terminated
// by END.
func (c *Console) readText(spec model.FunctionSpec) (string, error) {
	if spec.Type != model.FunctionTextSummarization {
		return c.read("\n" + spec.InputPrompt + " ")
	}

	c.printf("\n%s:\n(Type '%s' on a new line when finished)\n", spec.InputPrompt, endOfText)
	var lines []string
	for {
		line, err := c.read("")
		if err != nil {
			return "", err
		}
		if strings.EqualFold(strings.TrimSpace(line), endOfText) {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (c *Console) readRating() (int, error) {
	for {
		line, err := c.read("Rate this response (1-5): ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			c.println("Please enter a valid number.")
			continue
		}
		if model.ValidateRating(n) != nil {
			c.println("Please enter a number between 1 and 5.")
			continue
		}
		return n, nil
	}
}

func (c *Console) collectFeedback(ctx context.Context) error {
	c.println("")
	c.rule("=", ruleWidth)
	c.println("FEEDBACK COLLECTION")
	c.rule("=", ruleWidth)

	rating, err := c.readRating()
	if err != nil {
		return err
	}
	suggestions, err := c.read("Any suggestions for improvement? (optional): ")
	if err != nil {
		return err
	}
	suggestions = strings.TrimSpace(suggestions)

	for {
		err := c.app.SubmitFeedback(ctx, rating, suggestions)
		if err == nil {
			c.printf("Thank you for your feedback! (Rating: %d/5)\n", rating)
			return nil
		}
		if errors.Is(err, model.ErrFeedbackSubmitted) {
			return nil
		}

		c.println("Error: " + c.app.Panel().Feedback().Err)
		answer, err := c.read("Retry? (y/N): ")
		if err != nil {
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return nil
		}
	}
}

func (c *Console) analytics(ctx context.Context) error {
	if err := c.app.Select(model.ViewFeedbackAnalytics); err != nil {
		return err
	}

	c.println("\nFEEDBACK ANALYTICS")
	c.rule("=", ruleWidth)

	c.indicator.Start()
	an, err := c.app.RefreshStats(ctx)
	c.indicator.Stop()
	if err != nil {
		return err
	}

	if an.State == assistant.AnalyticsFailed {
		c.println("Error: " + an.Err)
		return nil
	}
	c.println(render.Stats(an.Stats))
	c.rule("=", ruleWidth)
	return nil
}

func (c *Console) history() error {
	if err := c.app.Select(model.ViewSessionHistory); err != nil {
		return err
	}

	c.println("\nSESSION HISTORY")
	c.rule("=", ruleWidth)
	c.println(render.HistoryList(c.app.History().Interactions.List()))
	return nil
}
