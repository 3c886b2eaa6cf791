package console_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/adapter/apitest"
	"github.com/m-mizutani/aiassist/pkg/repository"
	"github.com/m-mizutani/aiassist/pkg/ui/console"
	"github.com/m-mizutani/aiassist/pkg/usecase/assistant"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// scriptReader replays lines and then reports EOF
type scriptReader struct {
	lines   []string
	prompts []string
}

func (r *scriptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) SetPrompt(prompt string) {
	r.prompts = append(r.prompts, prompt)
}

// failingReader returns err on the first read
type failingReader struct {
	err error
}

func (r *failingReader) Readline() (string, error) { return "", r.err }
func (r *failingReader) SetPrompt(string)          {}

type countingIndicator struct {
	starts, stops int
}

func (c *countingIndicator) Start() { c.starts++ }
func (c *countingIndicator) Stop()  { c.stops++ }

func setupConsole(t *testing.T, lines ...string) (*console.Console, *bytes.Buffer, *apitest.Server, *assistant.App) {
	srv := apitest.New(t)
	client, err := adapter.NewAssistant(srv.URL)
	gt.NoError(t, err).Required()

	app, err := assistant.New(assistant.NewInput{
		Client: client,
		Store:  history.Open(context.Background(), repository.NewMemory()),
	})
	gt.NoError(t, err).Required()

	var out bytes.Buffer
	c := console.New(app, &scriptReader{lines: lines}, &out, console.WithMarkdown(false))
	return c, &out, srv, app
}

func TestConsoleQuestionAnswering(t *testing.T) {
	c, out, srv, app := setupConsole(t,
		"1",            // question answering
		"9",            // invalid style
		"1",            // factual
		"What is 2+2?", // question
		"abc",          // invalid rating
		"7",            // out of range
		"5",            // rating
		"great",        // suggestion
		"",             // press enter
		"6",            // exit
	)

	gt.NoError(t, c.Run(context.Background()))

	text := out.String()
	gt.S(t, text).Contains("QUESTION ANSWERING MODE")
	gt.S(t, text).Contains("Invalid choice. Please select 1, 2, or 3.")
	gt.S(t, text).Contains("AI RESPONSE:")
	gt.S(t, text).Contains("echo: What is 2+2?")
	gt.S(t, text).Contains("Please enter a valid number.")
	gt.S(t, text).Contains("Please enter a number between 1 and 5.")
	gt.S(t, text).Contains("Thank you for your feedback! (Rating: 5/5)")
	gt.S(t, text).Contains("Thank you for using AI Assistant!")

	gt.A(t, srv.Feedbacks()).Length(1)
	gt.V(t, srv.Feedbacks()[0].Suggestions).Equal("great")

	records := app.History().Interactions.List()
	gt.A(t, records).Length(1)
	gt.V(t, records[0].Function).Equal("Question Answering")
}

func TestConsoleSummarizationMultiLine(t *testing.T) {
	c, out, srv, app := setupConsole(t,
		"2", "2",
		"first line",
		"second line",
		"end",
		"3", "",
		"",
	)

	gt.NoError(t, c.Run(context.Background()))

	queries := srv.Queries()
	gt.A(t, queries).Length(1)
	gt.V(t, queries[0].Query).Equal("first line\nsecond line")
	gt.V(t, string(queries[0].Style)).Equal("bullet_points")
	gt.S(t, out.String()).Contains("SUMMARY:")
	gt.S(t, out.String()).Contains("Session interrupted. Goodbye!")
	gt.V(t, app.History().Interactions.Len()).Equal(1)
}

func TestConsoleValidationAndFailure(t *testing.T) {
	c, out, srv, _ := setupConsole(t,
		"3", "1", "   ", "",
		"1", "1", "hello", "",
		"6",
	)
	srv.Fail("query", apitest.Reply{Status: http.StatusInternalServerError, Body: map[string]any{"message": "model overloaded"}})

	gt.NoError(t, c.Run(context.Background()))

	text := out.String()
	gt.S(t, text).Contains("Please select a style and describe what you want to create")
	gt.S(t, text).Contains("Error: model overloaded")
	gt.A(t, srv.Queries()).Length(1)
}

func TestConsoleFeedbackRetry(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("feedback", apitest.Reply{Status: http.StatusInternalServerError})

	reader := &recoveringReader{
		scriptReader: scriptReader{lines: []string{
			"1", "1", "q", // ask
			"4", "", // rating and empty suggestion
			"y", // retry after failure
			"",  // press enter
			"6",
		}},
		srv: srv,
	}

	var out bytes.Buffer
	c := console.New(newApp(t, srv), reader, &out, console.WithMarkdown(false))
	gt.NoError(t, c.Run(context.Background()))

	gt.S(t, out.String()).Contains("Error: Failed to submit feedback")
	gt.S(t, out.String()).Contains("Thank you for your feedback! (Rating: 4/5)")
	gt.A(t, srv.Feedbacks()).Length(1)
}

// recoveringReader clears backend failures once the retry prompt is shown
type recoveringReader struct {
	scriptReader
	srv *apitest.Server
}

func (r *recoveringReader) SetPrompt(prompt string) {
	if strings.HasPrefix(prompt, "Retry?") {
		r.srv.Recover("feedback")
	}
	r.scriptReader.SetPrompt(prompt)
}

func newApp(t *testing.T, srv *apitest.Server) *assistant.App {
	client, err := adapter.NewAssistant(srv.URL)
	gt.NoError(t, err).Required()
	app, err := assistant.New(assistant.NewInput{
		Client: client,
		Store:  history.Open(context.Background(), repository.NewMemory()),
	})
	gt.NoError(t, err).Required()
	return app
}

func TestConsoleAnalyticsAndHistory(t *testing.T) {
	ind := &countingIndicator{}
	srv := apitest.New(t)
	app := newApp(t, srv)

	var out bytes.Buffer
	reader := &scriptReader{lines: []string{
		"4", "",
		"5", "",
		"1", "3", "teach me", "5", "", "",
		"4", "",
		"5", "",
		"x", "",
		"6",
	}}
	c := console.New(app, reader, &out, console.WithIndicator(ind), console.WithMarkdown(false))
	gt.NoError(t, c.Run(context.Background()))

	text := out.String()
	gt.S(t, text).Contains("No feedback data available yet.")
	gt.S(t, text).Contains("No interactions in this session yet.")
	gt.S(t, text).Contains("Total Feedback Received:")
	gt.S(t, text).Contains("Question Answering (educational)")
	gt.S(t, text).Contains("Invalid choice. Please select 1-6.")
	gt.S(t, text).Contains("Review interactions (1 items)")

	gt.V(t, ind.starts).Equal(3)
	gt.V(t, ind.stops).Equal(3)
}

func TestConsoleWrappedEndOfInput(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{name: "wrapped EOF", err: goerr.Wrap(io.EOF, "terminal closed")},
		{name: "wrapped interrupt", err: goerr.Wrap(readline.ErrInterrupt, "ctrl+c")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, app := setupConsole(t)

			var out bytes.Buffer
			c := console.New(app, &failingReader{err: tc.err}, &out, console.WithMarkdown(false))
			gt.NoError(t, c.Run(context.Background()))
			gt.S(t, out.String()).Contains("Session interrupted. Goodbye!")
		})
	}

	_, _, _, app := setupConsole(t)
	var out bytes.Buffer
	c := console.New(app, &failingReader{err: io.ErrUnexpectedEOF}, &out, console.WithMarkdown(false))
	gt.Error(t, c.Run(context.Background()))
	gt.S(t, out.String()).NotContains("Session interrupted")
}
