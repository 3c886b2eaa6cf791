package console

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
)

// LineReader reads one line of user input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Indicator shows that a request is running.
type Indicator interface {
	Start()
	Stop()
}

// NewReadline opens a line editor on the terminal. historyFile may be empty.
func NewReadline(historyFile string, stdout io.Writer) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          stdout,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize readline", goerr.V("history_file", historyFile))
	}
	return rl, nil
}

// NewSpinner returns a terminal spinner writing to w.
func NewSpinner(w io.Writer) Indicator {
	return spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(w),
		spinner.WithSuffix(" Processing your request..."),
	)
}

type nopIndicator struct{}

func (nopIndicator) Start() {}
func (nopIndicator) Stop()  {}

func isInterrupt(err error) bool {
	return errors.Is(err, readline.ErrInterrupt)
}

// Scanner reads lines from a non-terminal input such as a pipe. Prompts are
// echoed to out so transcripts stay readable.
type Scanner struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

func NewScanner(in io.Reader, out io.Writer) *Scanner {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Scanner{scanner: s, out: out}
}

func (s *Scanner) SetPrompt(prompt string) {
	s.prompt = prompt
}

func (s *Scanner) Readline() (string, error) {
	if s.prompt != "" {
		io.WriteString(s.out, s.prompt)
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", goerr.Wrap(err, "failed to read input")
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}
