package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/aiassist/pkg/usecase/assistant"
	"github.com/m-mizutani/goerr/v2"
)

// focus is the active field of a generation panel
type focus int

const (
	focusStyle focus = iota
	focusInput
	focusRating
	focusSuggestion
)

type queryDoneMsg struct{ res *assistant.Result }
type feedbackDoneMsg struct{ res *assistant.FeedbackResult }
type statsDoneMsg struct{ res *assistant.StatsResult }

// Model is the Bubble Tea model. All App mutations happen in Update, which
// Bubble Tea runs on a single goroutine; network calls run in commands.
type Model struct {
	ctx context.Context
	app *assistant.App

	width  int
	height int

	cursor int
	focus  focus
	rating int

	input      textarea.Model
	suggestion textinput.Model
	spinner    spinner.Model

	// rendered caches the Markdown rendering of the displayed response
	rendered string
	// notice blocks the panel until dismissed
	notice string

	detail       int
	confirmClear bool
	quitting     bool
}

func New(ctx context.Context, app *assistant.App) Model {
	ta := textarea.New()
	ta.Placeholder = "Type here, ctrl+s to send"
	ta.ShowLineNumbers = false
	ta.SetHeight(5)
	ta.CharLimit = 0

	si := textinput.New()
	si.Placeholder = "Any suggestions for improvement? (optional)"
	si.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	return Model{
		ctx:        ctx,
		app:        app,
		width:      render.DefaultWidth,
		height:     30,
		input:      ta,
		suggestion: si,
		spinner:    sp,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(20, msg.Width-4))
		m.rerender()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case queryDoneMsg:
		out, err := m.app.Complete(m.ctx, msg.res)
		if err == nil && out.Displayed && out.Record != nil {
			m.rerender()
			m.rating = 0
			m.suggestion.Reset()
		}
		return m, nil

	case feedbackDoneMsg:
		if err := m.app.CompleteFeedback(m.ctx, msg.res); err != nil {
			if p := m.app.Panel(); p != nil && p.Feedback() != nil && p.Feedback().Err != "" {
				m.notice = p.Feedback().Err
			}
			return m, nil
		}
		m.suggestion.Reset()
		m.rating = 0
		if m.focus == focusRating || m.focus == focusSuggestion {
			return m.setFocus(focusInput)
		}
		return m, nil

	case statsDoneMsg:
		m.app.CompleteStats(m.ctx, msg.res)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.notice != "" {
			m.notice = ""
			return m, nil
		}

		switch view := m.app.Current(); {
		case view == model.ViewMenu:
			return m.updateMenu(msg)
		case view == model.ViewFeedbackAnalytics:
			return m.updateAnalytics(msg)
		case view == model.ViewSessionHistory:
			return m.updateHistory(msg)
		default:
			return m.updatePanel(msg)
		}
	}

	return m, m.forward(msg)
}

// forward passes non-key messages such as cursor blinks to the focused input.
func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		m.input, cmd = m.input.Update(msg)
	case focusSuggestion:
		m.suggestion, cmd = m.suggestion.Update(msg)
	}
	return cmd
}

func (m Model) busy() bool {
	if m.app.Loading() {
		return true
	}
	if p := m.app.Panel(); p != nil && p.Feedback() != nil && p.Feedback().Pending() {
		return true
	}
	an := m.app.Analytics()
	return an != nil && an.State == assistant.AnalyticsLoading
}

func (m *Model) rerender() {
	p := m.app.Panel()
	if p == nil || p.Response == "" {
		m.rendered = ""
		return
	}
	m.rendered = render.Markdown(p.Response, max(20, m.width-6))
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.app.MenuItems()

	switch key := msg.String(); key {
	case "q", "esc", "6":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}

	case "enter":
		return m.open(items[m.cursor].View)

	case "1", "2", "3", "4", "5":
		n := int(key[0] - '0')
		if n <= len(items) {
			m.cursor = n - 1
			return m.open(items[n-1].View)
		}
	}
	return m, nil
}

// open switches the App to view and resets the per-view UI state.
func (m Model) open(view model.ViewState) (tea.Model, tea.Cmd) {
	if err := m.app.Select(view); err != nil {
		m.notice = err.Error()
		return m, nil
	}

	m.focus = focusStyle
	m.cursor = 0
	m.rating = 0
	m.rendered = ""
	m.detail = 0
	m.confirmClear = false
	m.input.Reset()
	m.input.Blur()
	m.suggestion.Reset()
	m.suggestion.Blur()

	if view == model.ViewFeedbackAnalytics {
		return m, m.fetchStats()
	}
	return m, nil
}

func (m Model) back() (tea.Model, tea.Cmd) {
	m.app.Back()
	m.cursor = 0
	m.rendered = ""
	m.input.Blur()
	m.suggestion.Blur()
	return m, nil
}

func (m Model) fetchStats() tea.Cmd {
	t, err := m.app.BeginStats()
	if err != nil {
		return nil
	}
	app, ctx := m.app, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return statsDoneMsg{res: app.DoStats(ctx, t)}
	})
}

func (m Model) updateAnalytics(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "backspace":
		return m.back()
	case "r":
		return m, m.fetchStats()
	}
	return m, nil
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	records := m.app.History().Interactions.List()
	key := msg.String()

	if m.confirmClear {
		m.confirmClear = false
		if key == "y" {
			m.app.ClearHistory(m.ctx)
			m.cursor = 0
			m.detail = 0
		}
		return m, nil
	}

	if m.detail > 0 {
		if key == "esc" || key == "q" || key == "enter" || key == "backspace" {
			m.detail = 0
		}
		return m, nil
	}

	switch key {
	case "esc", "q", "backspace":
		return m.back()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(records)-1 {
			m.cursor++
		}
	case "enter":
		if len(records) > 0 {
			m.detail = m.cursor + 1
		}
	case "c":
		if len(records) > 0 {
			m.confirmClear = true
		}
	}
	return m, nil
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// Run starts the full-screen program and blocks until it exits.
func Run(ctx context.Context, app *assistant.App) error {
	p := tea.NewProgram(New(ctx, app), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return goerr.Wrap(err, "TUI terminated")
	}
	return nil
}
