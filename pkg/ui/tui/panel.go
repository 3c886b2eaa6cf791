package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/aiassist/pkg/model"
)

func (m Model) updatePanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.app.Panel()
	if p == nil {
		return m.back()
	}
	key := msg.String()

	switch key {
	case "esc":
		return m.back()
	case "tab":
		return m.setFocus(m.nextFocus(1))
	case "shift+tab":
		return m.setFocus(m.nextFocus(-1))
	}

	switch m.focus {
	case focusStyle:
		styles := p.Spec().Styles
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(styles)-1 {
				m.cursor++
			}
		case "1", "2", "3":
			if opt, ok := p.Spec().StyleAt(int(key[0] - '0')); ok {
				p.Style = opt.ID
				m.cursor = int(key[0]-'0') - 1
				return m.setFocus(focusInput)
			}
		case "enter", " ":
			p.Style = styles[m.cursor].ID
			return m.setFocus(focusInput)
		}
		return m, nil

	case focusInput:
		if key == "ctrl+s" {
			return m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case focusRating:
		switch key {
		case "1", "2", "3", "4", "5":
			m.rating = int(key[0] - '0')
		case "left", "h":
			if m.rating > model.MinRating {
				m.rating--
			}
		case "right", "l":
			if m.rating < model.MaxRating {
				m.rating++
			}
		case "enter":
			return m.setFocus(focusSuggestion)
		case "ctrl+s":
			return m.submitFeedback()
		}
		return m, nil

	case focusSuggestion:
		if key == "enter" || key == "ctrl+s" {
			return m.submitFeedback()
		}
		var cmd tea.Cmd
		m.suggestion, cmd = m.suggestion.Update(msg)
		return m, cmd
	}

	return m, nil
}

// feedbackOpen reports whether the displayed response still accepts feedback.
func (m Model) feedbackOpen() bool {
	p := m.app.Panel()
	return p != nil && p.Feedback() != nil && !p.Feedback().Submitted()
}

func (m Model) nextFocus(step int) focus {
	order := []focus{focusStyle, focusInput}
	if m.feedbackOpen() {
		order = append(order, focusRating, focusSuggestion)
	}

	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
		}
	}
	idx = (idx + step + len(order)) % len(order)
	return order[idx]
}

func (m Model) setFocus(f focus) (tea.Model, tea.Cmd) {
	m.focus = f
	m.input.Blur()
	m.suggestion.Blur()

	switch f {
	case focusInput:
		return m, m.input.Focus()
	case focusSuggestion:
		return m, m.suggestion.Focus()
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	p := m.app.Panel()
	p.Input = m.input.Value()

	t, err := m.app.Begin()
	if err != nil {
		// validation message is already on the panel, in-flight is a no-op
		return m, nil
	}

	app, ctx := m.app, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return queryDoneMsg{res: app.Do(ctx, t)}
	})
}

func (m Model) submitFeedback() (tea.Model, tea.Cmd) {
	t, err := m.app.BeginFeedback(m.rating, m.suggestion.Value())
	switch {
	case errors.Is(err, model.ErrInvalidRating):
		m.notice = "Please select a rating from 1 to 5"
		m.focus = focusRating
		return m, nil
	case errors.Is(err, model.ErrFeedbackSubmitted):
		m.notice = "Feedback has already been submitted for this response"
		return m, nil
	case err != nil:
		return m, nil
	}

	app, ctx := m.app, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return feedbackDoneMsg{res: app.DoFeedback(ctx, t)}
	})
}
