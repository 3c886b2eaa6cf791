package tui

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/ui/render"
	"github.com/m-mizutani/aiassist/pkg/usecase/assistant"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch view := m.app.Current(); {
	case view == model.ViewMenu:
		body = m.viewMenu()
	case view == model.ViewFeedbackAnalytics:
		body = m.viewAnalytics()
	case view == model.ViewSessionHistory:
		body = m.viewHistory()
	default:
		body = m.viewPanel()
	}

	var b strings.Builder
	b.WriteString(render.TitleStyle.Render("AI Assistant"))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	if m.notice != "" {
		b.WriteString(render.ErrorStyle.Render("! "+m.notice) + render.HelpStyle.Render("  (press any key)"))
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar())
	return b.String()
}

func (m Model) statusBar() string {
	var parts []string
	if m.busy() {
		status := m.spinner.View() + " Processing..."
		if n := m.app.InFlight(); n > 1 {
			status += fmt.Sprintf(" (%d requests)", n)
		}
		parts = append(parts, status)
	}

	switch view := m.app.Current(); {
	case view == model.ViewMenu:
		parts = append(parts, "↑/↓ select  enter open  1-5 jump  6/q quit")
	case view == model.ViewFeedbackAnalytics:
		parts = append(parts, "r refresh  esc back")
	case view == model.ViewSessionHistory:
		parts = append(parts, "↑/↓ select  enter view  c clear  esc back")
	default:
		parts = append(parts, "tab next field  ctrl+s send  esc back")
	}
	return render.StatusBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(render.HeaderStyle.Render("Main Functions"))
	b.WriteString("\n")
	for i, item := range m.app.MenuItems() {
		line := fmt.Sprintf("%d. %-20s %s", i+1, item.Title, item.Description)
		line = render.Clip(line, max(20, m.width-4))
		if i == m.cursor {
			b.WriteString(render.SelectedStyle.Render(line))
		} else {
			b.WriteString(render.NormalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewPanel() string {
	p := m.app.Panel()
	if p == nil {
		return ""
	}
	spec := p.Spec()

	var b strings.Builder
	b.WriteString(render.HeaderStyle.Render(spec.Label))
	b.WriteString("\n" + render.DimStyle.Render(spec.Description) + "\n\n")

	b.WriteString(m.fieldLabel(focusStyle, "Response Style") + "\n")
	for i, opt := range spec.Styles {
		mark := "( )"
		if opt.ID == p.Style {
			mark = "(•)"
		}
		line := fmt.Sprintf("%s %d. %s - %s", mark, i+1, opt.Name, opt.Description)
		if m.focus == focusStyle && i == m.cursor {
			b.WriteString(render.SelectedStyle.Render(line))
		} else {
			b.WriteString(render.NormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + m.fieldLabel(focusInput, spec.InputPrompt) + "\n")
	b.WriteString(m.input.View())

	if p.Err != "" {
		b.WriteString("\n" + render.ErrorStyle.Render(p.Err))
	}

	if p.Response != "" {
		b.WriteString("\n\n" + render.LabelStyle.Render(spec.ResponseTitle) + "\n")
		b.WriteString(render.ResponseBoxStyle.Width(max(20, m.width-4)).Render(m.rendered))
		b.WriteString("\n" + m.viewFeedback(p))
	}
	return b.String()
}

func (m Model) viewFeedback(p *assistant.Panel) string {
	slot := p.Feedback()
	if slot == nil {
		return ""
	}
	if slot.Submitted() {
		return render.SuccessStyle.Render("✓ Thank you for your feedback!")
	}

	stars := strings.Repeat("★", m.rating) + strings.Repeat("☆", model.MaxRating-m.rating)
	var b strings.Builder
	b.WriteString(m.fieldLabel(focusRating, "Rate this response (1-5)") + " " + stars + "\n")
	b.WriteString(m.fieldLabel(focusSuggestion, "Suggestions") + " " + m.suggestion.View())
	if slot.Pending() {
		b.WriteString("\n" + render.DimStyle.Render("Submitting feedback..."))
	}
	return b.String()
}

func (m Model) fieldLabel(f focus, label string) string {
	if m.focus == f {
		return render.LabelStyle.Render("▸ " + label)
	}
	return render.DimStyle.Render("  " + label)
}

func (m Model) viewAnalytics() string {
	var b strings.Builder
	b.WriteString(render.HeaderStyle.Render("Feedback Analytics"))
	b.WriteString("\n\n")

	an := m.app.Analytics()
	switch {
	case an == nil:
	case an.State == assistant.AnalyticsLoading && an.Stats == nil:
		b.WriteString(m.spinner.View() + " Loading statistics...")
	case an.State == assistant.AnalyticsFailed:
		b.WriteString(render.ErrorStyle.Render(an.Err))
	case an.Stats != nil:
		b.WriteString(render.Stats(an.Stats))
	}
	return b.String()
}

func (m Model) viewHistory() string {
	records := m.app.History().Interactions.List()

	var b strings.Builder
	b.WriteString(render.HeaderStyle.Render(fmt.Sprintf("Session History (%d)", len(records))))
	b.WriteString("\n\n")

	if m.detail > 0 && m.detail <= len(records) {
		b.WriteString(render.HistoryDetail(m.detail, records[m.detail-1]))
		return b.String()
	}
	if len(records) == 0 {
		b.WriteString(render.HistoryList(nil))
		return b.String()
	}

	for i, rec := range records {
		entry := render.HistoryEntry(i+1, rec)
		if i == m.cursor {
			entry = render.SelectedStyle.Render(render.HistoryHeading(i+1, rec)) + entry[strings.Index(entry, "\n"):]
		}
		b.WriteString(entry + "\n")
	}
	if m.confirmClear {
		b.WriteString("\n" + render.ErrorStyle.Render("Clear all session history? (y/N)"))
	}
	return strings.TrimRight(b.String(), "\n")
}
