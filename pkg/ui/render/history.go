package render

import (
	"fmt"
	"strings"

	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/muesli/reflow/truncate"
)

const (
	historyQueryLength    = 100
	historyResponseLength = 200
)

// clock formats the record time as HH:MM:SS in local time. Malformed
// timestamps are shown as-is.
func clock(rec model.InteractionRecord) string {
	t, ok := rec.Time()
	if !ok {
		return rec.Timestamp
	}
	return t.Local().Format("15:04:05")
}

// HistoryHeading is the one-line summary of a record, e.g.
// "1. [12:30:45] Question Answering (factual)".
func HistoryHeading(n int, rec model.InteractionRecord) string {
	return fmt.Sprintf("%d. [%s] %s (%s)", n, clock(rec), model.FormatFunctionName(rec.Function), rec.Style)
}

// HistoryEntry renders one record of the history list with query and
// response previews.
func HistoryEntry(n int, rec model.InteractionRecord) string {
	var b strings.Builder
	b.WriteString(LabelStyle.Render(HistoryHeading(n, rec)))
	b.WriteString("\n   Query: ")
	b.WriteString(oneLine(model.Preview(rec.Query, historyQueryLength)))
	b.WriteString("\n   Response: ")
	b.WriteString(oneLine(model.Preview(rec.Response, historyResponseLength)))
	return b.String()
}

// HistoryList renders every record, or the empty state.
func HistoryList(records []model.InteractionRecord) string {
	if len(records) == 0 {
		return DimStyle.Render("No interactions in this session yet.")
	}

	entries := make([]string, 0, len(records))
	for i, rec := range records {
		entries = append(entries, HistoryEntry(i+1, rec))
	}
	return strings.Join(entries, "\n"+DimStyle.Render(strings.Repeat("-", 40))+"\n")
}

// HistoryDetail is the full, unstyled view of one record meant for copying.
func HistoryDetail(n int, rec model.InteractionRecord) string {
	var b strings.Builder
	fmt.Fprintln(&b, HistoryHeading(n, rec))
	fmt.Fprintf(&b, "ID: %s\n", rec.ID)
	fmt.Fprintf(&b, "Timestamp: %s\n", rec.Timestamp)
	fmt.Fprintf(&b, "\nQuery:\n%s\n", rec.Query)
	fmt.Fprintf(&b, "\nResponse:\n%s\n", rec.Response)
	return b.String()
}

// Clip cuts a single line to width terminal cells.
func Clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(oneLine(s), uint(width), "…")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
