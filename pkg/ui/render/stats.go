package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/m-mizutani/aiassist/pkg/model"
)

const barWidth = 30

// RatingBar draws a bar whose fill is avg/5.
func RatingBar(avg float64, width int) string {
	if width <= 0 {
		width = barWidth
	}
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	pct := model.RatingPercent(avg) / 100
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	return bar.ViewAs(pct)
}

// NoFunctionStatsMessage is shown when feedback exists but no function
// breakdown was returned.
const NoFunctionStatsMessage = "No function performance data available yet."

// Stats renders feedback statistics. The no-data state shows the backend
// message only.
func Stats(stats *model.FeedbackStats) string {
	if stats == nil {
		return ""
	}
	if stats.NoData {
		msg := stats.Message
		if msg == "" {
			msg = "No feedback data available yet."
		}
		return DimStyle.Render(msg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", LabelStyle.Render("Total Feedback Received:"), stats.TotalFeedback)
	fmt.Fprintf(&b, "%s %.1f/5.0\n", LabelStyle.Render("Average Rating:"), stats.AverageRating)

	b.WriteString("\n" + LabelStyle.Render("Function Performance:") + "\n")
	named := stats.SortedFunctionStats()
	if len(named) == 0 {
		b.WriteString("  " + DimStyle.Render(NoFunctionStatsMessage))
		return b.String()
	}
	for _, s := range named {
		fmt.Fprintf(&b, "  %-22s %s %.1f/5.0 (%d responses)\n",
			model.FormatFunctionName(s.Function),
			RatingBar(s.AvgRating, barWidth),
			s.AvgRating,
			s.Count,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
