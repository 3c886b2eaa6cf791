package model

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

var ErrUnknownView = goerr.New("unknown view")

// ViewState is the single active view of the application.
type ViewState string

const (
	ViewMenu               ViewState = "menu"
	ViewQuestionAnswering  ViewState = ViewState(FunctionQuestionAnswering)
	ViewTextSummarization  ViewState = ViewState(FunctionTextSummarization)
	ViewCreativeGeneration ViewState = ViewState(FunctionCreativeGeneration)
	ViewFeedbackAnalytics  ViewState = "feedback_analytics"
	ViewSessionHistory     ViewState = "session_history"
)

// MenuItem is an entry of the main menu.
type MenuItem struct {
	View        ViewState
	Title       string
	Description string
}

// MenuItems returns the selectable views in display order. The history entry
// description carries the current number of session records.
func MenuItems(sessionCount int) []MenuItem {
	items := make([]MenuItem, 0, len(functionSpecs)+2)
	for _, spec := range functionSpecs {
		items = append(items, MenuItem{
			View:        ViewState(spec.Type),
			Title:       spec.Label,
			Description: spec.Description,
		})
	}
	items = append(items,
		MenuItem{
			View:        ViewFeedbackAnalytics,
			Title:       "Feedback Analytics",
			Description: "View performance statistics",
		},
		MenuItem{
			View:        ViewSessionHistory,
			Title:       "Session History",
			Description: "Review interactions (" + strconv.Itoa(sessionCount) + " items)",
		},
	)
	return items
}

// Validate checks if the view is one of the known states
func (v ViewState) Validate() error {
	switch v {
	case ViewMenu, ViewQuestionAnswering, ViewTextSummarization, ViewCreativeGeneration,
		ViewFeedbackAnalytics, ViewSessionHistory:
		return nil
	default:
		return goerr.Wrap(ErrUnknownView, "invalid view", goerr.V("view", v))
	}
}

// Function returns the function type bound to a generation view.
func (v ViewState) Function() (FunctionType, bool) {
	switch v {
	case ViewQuestionAnswering, ViewTextSummarization, ViewCreativeGeneration:
		return FunctionType(v), true
	default:
		return "", false
	}
}
