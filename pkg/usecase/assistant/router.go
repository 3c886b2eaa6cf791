package assistant

import (
	"github.com/m-mizutani/aiassist/pkg/model"
)

// Current returns the active view.
func (a *App) Current() model.ViewState {
	return a.view
}

// Select switches to view. Navigation is never refused; leaving a view tears
// down its panel, and results for it arriving later are not displayed.
func (a *App) Select(view model.ViewState) error {
	if err := view.Validate(); err != nil {
		return err
	}

	a.panel = nil
	a.analytics = nil
	a.view = view

	if fn, ok := view.Function(); ok {
		spec, err := fn.Spec()
		if err != nil {
			return err
		}
		a.panel = newPanel(a.id(), spec)
	}
	if view == model.ViewFeedbackAnalytics {
		a.analytics = &Analytics{id: a.id()}
	}
	return nil
}

// Back returns to the menu from any view.
func (a *App) Back() {
	a.panel = nil
	a.analytics = nil
	a.view = model.ViewMenu
}

// Panel returns the input panel of the active view, or nil.
func (a *App) Panel() *Panel {
	return a.panel
}

// Analytics returns the analytics state of the active view, or nil.
func (a *App) Analytics() *Analytics {
	return a.analytics
}
