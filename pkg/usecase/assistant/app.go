package assistant

import (
	"context"
	"time"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/m-mizutani/goerr/v2"
)

// App holds the whole client state: the active view, the panel behind it,
// the loading counter and the session history.
//
// App is not safe for concurrent use. Every method except the Do* family
// must be called from one goroutine. Do* only talk to the backend and may run
// anywhere.
type App struct {
	client adapter.Assistant
	store  *history.Store
	now    func() time.Time

	view      model.ViewState
	nextID    uint64
	panel     *Panel
	analytics *Analytics

	loading int
}

// NewInput contains parameters for creating an App
type NewInput struct {
	Client adapter.Assistant
	Store  *history.Store
	// Now overrides the clock used for history timestamps
	Now func() time.Time
}

func New(input NewInput) (*App, error) {
	if input.Client == nil {
		return nil, goerr.New("assistant client is required")
	}
	if input.Store == nil {
		return nil, goerr.New("history store is required")
	}

	now := input.Now
	if now == nil {
		now = time.Now
	}

	return &App{
		client: input.Client,
		store:  input.Store,
		now:    now,
		view:   model.ViewMenu,
	}, nil
}

// Loading reports whether any query is outstanding.
func (a *App) Loading() bool {
	return a.loading > 0
}

// InFlight returns the number of outstanding queries.
func (a *App) InFlight() int {
	return a.loading
}

func (a *App) History() *history.Store {
	return a.store
}

// MenuItems returns the main menu with the current session history count.
func (a *App) MenuItems() []model.MenuItem {
	return model.MenuItems(a.store.Interactions.Len())
}

// ClearHistory empties the session history.
func (a *App) ClearHistory(ctx context.Context) history.PersistResult {
	return a.store.Clear(ctx)
}

func (a *App) id() uint64 {
	a.nextID++
	return a.nextID
}

func (a *App) acquire() {
	a.loading++
}

func (a *App) release() {
	if a.loading > 0 {
		a.loading--
	}
}
