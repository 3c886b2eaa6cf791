package assistant

import (
	"context"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type AnalyticsState int

const (
	AnalyticsIdle AnalyticsState = iota
	AnalyticsLoading
	AnalyticsReady
	AnalyticsFailed
)

// Analytics is the feedback statistics view. Stats are shown exactly as the
// backend computed them.
type Analytics struct {
	id    uint64
	State AnalyticsState
	Stats *model.FeedbackStats
	Err   string
}

type StatsTicket struct {
	analyticsID uint64
}

type StatsResult struct {
	ticket *StatsTicket
	Stats  *model.FeedbackStats
	Err    error
}

// BeginStats starts a fetch for the analytics view.
func (a *App) BeginStats() (*StatsTicket, error) {
	an := a.analytics
	if an == nil {
		return nil, goerr.Wrap(model.ErrUnknownView, "analytics view is not active", goerr.V("view", a.view))
	}
	if an.State == AnalyticsLoading {
		return nil, goerr.Wrap(model.ErrRequestInFlight, "stats are being fetched")
	}
	an.State = AnalyticsLoading
	an.Err = ""
	return &StatsTicket{analyticsID: an.id}, nil
}

func (a *App) DoStats(ctx context.Context, t *StatsTicket) *StatsResult {
	stats, err := a.client.FeedbackStats(ctx)
	return &StatsResult{ticket: t, Stats: stats, Err: err}
}

// CompleteStats applies fetched stats if the analytics view is still the one
// that asked for them. It reports whether the result was applied.
func (a *App) CompleteStats(ctx context.Context, r *StatsResult) bool {
	an := a.analytics
	if an == nil || r.ticket == nil || an.id != r.ticket.analyticsID {
		logging.From(ctx).Debug("discarded stats for closed view")
		return false
	}

	if r.Err != nil {
		an.State = AnalyticsFailed
		an.Err = adapter.UserMessage(r.Err)
		logging.From(ctx).Warn("failed to fetch feedback stats", "error", r.Err)
		return true
	}
	an.State = AnalyticsReady
	an.Stats = r.Stats
	return true
}

// RefreshStats runs BeginStats, DoStats and CompleteStats.
func (a *App) RefreshStats(ctx context.Context) (*Analytics, error) {
	t, err := a.BeginStats()
	if err != nil {
		return nil, err
	}
	a.CompleteStats(ctx, a.DoStats(ctx, t))
	return a.analytics, nil
}
