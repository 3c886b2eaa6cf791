package assistant

import (
	"context"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// FeedbackSlot is the one feedback opportunity attached to a displayed
// response. It is replaced whenever a new response is shown.
type FeedbackSlot struct {
	Function model.FunctionType
	Query    string
	Response string

	submitted bool
	pending   bool
	// Err is the blocking notice of the last failed submission
	Err string
}

func newFeedbackSlot(fn model.FunctionType, query, response string) *FeedbackSlot {
	return &FeedbackSlot{Function: fn, Query: query, Response: response}
}

func (s *FeedbackSlot) Submitted() bool { return s.submitted }
func (s *FeedbackSlot) Pending() bool   { return s.pending }

// FeedbackTicket is an accepted feedback submission.
type FeedbackTicket struct {
	slot       *FeedbackSlot
	Submission model.FeedbackSubmission
	done       bool
}

type FeedbackResult struct {
	ticket *FeedbackTicket
	Err    error
}

// BeginFeedback validates a rating for the displayed response.
func (a *App) BeginFeedback(rating int, suggestions string) (*FeedbackTicket, error) {
	p := a.panel
	if p == nil {
		return nil, goerr.Wrap(model.ErrNotInPanel, "cannot give feedback", goerr.V("view", a.view))
	}
	s := p.feedback
	if s == nil {
		return nil, goerr.Wrap(model.ErrNoResponse, "no response displayed", goerr.V("function", p.spec.Type))
	}
	if s.submitted {
		return nil, goerr.Wrap(model.ErrFeedbackSubmitted, "feedback already sent for this response")
	}
	if s.pending {
		return nil, goerr.Wrap(model.ErrRequestInFlight, "feedback is being submitted")
	}

	sub := model.FeedbackSubmission{
		FunctionType: s.Function,
		Query:        s.Query,
		Response:     s.Response,
		Rating:       rating,
		Suggestions:  suggestions,
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	s.pending = true
	s.Err = ""
	return &FeedbackTicket{slot: s, Submission: sub}, nil
}

func (a *App) DoFeedback(ctx context.Context, t *FeedbackTicket) *FeedbackResult {
	sub := t.Submission
	return &FeedbackResult{ticket: t, Err: a.client.SubmitFeedback(ctx, &sub)}
}

// CompleteFeedback marks the slot submitted on success. On failure the slot
// keeps a notice and accepts another attempt.
func (a *App) CompleteFeedback(ctx context.Context, r *FeedbackResult) error {
	t := r.ticket
	if t == nil || t.done {
		return goerr.Wrap(model.ErrTicketCompleted, "feedback result already applied")
	}
	t.done = true

	s := t.slot
	s.pending = false
	if r.Err != nil {
		s.Err = adapter.UserMessage(r.Err)
		logging.From(ctx).Warn("feedback submission failed", "function", s.Function, "error", r.Err)
		return r.Err
	}
	s.submitted = true
	return nil
}

// SubmitFeedback runs BeginFeedback, DoFeedback and CompleteFeedback.
func (a *App) SubmitFeedback(ctx context.Context, rating int, suggestions string) error {
	t, err := a.BeginFeedback(rating, suggestions)
	if err != nil {
		return err
	}
	return a.CompleteFeedback(ctx, a.DoFeedback(ctx, t))
}
