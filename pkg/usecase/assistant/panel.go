package assistant

import (
	"context"
	"strings"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/m-mizutani/aiassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Panel is the input/output state of one generation view. A panel lives
// until its view is left.
type Panel struct {
	id   uint64
	spec model.FunctionSpec

	Style model.Style
	Input string

	// Response and Query describe the response currently displayed
	Response string
	Query    string
	// Err is the user-facing message of the last failure, if any
	Err string

	inFlight *Ticket
	feedback *FeedbackSlot
}

func newPanel(id uint64, spec model.FunctionSpec) *Panel {
	return &Panel{id: id, spec: spec}
}

func (p *Panel) Spec() model.FunctionSpec {
	return p.spec
}

func (p *Panel) Function() model.FunctionType {
	return p.spec.Type
}

// Busy reports whether this panel has a query outstanding.
func (p *Panel) Busy() bool {
	return p.inFlight != nil
}

// Feedback returns the feedback slot of the displayed response, or nil.
func (p *Panel) Feedback() *FeedbackSlot {
	return p.feedback
}

// Ticket is an accepted submission travelling from Begin through Do to
// Complete.
type Ticket struct {
	panelID  uint64
	Function model.FunctionType
	Style    model.Style
	Query    string
	done     bool
}

// Result is what Do hands back to Complete.
type Result struct {
	ticket   *Ticket
	Response string
	Err      error
}

// Outcome describes what Complete changed.
type Outcome struct {
	// Displayed is false when the panel was torn down before completion
	Displayed bool
	// Record is set when the exchange was added to the session history
	Record  *model.InteractionRecord
	Persist history.PersistResult
	// Message is the user-facing error message on failure
	Message string
}

// Begin validates the active panel and reserves a loading slot. On
// validation failure no slot is taken and the panel shows the message.
func (a *App) Begin() (*Ticket, error) {
	p := a.panel
	if p == nil {
		return nil, goerr.Wrap(model.ErrNotInPanel, "cannot submit", goerr.V("view", a.view))
	}
	if p.inFlight != nil {
		return nil, goerr.Wrap(model.ErrRequestInFlight, "panel is waiting for a response",
			goerr.V("function", p.spec.Type))
	}

	text := strings.TrimSpace(p.Input)
	if _, err := p.spec.Style(p.Style); err != nil || text == "" {
		p.Err = p.spec.ValidationMessage
		return nil, goerr.Wrap(model.ErrValidation, p.spec.ValidationMessage,
			goerr.V("function", p.spec.Type),
			goerr.V("style", p.Style),
		)
	}

	t := &Ticket{
		panelID:  p.id,
		Function: p.spec.Type,
		Style:    p.Style,
		Query:    p.Input,
	}
	p.inFlight = t
	p.Err = ""
	a.acquire()
	return t, nil
}

// Do sends the query. It touches no App state besides the client.
func (a *App) Do(ctx context.Context, t *Ticket) *Result {
	resp, err := a.client.Query(ctx, t.Function, t.Style, t.Query)
	return &Result{ticket: t, Response: resp, Err: err}
}

// Complete applies a result. The loading slot is released exactly once per
// ticket; a second Complete for the same ticket fails with
// ErrTicketCompleted and changes nothing.
func (a *App) Complete(ctx context.Context, r *Result) (*Outcome, error) {
	t := r.ticket
	if t == nil || t.done {
		return nil, goerr.Wrap(model.ErrTicketCompleted, "result already applied")
	}
	t.done = true
	a.release()

	p := a.panel
	live := p != nil && p.id == t.panelID
	if live {
		p.inFlight = nil
	}

	out := &Outcome{Displayed: live}

	if r.Err != nil {
		out.Message = adapter.UserMessage(r.Err)
		logging.From(ctx).Warn("query failed",
			"function", t.Function,
			"displayed", live,
			"error", r.Err,
		)
		if live {
			p.Err = out.Message
		}
		return out, nil
	}

	query := recordedQuery(t.Function, t.Query)
	rec := model.NewInteractionRecord(t.Function.Label(), string(t.Style), query, r.Response, a.now())
	out.Record = &rec
	out.Persist = a.store.Record(ctx, rec, t.Function, t.Query)

	if live {
		p.Response = r.Response
		p.Query = query
		p.Err = ""
		p.feedback = newFeedbackSlot(t.Function, query, r.Response)
	} else {
		logging.From(ctx).Debug("discarded response for closed panel", "function", t.Function)
	}
	return out, nil
}

// Submit runs Begin, Do and Complete in sequence.
func (a *App) Submit(ctx context.Context) (*Outcome, error) {
	t, err := a.Begin()
	if err != nil {
		return nil, err
	}
	return a.Complete(ctx, a.Do(ctx, t))
}

// recordedQuery is the query text kept in history and sent with feedback.
// Summaries keep only a preview of the source text.
func recordedQuery(fn model.FunctionType, query string) string {
	if fn == model.FunctionTextSummarization {
		return model.Preview(query, model.PreviewLength)
	}
	return query
}
