package assistant_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/aiassist/pkg/adapter"
	"github.com/m-mizutani/aiassist/pkg/model"
	"github.com/m-mizutani/aiassist/pkg/repository"
	"github.com/m-mizutani/aiassist/pkg/usecase/assistant"
	"github.com/m-mizutani/aiassist/pkg/usecase/history"
	"github.com/m-mizutani/gt"
)

// mockAssistant is a mock implementation of adapter.Assistant for testing
type mockAssistant struct {
	queryFunc    func(ctx context.Context, fn model.FunctionType, style model.Style, query string) (string, error)
	feedbackFunc func(ctx context.Context, fb *model.FeedbackSubmission) error
	statsFunc    func(ctx context.Context) (*model.FeedbackStats, error)

	queries   int
	feedbacks []model.FeedbackSubmission
}

func (m *mockAssistant) Query(ctx context.Context, fn model.FunctionType, style model.Style, query string) (string, error) {
	m.queries++
	if m.queryFunc != nil {
		return m.queryFunc(ctx, fn, style, query)
	}
	return "", errors.New("not implemented")
}

func (m *mockAssistant) SubmitFeedback(ctx context.Context, fb *model.FeedbackSubmission) error {
	m.feedbacks = append(m.feedbacks, *fb)
	if m.feedbackFunc != nil {
		return m.feedbackFunc(ctx, fb)
	}
	return nil
}

func (m *mockAssistant) FeedbackStats(ctx context.Context) (*model.FeedbackStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAssistant) Health(ctx context.Context) (*model.HealthStatus, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssistant) Styles(ctx context.Context, fn model.FunctionType) ([]model.StyleOption, error) {
	return nil, errors.New("not implemented")
}

func (m *mockAssistant) RemoteHistory(ctx context.Context, page, pageSize int) (*model.QueryHistoryPage, error) {
	return nil, errors.New("not implemented")
}

func apiFailure(msg string) error {
	return &adapter.APIError{Op: adapter.OpQuery, StatusCode: 500, Message: msg}
}

var fixedNow = time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

func setupApp(t *testing.T, client *mockAssistant) (*assistant.App, repository.SessionStorage) {
	ctx := context.Background()
	storage := repository.NewMemory()
	app, err := assistant.New(assistant.NewInput{
		Client: client,
		Store:  history.Open(ctx, storage),
		Now:    func() time.Time { return fixedNow },
	})
	gt.NoError(t, err).Required()
	return app, storage
}

func answer(text string) func(context.Context, model.FunctionType, model.Style, string) (string, error) {
	return func(context.Context, model.FunctionType, model.Style, string) (string, error) {
		return text, nil
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := assistant.New(assistant.NewInput{})
	gt.Error(t, err)

	_, err = assistant.New(assistant.NewInput{Client: &mockAssistant{}})
	gt.Error(t, err)
}

func TestRouter(t *testing.T) {
	app, _ := setupApp(t, &mockAssistant{})

	gt.V(t, app.Current()).Equal(model.ViewMenu)
	gt.Nil(t, app.Panel())

	gt.NoError(t, app.Select(model.ViewTextSummarization))
	gt.V(t, app.Current()).Equal(model.ViewTextSummarization)
	gt.NotNil(t, app.Panel())
	gt.V(t, app.Panel().Function()).Equal(model.FunctionTextSummarization)

	gt.NoError(t, app.Select(model.ViewFeedbackAnalytics))
	gt.Nil(t, app.Panel())
	gt.NotNil(t, app.Analytics())

	app.Back()
	gt.V(t, app.Current()).Equal(model.ViewMenu)
	gt.Nil(t, app.Analytics())

	err := app.Select(model.ViewState("settings"))
	gt.True(t, errors.Is(err, model.ErrUnknownView))
	gt.V(t, app.Current()).Equal(model.ViewMenu)
}

func TestSubmitQuestionAnswering(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("4")}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	p := app.Panel()
	p.Style = "factual"
	p.Input = "What is 2+2?"

	out, err := app.Submit(ctx)
	gt.NoError(t, err)
	gt.True(t, out.Displayed)
	gt.True(t, out.Persist.OK())
	gt.False(t, app.Loading())

	gt.V(t, p.Response).Equal("4")
	gt.V(t, p.Err).Equal("")

	records := app.History().Interactions.List()
	gt.A(t, records).Length(1)
	gt.V(t, records[0].Function).Equal("Question Answering")
	gt.V(t, records[0].Style).Equal("factual")
	gt.V(t, records[0].Query).Equal("What is 2+2?")
	gt.V(t, records[0].Response).Equal("4")
	gt.V(t, records[0].Timestamp).Equal("2024-05-01T12:30:45Z")
	gt.V(t, records[0].ID).NotEqual(model.RecordID(""))

	gt.V(t, app.MenuItems()[4].Description).Equal("Review interactions (1 items)")
}

func TestSubmitValidation(t *testing.T) {
	testCases := []struct {
		name  string
		view  model.ViewState
		style model.Style
		input string
		msg   string
	}{
		{"no style", model.ViewQuestionAnswering, "", "hello", "Please select a style and enter your question"},
		{"blank text", model.ViewTextSummarization, "concise", "   \n", "Please select a style and enter text to summarize"},
		{"style of other panel", model.ViewCreativeGeneration, "factual", "a story", "Please select a style and describe what you want to create"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &mockAssistant{queryFunc: answer("never")}
			app, _ := setupApp(t, client)

			gt.NoError(t, app.Select(tc.view))
			app.Panel().Style = tc.style
			app.Panel().Input = tc.input

			_, err := app.Submit(context.Background())
			gt.True(t, errors.Is(err, model.ErrValidation))
			gt.V(t, app.Panel().Err).Equal(tc.msg)
			gt.V(t, client.queries).Equal(0)
			gt.False(t, app.Loading())
			gt.V(t, app.History().Interactions.Len()).Equal(0)
		})
	}
}

func TestSubmitOutsidePanel(t *testing.T) {
	app, _ := setupApp(t, &mockAssistant{})
	_, err := app.Begin()
	gt.True(t, errors.Is(err, model.ErrNotInPanel))
}

func TestSubmitFailureKeepsPriorResponse(t *testing.T) {
	ctx := context.Background()
	fail := false
	client := &mockAssistant{
		queryFunc: func(context.Context, model.FunctionType, model.Style, string) (string, error) {
			if fail {
				return "", apiFailure("Gemini API client not initialized")
			}
			return "first", nil
		},
	}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewCreativeGeneration))
	p := app.Panel()
	p.Style = "storytelling"
	p.Input = "a dragon"
	_, err := app.Submit(ctx)
	gt.NoError(t, err)

	fail = true
	out, err := app.Submit(ctx)
	gt.NoError(t, err)
	gt.V(t, out.Message).Equal("Gemini API client not initialized")
	gt.Nil(t, out.Record)
	gt.V(t, p.Err).Equal("Gemini API client not initialized")
	gt.V(t, p.Response).Equal("first")
	gt.False(t, app.Loading())
	gt.V(t, app.History().Interactions.Len()).Equal(1)

	fail = false
	_, err = app.Submit(ctx)
	gt.NoError(t, err)
	gt.V(t, p.Err).Equal("")
}

func TestInFlightGuard(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("ok")}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	app.Panel().Style = "analytical"
	app.Panel().Input = "why?"

	ticket, err := app.Begin()
	gt.NoError(t, err)
	gt.True(t, app.Loading())
	gt.True(t, app.Panel().Busy())

	_, err = app.Begin()
	gt.True(t, errors.Is(err, model.ErrRequestInFlight))
	gt.V(t, app.InFlight()).Equal(1)

	res := app.Do(ctx, ticket)
	_, err = app.Complete(ctx, res)
	gt.NoError(t, err)
	gt.False(t, app.Loading())
	gt.False(t, app.Panel().Busy())

	_, err = app.Complete(ctx, res)
	gt.True(t, errors.Is(err, model.ErrTicketCompleted))
	gt.V(t, app.InFlight()).Equal(0)
	gt.V(t, app.History().Interactions.Len()).Equal(1)
}

func TestLateResultAfterNavigation(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("late answer")}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	old := app.Panel()
	old.Style = "factual"
	old.Input = "slow question"

	ticket, err := app.Begin()
	gt.NoError(t, err)
	res := app.Do(ctx, ticket)

	app.Back()
	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	fresh := app.Panel()

	out, err := app.Complete(ctx, res)
	gt.NoError(t, err)
	gt.False(t, out.Displayed)
	gt.NotNil(t, out.Record)
	gt.False(t, app.Loading())
	gt.V(t, fresh.Response).Equal("")
	gt.False(t, fresh.Busy())
	gt.V(t, app.History().Interactions.Len()).Equal(1)
}

func TestLoadingCountsConcurrentPanels(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("x")}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	app.Panel().Style = "factual"
	app.Panel().Input = "one"
	first, err := app.Begin()
	gt.NoError(t, err)

	gt.NoError(t, app.Select(model.ViewCreativeGeneration))
	app.Panel().Style = "innovative"
	app.Panel().Input = "two"
	second, err := app.Begin()
	gt.NoError(t, err)
	gt.V(t, app.InFlight()).Equal(2)

	_, err = app.Complete(ctx, app.Do(ctx, first))
	gt.NoError(t, err)
	gt.True(t, app.Loading())

	out, err := app.Complete(ctx, app.Do(ctx, second))
	gt.NoError(t, err)
	gt.True(t, out.Displayed)
	gt.False(t, app.Loading())
}

func TestSummarizationStoresPreview(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("short")}
	app, _ := setupApp(t, client)

	long := strings.Repeat("a", 150)
	gt.NoError(t, app.Select(model.ViewTextSummarization))
	app.Panel().Style = "bullet_points"
	app.Panel().Input = long

	_, err := app.Submit(ctx)
	gt.NoError(t, err)

	rec, ok := app.History().Interactions.At(1)
	gt.True(t, ok)
	gt.V(t, rec.Query).Equal(strings.Repeat("a", 100) + "...")
	gt.V(t, app.Panel().Feedback().Query).Equal(rec.Query)

	chat := app.History().Chat.List()
	gt.A(t, chat).Length(2)
	gt.V(t, chat[0].Content).Equal(long)
}

func TestFeedbackSlot(t *testing.T) {
	ctx := context.Background()
	failFeedback := true
	client := &mockAssistant{
		queryFunc: answer("4"),
		feedbackFunc: func(context.Context, *model.FeedbackSubmission) error {
			if failFeedback {
				return &adapter.APIError{Op: adapter.OpFeedback, Message: "Failed to submit feedback"}
			}
			return nil
		},
	}
	app, _ := setupApp(t, client)
	gt.NoError(t, app.Select(model.ViewQuestionAnswering))

	_, err := app.BeginFeedback(5, "")
	gt.True(t, errors.Is(err, model.ErrNoResponse))

	app.Panel().Style = "factual"
	app.Panel().Input = "What is 2+2?"
	_, err = app.Submit(ctx)
	gt.NoError(t, err)

	_, err = app.BeginFeedback(0, "")
	gt.True(t, errors.Is(err, model.ErrInvalidRating))
	_, err = app.BeginFeedback(6, "")
	gt.True(t, errors.Is(err, model.ErrInvalidRating))

	err = app.SubmitFeedback(ctx, 5, "great")
	gt.Error(t, err)
	slot := app.Panel().Feedback()
	gt.V(t, slot.Err).Equal("Failed to submit feedback")
	gt.False(t, slot.Submitted())
	gt.False(t, slot.Pending())

	failFeedback = false
	gt.NoError(t, app.SubmitFeedback(ctx, 5, "great"))
	gt.True(t, slot.Submitted())
	gt.V(t, slot.Err).Equal("")

	err = app.SubmitFeedback(ctx, 4, "")
	gt.True(t, errors.Is(err, model.ErrFeedbackSubmitted))

	gt.A(t, client.feedbacks).Length(2)
	gt.V(t, client.feedbacks[1]).Equal(model.FeedbackSubmission{
		FunctionType: model.FunctionQuestionAnswering,
		Query:        "What is 2+2?",
		Response:     "4",
		Rating:       5,
		Suggestions:  "great",
	})

	_, err = app.Submit(ctx)
	gt.NoError(t, err)
	next := app.Panel().Feedback()
	gt.False(t, next.Submitted())
	gt.NoError(t, app.SubmitFeedback(ctx, 3, ""))
}

func TestFeedbackPendingGuard(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("ok")}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	app.Panel().Style = "factual"
	app.Panel().Input = "q"
	_, err := app.Submit(ctx)
	gt.NoError(t, err)

	ticket, err := app.BeginFeedback(4, "")
	gt.NoError(t, err)
	_, err = app.BeginFeedback(4, "")
	gt.True(t, errors.Is(err, model.ErrRequestInFlight))

	res := app.DoFeedback(ctx, ticket)
	gt.NoError(t, app.CompleteFeedback(ctx, res))
	err = app.CompleteFeedback(ctx, res)
	gt.True(t, errors.Is(err, model.ErrTicketCompleted))
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	stats := &model.FeedbackStats{
		TotalFeedback: 2,
		AverageRating: 4.5,
		FunctionStats: map[string]model.FunctionStat{
			"question_answering": {AvgRating: 4.5, Count: 2},
		},
	}
	client := &mockAssistant{
		statsFunc: func(context.Context) (*model.FeedbackStats, error) { return stats, nil },
	}
	app, _ := setupApp(t, client)

	_, err := app.BeginStats()
	gt.Error(t, err)

	gt.NoError(t, app.Select(model.ViewFeedbackAnalytics))
	gt.V(t, app.Analytics().State).Equal(assistant.AnalyticsIdle)

	an, err := app.RefreshStats(ctx)
	gt.NoError(t, err)
	gt.V(t, an.State).Equal(assistant.AnalyticsReady)
	gt.V(t, an.Stats).Equal(stats)

	client.statsFunc = func(context.Context) (*model.FeedbackStats, error) {
		return nil, &adapter.APIError{Op: adapter.OpFeedbackStats, Message: "Failed to get feedback stats"}
	}
	an, err = app.RefreshStats(ctx)
	gt.NoError(t, err)
	gt.V(t, an.State).Equal(assistant.AnalyticsFailed)
	gt.V(t, an.Err).Equal("Failed to get feedback stats")
}

func TestAnalyticsLateResultDiscarded(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{
		statsFunc: func(context.Context) (*model.FeedbackStats, error) {
			return &model.FeedbackStats{NoData: true, Message: "No feedback data available yet."}, nil
		},
	}
	app, _ := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewFeedbackAnalytics))
	ticket, err := app.BeginStats()
	gt.NoError(t, err)
	_, err = app.BeginStats()
	gt.True(t, errors.Is(err, model.ErrRequestInFlight))

	res := app.DoStats(ctx, ticket)
	app.Back()
	gt.NoError(t, app.Select(model.ViewFeedbackAnalytics))

	gt.False(t, app.CompleteStats(ctx, res))
	gt.V(t, app.Analytics().State).Equal(assistant.AnalyticsIdle)
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	client := &mockAssistant{queryFunc: answer("ok")}
	app, storage := setupApp(t, client)

	gt.NoError(t, app.Select(model.ViewQuestionAnswering))
	app.Panel().Style = "educational"
	app.Panel().Input = "teach me"
	_, err := app.Submit(ctx)
	gt.NoError(t, err)

	gt.True(t, app.ClearHistory(ctx).OK())
	gt.V(t, app.History().Interactions.Len()).Equal(0)

	reloaded := history.Open(ctx, storage)
	gt.V(t, reloaded.Interactions.Len()).Equal(0)
}
