package adapter

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Op names an API operation for error reporting.
type Op string

const (
	OpQuery         Op = "query"
	OpFeedback      Op = "feedback"
	OpFeedbackStats Op = "feedback_stats"
	OpHealth        Op = "health"
	OpStyles        Op = "styles"
	OpRemoteHistory Op = "remote_history"
)

var fallbackMessages = map[Op]string{
	OpQuery:         "API request failed",
	OpFeedback:      "Failed to submit feedback",
	OpFeedbackStats: "Failed to get feedback stats",
	OpHealth:        "Backend is not reachable",
	OpStyles:        "Failed to get styles",
	OpRemoteHistory: "Failed to get query history",
}

// APIError is the single human-readable failure of an API call. Transport
// errors, timeouts and non-2xx responses all end up here.
type APIError struct {
	Op         Op
	StatusCode int
	Message    string

	cause error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// fail builds the APIError for op. The underlying cause stays reachable
// through Unwrap for the logger.
func (c *AssistantClient) fail(cause error, op Op, status int, resp *envelope) error {
	apiErr := &APIError{
		Op:         op,
		StatusCode: status,
		Message:    messageFor(op, resp),
		cause:      cause,
	}

	return goerr.Wrap(apiErr, "API call failed",
		goerr.V("op", op),
		goerr.V("status", status),
		goerr.V("base_url", c.baseURL),
	)
}

func messageFor(op Op, resp *envelope) string {
	if resp != nil {
		switch op {
		case OpFeedback:
			// the body is ignored; feedback failures are always reported the same way
		case OpQuery:
			if resp.Message != "" {
				return resp.Message
			}
			if resp.Error != "" {
				return resp.Error
			}
		default:
			if resp.Error != "" {
				return resp.Error
			}
		}
	}
	return fallbackMessages[op]
}

// UserMessage returns the message to show for an error returned by Assistant.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Unexpected error: " + err.Error()
}
