package model

import (
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidRating = goerr.New("rating must be between 1 and 5")
)

const (
	MinRating = 1
	MaxRating = 5
)

// FeedbackSubmission is sent once per displayed response. It is not kept on
// the client after submission.
type FeedbackSubmission struct {
	FunctionType FunctionType `json:"function_type"`
	Query        string       `json:"query"`
	Response     string       `json:"response"`
	Rating       int          `json:"rating"`
	Suggestions  string       `json:"suggestions"`
}

// ValidateRating rejects the unset rating (0) and anything outside 1..5.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return goerr.Wrap(ErrInvalidRating, "invalid rating", goerr.V("rating", rating))
	}
	return nil
}

// Validate checks if the submission can be sent
func (f *FeedbackSubmission) Validate() error {
	if err := ValidateRating(f.Rating); err != nil {
		return err
	}
	if err := f.FunctionType.Validate(); err != nil {
		return err
	}
	return nil
}

// FunctionStat is the backend-computed aggregate for one function type.
type FunctionStat struct {
	AvgRating float64 `json:"avg_rating"`
	Count     int     `json:"count"`
}

// FeedbackStats is the aggregate returned by the backend. When NoData is true
// only Message is meaningful.
type FeedbackStats struct {
	NoData        bool                    `json:"-"`
	Message       string                  `json:"message,omitempty"`
	TotalFeedback int                     `json:"total_feedback"`
	AverageRating float64                 `json:"average_rating"`
	FunctionStats map[string]FunctionStat `json:"function_stats"`
}

// NamedFunctionStat pairs a function identifier with its stat.
type NamedFunctionStat struct {
	Function string
	FunctionStat
}

// SortedFunctionStats returns the per-function stats in menu order, followed
// by any function the client does not know about in lexical order.
func (s *FeedbackStats) SortedFunctionStats() []NamedFunctionStat {
	rank := make(map[string]int, len(functionSpecs))
	for i, spec := range functionSpecs {
		rank[string(spec.Type)] = i
	}

	out := make([]NamedFunctionStat, 0, len(s.FunctionStats))
	for name, stat := range s.FunctionStats {
		out = append(out, NamedFunctionStat{Function: name, FunctionStat: stat})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iKnown := rank[out[i].Function]
		rj, jKnown := rank[out[j].Function]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i].Function < out[j].Function
		}
	})
	return out
}

// RatingPercent converts an average rating into a bar width percentage.
func RatingPercent(avg float64) float64 {
	return avg / MaxRating * 100
}
