package model

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrUnknownFunction = goerr.New("unknown function type")
	ErrUnknownStyle    = goerr.New("unknown style")
)

// FunctionType identifies one of the text functions offered by the backend.
type FunctionType string

const (
	FunctionQuestionAnswering  FunctionType = "question_answering"
	FunctionTextSummarization  FunctionType = "text_summarization"
	FunctionCreativeGeneration FunctionType = "creative_generation"
)

// Style is a response style identifier sent with a query.
type Style string

// StyleOption describes one selectable style of a function.
type StyleOption struct {
	ID          Style  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// FunctionSpec is the static description of a function panel.
type FunctionSpec struct {
	Type        FunctionType
	Label       string
	Description string
	InputPrompt string
	// ValidationMessage is shown when the style or text is missing.
	ValidationMessage string
	ResponseTitle     string
	Styles            []StyleOption
}

var functionSpecs = []FunctionSpec{
	{
		Type:              FunctionQuestionAnswering,
		Label:             "Question Answering",
		Description:       "Get factual information and explanations",
		InputPrompt:       "What would you like to know?",
		ValidationMessage: "Please select a style and enter your question",
		ResponseTitle:     "AI Response",
		Styles: []StyleOption{
			{ID: "factual", Name: "Factual & Direct", Description: "Clear, direct answers with facts"},
			{ID: "analytical", Name: "Analytical & Detailed", Description: "In-depth analysis with reasoning"},
			{ID: "educational", Name: "Educational & Teaching", Description: "Learning-focused explanations"},
		},
	},
	{
		Type:              FunctionTextSummarization,
		Label:             "Text Summarization",
		Description:       "Summarize articles, documents, or content",
		InputPrompt:       "Enter the text you want summarized",
		ValidationMessage: "Please select a style and enter text to summarize",
		ResponseTitle:     "Summary",
		Styles: []StyleOption{
			{ID: "concise", Name: "Concise Paragraph", Description: "Brief, well-structured summary"},
			{ID: "bullet_points", Name: "Bullet Points", Description: "Key points in bullet format"},
			{ID: "executive", Name: "Executive Summary", Description: "Business-focused summary"},
		},
	},
	{
		Type:              FunctionCreativeGeneration,
		Label:             "Creative Generation",
		Description:       "Generate stories, essays, and creative content",
		InputPrompt:       "Describe what you'd like me to create",
		ValidationMessage: "Please select a style and describe what you want to create",
		ResponseTitle:     "Creative Content",
		Styles: []StyleOption{
			{ID: "storytelling", Name: "Creative Storytelling", Description: "Engaging narratives and stories"},
			{ID: "professional", Name: "Professional Content", Description: "Business and formal writing"},
			{ID: "innovative", Name: "Innovative & Unique", Description: "Creative and original approaches"},
		},
	},
}

// Functions returns all function specs in menu order.
func Functions() []FunctionSpec {
	return functionSpecs
}

// ParseFunctionType accepts the wire identifier, the display label and a few
// short aliases.
func ParseFunctionType(s string) (FunctionType, error) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), "_")
	switch key {
	case "question_answering", "qa", "ask":
		return FunctionQuestionAnswering, nil
	case "text_summarization", "summarize", "summary":
		return FunctionTextSummarization, nil
	case "creative_generation", "create", "creative":
		return FunctionCreativeGeneration, nil
	default:
		return "", goerr.Wrap(ErrUnknownFunction, "failed to parse function type", goerr.V("input", s))
	}
}

// Spec returns the static description of the function.
func (f FunctionType) Spec() (FunctionSpec, error) {
	for _, spec := range functionSpecs {
		if spec.Type == f {
			return spec, nil
		}
	}
	return FunctionSpec{}, goerr.Wrap(ErrUnknownFunction, "no such function", goerr.V("function", f))
}

// Label returns the human readable name, e.g. "Question Answering".
func (f FunctionType) Label() string {
	if spec, err := f.Spec(); err == nil {
		return spec.Label
	}
	return FormatFunctionName(string(f))
}

// Validate checks if the function type is known
func (f FunctionType) Validate() error {
	_, err := f.Spec()
	return err
}

// Style returns the style option of this function with the given id.
func (s FunctionSpec) Style(id Style) (StyleOption, error) {
	for _, opt := range s.Styles {
		if opt.ID == id {
			return opt, nil
		}
	}
	return StyleOption{}, goerr.Wrap(ErrUnknownStyle, "style is not available for function",
		goerr.V("function", s.Type),
		goerr.V("style", id),
	)
}

// StyleAt returns the style at 1-based position n, as used by numbered menus.
func (s FunctionSpec) StyleAt(n int) (StyleOption, bool) {
	if n < 1 || n > len(s.Styles) {
		return StyleOption{}, false
	}
	return s.Styles[n-1], true
}

// FormatFunctionName turns a wire identifier such as "text_summarization"
// into "Text Summarization". Already formatted labels pass through.
func FormatFunctionName(name string) string {
	if name == "" {
		return "Unknown Function"
	}
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToTitle(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
