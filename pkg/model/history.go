package model

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type RecordID string

// NewRecordID generates a time-ordered, best-effort unique RecordID
func NewRecordID() RecordID {
	id, err := uuid.NewV7()
	if err != nil {
		return RecordID(uuid.New().String())
	}
	return RecordID(id.String())
}

// InteractionRecord is one completed exchange kept in the session history.
// Records are immutable once created.
type InteractionRecord struct {
	ID        RecordID `json:"id"`
	Timestamp string   `json:"timestamp"`
	Function  string   `json:"function"`
	Style     string   `json:"style"`
	Query     string   `json:"query"`
	Response  string   `json:"response"`
}

// NewInteractionRecord fills the defaults applied to every history entry.
func NewInteractionRecord(function, style, query, response string, now time.Time) InteractionRecord {
	if function == "" {
		function = "Unknown Function"
	}
	if style == "" {
		style = "default"
	}
	if query == "" {
		query = "No query provided"
	}
	if response == "" {
		response = "No response received"
	}

	return InteractionRecord{
		ID:        NewRecordID(),
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Function:  function,
		Style:     style,
		Query:     query,
		Response:  response,
	}
}

// Time parses Timestamp. Zero time and false are returned for malformed values.
func (r InteractionRecord) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one side of an exchange kept in the chat history log.
type ChatMessage struct {
	ID        RecordID     `json:"id"`
	Role      Role         `json:"role"`
	Function  FunctionType `json:"function_type"`
	Content   string       `json:"content"`
	Timestamp string       `json:"timestamp"`
}

// NewChatMessage creates a chat message stamped with now.
func NewChatMessage(role Role, function FunctionType, content string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        NewRecordID(),
		Role:      role,
		Function:  function,
		Content:   content,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// PreviewLength is the number of characters kept by Preview.
const PreviewLength = 100

// Preview cuts text to max characters and appends "..." when something was cut.
func Preview(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}
