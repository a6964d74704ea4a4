// Package types provides shared type definitions used across the checklist service.
package types

import "encoding/json"

// WebSocket command types sent by clients.
const (
	CommandState          = "state"
	CommandSubmitIdentity = "submit_identity"
	CommandAnswer         = "answer"
	CommandRestart        = "restart"
)

// WebSocket message types sent by the server.
const (
	MessageState = "state"
	MessageError = "error"
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSAnswerData is the payload of an answer command.
type WSAnswerData struct {
	Response string `json:"response"`
}

// WSError reports a rejected command to the client.
type WSError struct {
	Type    string   `json:"type"`
	Command string   `json:"command,omitempty"`
	Error   string   `json:"error"`
	Invalid []string `json:"invalid_fields,omitempty"`
}

// QuestionView is the client-facing form of the current question.
type QuestionView struct {
	Text     string `json:"text"`
	Image    string `json:"image,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// AnswerView is one row of the results table.
type AnswerView struct {
	Question string `json:"question"`
	Response string `json:"response"`
	Status   string `json:"status"`
}

// FieldView describes an identity input and its current value.
type FieldView struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Value    string `json:"value"`
	Invalid  bool   `json:"invalid,omitzero"`
}

// SessionView is the complete client-facing state of a session. The HTML
// templates and the WebSocket protocol both render from it.
type SessionView struct {
	Type        string        `json:"type"`
	Checklist   string        `json:"checklist"`
	Title       string        `json:"title"`
	Step        string        `json:"step"`
	Fields      []FieldView   `json:"fields,omitempty"`
	Position    int           `json:"position,omitzero"`
	Total       int           `json:"total"`
	Percent     int           `json:"percent,omitzero"`
	Question    *QuestionView `json:"question,omitempty"`
	Options     []string      `json:"options"`
	Answers     []AnswerView  `json:"answers"`
	Verdict     string        `json:"verdict,omitzero"`
	Inspector   string        `json:"inspector,omitzero"`
	CompletedAt string        `json:"completed_at,omitzero"`
	Version     VersionInfo   `json:"version"`
}

// AlertLogEntry is one line of the failed-inspection alert log.
type AlertLogEntry struct {
	Timestamp    string   `json:"timestamp"`
	Event        string   `json:"event"`
	InspectionID string   `json:"inspection_id,omitempty"`
	Checklist    string   `json:"checklist,omitempty"`
	Inspector    string   `json:"inspector,omitempty"`
	FailedItems  []string `json:"failed_items,omitempty"`
}

// VersionInfo contains version information for display.
type VersionInfo struct {
	Current     string `json:"current"`
	Latest      string `json:"latest,omitzero"`
	UpdateAvail bool   `json:"update_available"`
	Commit      string `json:"commit,omitzero"`
	BuildTime   string `json:"build_time,omitzero"`
}
