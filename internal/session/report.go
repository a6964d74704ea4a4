package session

import (
	"time"

	"github.com/oszuidwest/cranecheck/internal/checklist"
)

// IdentityValue is an identity field paired with its label for display.
type IdentityValue struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report summarizes a finished inspection.
type Report struct {
	ID             string           `json:"id"`
	ChecklistID    string           `json:"checklist_id"`
	ChecklistTitle string           `json:"checklist_title"`
	Identity       []IdentityValue  `json:"identity"`
	Answers        []Record         `json:"answers"`
	Failed         []Record         `json:"failed,omitempty"`
	Verdict        checklist.Status `json:"verdict"`
	StartedAt      time.Time        `json:"started_at,omitzero"`
	CompletedAt    time.Time        `json:"completed_at,omitzero"`
}

// NewReport builds a report from a checklist and a session state.
func NewReport(cl *checklist.Checklist, s State) Report {
	identity := make([]IdentityValue, 0, len(cl.Identity))
	for _, f := range cl.Identity {
		identity = append(identity, IdentityValue{
			Key:   f.Key,
			Label: f.DisplayName(),
			Value: s.Identity[f.Key],
		})
	}

	answers := make([]Record, len(s.Answers))
	copy(answers, s.Answers)

	return Report{
		ID:             s.ID,
		ChecklistID:    cl.ID,
		ChecklistTitle: cl.Title,
		Identity:       identity,
		Answers:        answers,
		Failed:         FailedAnswers(s),
		Verdict:        Verdict(s),
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
}

// Passed reports whether the inspection passed.
func (r Report) Passed() bool {
	return r.Verdict == checklist.StatusPass
}

// Inspector returns the "name" identity value, or the first non-empty
// identity value when the checklist has no name field.
func (r Report) Inspector() string {
	for _, v := range r.Identity {
		if v.Key == "name" {
			return v.Value
		}
	}
	for _, v := range r.Identity {
		if v.Value != "" {
			return v.Value
		}
	}
	return ""
}
