// Package checklist defines inspection checklists: the ordered questions, the
// identity fields collected before the walk starts and the mapping of the two
// response literals to pass and fail.
package checklist

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the derived outcome of a single answer or a whole inspection.
type Status string

const (
	// StatusPass marks an answer (or inspection) without defects.
	StatusPass Status = "pass"
	// StatusFail marks an answer (or inspection) that needs remediation.
	StatusFail Status = "fail"
)

// ErrInvalid is returned when a checklist definition fails validation.
var ErrInvalid = errors.New("invalid checklist")

// Question is a single yes/no item. Questions are identified by position.
type Question struct {
	Text  string `yaml:"text" json:"text"`
	Image string `yaml:"image,omitempty" json:"image,omitempty"`
}

// IdentityField is a free-text input collected on the login step.
type IdentityField struct {
	Key      string `yaml:"key" json:"key"`
	Label    string `yaml:"label" json:"label"`
	Required bool   `yaml:"required" json:"required"`
}

// Responses holds the two button literals. Each variant decides which
// literal means pass; some variants phrase questions as defects and map
// the affirmative literal to fail.
type Responses struct {
	Pass string `yaml:"pass" json:"pass"`
	Fail string `yaml:"fail" json:"fail"`
}

// Checklist is one checklist variant. It is immutable once loaded.
type Checklist struct {
	ID        string          `yaml:"id" json:"id"`
	Title     string          `yaml:"title" json:"title"`
	Identity  []IdentityField `yaml:"identity" json:"identity"`
	Responses Responses       `yaml:"responses" json:"responses"`
	Questions []Question      `yaml:"questions" json:"questions"`
}

// Validate reports every structural problem of the definition at once.
func (c *Checklist) Validate() error {
	var problems []string

	if strings.TrimSpace(c.ID) == "" {
		problems = append(problems, "id is required")
	}

	pass := strings.TrimSpace(c.Responses.Pass)
	fail := strings.TrimSpace(c.Responses.Fail)
	switch {
	case pass == "" || fail == "":
		problems = append(problems, "responses.pass and responses.fail are required")
	case pass == fail:
		problems = append(problems, fmt.Sprintf("responses.pass and responses.fail must differ (both %q)", pass))
	}

	if len(c.Identity) == 0 {
		problems = append(problems, "at least one identity field is required")
	}
	seen := make(map[string]bool, len(c.Identity))
	for i, f := range c.Identity {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			problems = append(problems, fmt.Sprintf("identity[%d]: key is required", i))
			continue
		}
		if seen[key] {
			problems = append(problems, fmt.Sprintf("identity[%d]: duplicate key %q", i, key))
		}
		seen[key] = true
	}

	if len(c.Questions) == 0 {
		problems = append(problems, "at least one question is required")
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Text) == "" {
			problems = append(problems, fmt.Sprintf("questions[%d]: text is required", i))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	name := c.ID
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Errorf("%w %s: %s", ErrInvalid, name, strings.Join(problems, "; "))
}

// Len returns the number of questions.
func (c *Checklist) Len() int {
	return len(c.Questions)
}

// Question returns the question at index i.
func (c *Checklist) Question(i int) (Question, bool) {
	if i < 0 || i >= len(c.Questions) {
		return Question{}, false
	}
	return c.Questions[i], true
}

// StatusOf maps a response literal to its status. The second result is
// false when the literal is neither the pass nor the fail value.
func (c *Checklist) StatusOf(response string) (Status, bool) {
	switch response {
	case c.Responses.Pass:
		return StatusPass, true
	case c.Responses.Fail:
		return StatusFail, true
	default:
		return "", false
	}
}

// Options returns the button literals, pass first.
func (c *Checklist) Options() []string {
	return []string{c.Responses.Pass, c.Responses.Fail}
}

// DisplayName returns the label of the field, falling back to its key.
func (f IdentityField) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}
