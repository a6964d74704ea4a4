// Package session implements the inspection walk: login, quiz, result.
//
// Transitions are plain functions that take the current State and return the
// next one without mutating their input. A Controller wraps one checklist and
// one State for callers that prefer an object per inspector.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// Step is the page the session is on.
type Step string

const (
	// StepLogin collects identity fields.
	StepLogin Step = "login"
	// StepQuiz walks the questions.
	StepQuiz Step = "quiz"
	// StepResult shows the summary table.
	StepResult Step = "result"
)

// maxFieldLength bounds identity input.
const maxFieldLength = 100

var (
	// ErrWrongStep is returned when an action is not valid on the current step.
	ErrWrongStep = errors.New("action not allowed on current step")
	// ErrUnknownResponse is returned for a response that is neither the pass
	// nor the fail literal of the checklist.
	ErrUnknownResponse = errors.New("unknown response")
)

// ValidationError lists the identity fields that blocked the login step.
type ValidationError struct {
	Fields []*util.ValidationError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid identity: " + strings.Join(msgs, "; ")
}

// FieldKeys returns the keys of the rejected fields in checklist order.
func (e *ValidationError) FieldKeys() []string {
	keys := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		keys[i] = f.Field
	}
	return keys
}

// Record is one recorded response.
type Record struct {
	Question string           `json:"question"`
	Response string           `json:"response"`
	Status   checklist.Status `json:"status"`
}

// State is the complete state of one inspection session.
type State struct {
	ID          string            `json:"id,omitempty"`
	Step        Step              `json:"step"`
	Identity    map[string]string `json:"identity,omitempty"`
	Index       int               `json:"index"`
	Answers     []Record          `json:"answers"`
	StartedAt   time.Time         `json:"started_at,omitzero"`
	CompletedAt time.Time         `json:"completed_at,omitzero"`
}

// Initial returns the state of a fresh session.
func Initial() State {
	return State{
		Step:    StepLogin,
		Answers: []Record{},
	}
}

// clone copies the reference fields so transitions never share backing
// storage with their input.
func (s State) clone() State {
	out := s
	if s.Identity != nil {
		out.Identity = make(map[string]string, len(s.Identity))
		for k, v := range s.Identity {
			out.Identity[k] = v
		}
	}
	out.Answers = make([]Record, len(s.Answers), len(s.Answers)+1)
	copy(out.Answers, s.Answers)
	return out
}

// SubmitIdentity validates the identity fields against the checklist and
// starts the quiz. Values are stored trimmed; values carrying HTML tags are
// rejected. Fields the checklist does not declare are ignored.
func SubmitIdentity(cl *checklist.Checklist, s State, fields map[string]string, now time.Time) (State, error) {
	if s.Step != StepLogin {
		return s, fmt.Errorf("%w: submit identity on %s", ErrWrongStep, s.Step)
	}

	identity := make(map[string]string, len(cl.Identity))
	var invalid []*util.ValidationError
	for _, f := range cl.Identity {
		value := strings.TrimSpace(fields[f.Key])
		if f.Required {
			if verr := util.ValidateRequired(f.Key, value); verr != nil {
				verr.Message = fmt.Sprintf("請輸入%s才能開始！", f.DisplayName())
				invalid = append(invalid, verr)
				continue
			}
		}
		if verr := util.ValidateMaxLength(f.Key, value, maxFieldLength); verr != nil {
			verr.Message = fmt.Sprintf("%s不可超過 %d 個字", f.DisplayName(), maxFieldLength)
			invalid = append(invalid, verr)
			continue
		}
		if util.HasMarkup(value) {
			invalid = append(invalid, &util.ValidationError{
				Field:   f.Key,
				Message: fmt.Sprintf("%s不可包含 HTML 標記", f.DisplayName()),
			})
			continue
		}
		identity[f.Key] = value
	}
	if len(invalid) > 0 {
		return s, &ValidationError{Fields: invalid}
	}

	next := s.clone()
	next.ID = uuid.NewString()
	next.Step = StepQuiz
	next.Identity = identity
	next.Index = 0
	next.Answers = []Record{}
	next.StartedAt = now
	next.CompletedAt = time.Time{}
	return next, nil
}

// Answer records a response for the current question. After the last
// question the session moves to the result step and the index stays on the
// last question.
func Answer(cl *checklist.Checklist, s State, response string, now time.Time) (State, error) {
	if s.Step != StepQuiz {
		return s, fmt.Errorf("%w: answer on %s", ErrWrongStep, s.Step)
	}
	q, ok := cl.Question(s.Index)
	if !ok {
		return s, fmt.Errorf("question index %d out of range [0, %d)", s.Index, cl.Len())
	}
	response = strings.TrimSpace(response)
	status, ok := cl.StatusOf(response)
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownResponse, response)
	}

	next := s.clone()
	next.Answers = append(next.Answers, Record{
		Question: q.Text,
		Response: response,
		Status:   status,
	})

	if next.Index < cl.Len()-1 {
		next.Index++
	} else {
		next.Step = StepResult
		next.CompletedAt = now
	}
	return next, nil
}

// Restart returns the initial state. It is valid from every step.
func Restart(State) State {
	return Initial()
}

// Verdict aggregates the recorded answers: fail if any answer failed.
func Verdict(s State) checklist.Status {
	for _, a := range s.Answers {
		if a.Status == checklist.StatusFail {
			return checklist.StatusFail
		}
	}
	return checklist.StatusPass
}

// FailedAnswers returns the answers with the fail status, in order.
func FailedAnswers(s State) []Record {
	var failed []Record
	for _, a := range s.Answers {
		if a.Status == checklist.StatusFail {
			failed = append(failed, a)
		}
	}
	return failed
}
