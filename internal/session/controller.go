package session

import (
	"time"

	"github.com/oszuidwest/cranecheck/internal/checklist"
)

// CompletionFunc is called once each time a session reaches the result step.
type CompletionFunc func(Report)

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCompletionHook registers a function called when the quiz completes.
func WithCompletionHook(fn CompletionFunc) Option {
	return func(c *Controller) {
		c.onComplete = fn
	}
}

// Controller drives one inspection session over one checklist.
// It is not safe for concurrent use; callers serialize access.
type Controller struct {
	cl         *checklist.Checklist
	state      State
	now        func() time.Time
	onComplete CompletionFunc
}

// NewController returns a controller on the login step.
func NewController(cl *checklist.Checklist, opts ...Option) *Controller {
	c := &Controller{
		cl:    cl,
		state: Initial(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitIdentity validates the identity fields and starts the quiz.
// On error the session stays on its current step.
func (c *Controller) SubmitIdentity(fields map[string]string) error {
	next, err := SubmitIdentity(c.cl, c.state, fields, c.now())
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Answer records a response for the current question.
func (c *Controller) Answer(response string) error {
	next, err := Answer(c.cl, c.state, response, c.now())
	if err != nil {
		return err
	}
	completed := c.state.Step == StepQuiz && next.Step == StepResult
	c.state = next

	if completed && c.onComplete != nil {
		c.onComplete(NewReport(c.cl, c.state))
	}
	return nil
}

// Restart resets the session to the login step.
func (c *Controller) Restart() {
	c.state = Restart(c.state)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state.clone()
}

// Step returns the current step.
func (c *Controller) Step() Step {
	return c.state.Step
}

// Checklist returns the checklist being walked.
func (c *Controller) Checklist() *checklist.Checklist {
	return c.cl
}

// Progress returns the 1-based position of the current question and the
// total number of questions.
func (c *Controller) Progress() (position, total int) {
	return c.state.Index + 1, c.cl.Len()
}

// CurrentQuestion returns the question awaiting an answer. It reports false
// outside the quiz step.
func (c *Controller) CurrentQuestion() (checklist.Question, bool) {
	if c.state.Step != StepQuiz {
		return checklist.Question{}, false
	}
	return c.cl.Question(c.state.Index)
}

// Report returns the summary of a completed session.
func (c *Controller) Report() (Report, bool) {
	if c.state.Step != StepResult {
		return Report{}, false
	}
	return NewReport(c.cl, c.state), true
}
