package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/session"
)

func testChecklist() *checklist.Checklist {
	return &checklist.Checklist{
		ID:    "test",
		Title: "Crane check",
		Identity: []checklist.IdentityField{
			{Key: "name", Label: "Name", Required: true},
			{Key: "contractor", Label: "Contractor"},
		},
		Responses: checklist.Responses{Pass: "yes", Fail: "no"},
		Questions: []checklist.Question{
			{Text: "Outriggers extended?"},
			{Text: "Hook latch intact?"},
		},
	}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	right = tea.KeyMsg{Type: tea.KeyRight}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
)

func TestLoginRequiresName(t *testing.T) {
	ctrl := session.NewController(testChecklist())
	m := New(ctrl)

	m, _ = send(t, m, tab, runes("ACME"), enter)
	if ctrl.Step() != session.StepLogin {
		t.Fatalf("step = %q, want login with blank name", ctrl.Step())
	}
	if len(m.errs) != 1 {
		t.Fatalf("errs = %v, want one validation message", m.errs)
	}
	if m.focus != 0 {
		t.Errorf("focus = %d, want the invalid name field", m.focus)
	}
	if !strings.Contains(m.View(), "✘") {
		t.Error("view should show the validation error")
	}

	m, _ = send(t, m, runes("Chen"), enter)
	if ctrl.Step() != session.StepQuiz {
		t.Fatalf("step = %q, want quiz", ctrl.Step())
	}
	if m.errs != nil {
		t.Errorf("errs not cleared: %v", m.errs)
	}
	st := ctrl.State()
	if st.Identity["name"] != "Chen" || st.Identity["contractor"] != "ACME" {
		t.Errorf("identity = %v", st.Identity)
	}
}

func TestQuizSelectionAndResult(t *testing.T) {
	ctrl := session.NewController(testChecklist())
	m := New(ctrl)
	m, _ = send(t, m, runes("Chen"), enter)

	if !strings.Contains(m.View(), "Outriggers extended?") {
		t.Fatal("quiz view should show the first question")
	}

	// Default selection is the pass literal.
	m, _ = send(t, m, enter)
	// Select the fail literal with the arrow key, then with "1" go back and "2" again.
	m, _ = send(t, m, right, runes("1"), runes("2"), enter)

	if ctrl.Step() != session.StepResult {
		t.Fatalf("step = %q, want result", ctrl.Step())
	}
	report, _ := ctrl.Report()
	if report.Passed() {
		t.Error("verdict should be fail")
	}
	if got := report.Answers[1].Response; got != "no" {
		t.Errorf("second response = %q, want no", got)
	}

	view := m.View()
	for _, want := range []string{"FAIL", "Chen", "Hook latch intact?"} {
		if !strings.Contains(view, want) {
			t.Errorf("result view missing %q", want)
		}
	}
}

func TestRestartClearsInputs(t *testing.T) {
	ctrl := session.NewController(testChecklist())
	m := New(ctrl)
	m, _ = send(t, m, runes("Chen"), enter, enter, enter)
	if ctrl.Step() != session.StepResult {
		t.Fatalf("step = %q, want result", ctrl.Step())
	}

	m, _ = send(t, m, runes("r"))
	if ctrl.Step() != session.StepLogin {
		t.Fatalf("step = %q after restart, want login", ctrl.Step())
	}
	if got := ctrl.State(); len(got.Answers) != 0 || got.Index != 0 {
		t.Errorf("state not reset: %+v", got)
	}
	if m.inputs[0].Value() != "" || m.focus != 0 {
		t.Errorf("inputs not reset: value=%q focus=%d", m.inputs[0].Value(), m.focus)
	}
}

func TestQuitKeys(t *testing.T) {
	ctrl := session.NewController(testChecklist())
	m := New(ctrl)

	// q is text on the login form.
	m, _ = send(t, m, runes("q"))
	if m.inputs[0].Value() != "q" {
		t.Errorf("input = %q, want q", m.inputs[0].Value())
	}

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Error("ctrl+c should return tea.Quit")
	}

	m, _ = send(t, m, enter)
	_, cmd = send(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("q in quiz should quit")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Error("q in quiz should return tea.Quit")
	}
}
