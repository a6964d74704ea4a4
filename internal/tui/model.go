package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// maxWidth bounds the rendered box.
const maxWidth = 80

// Model is the Bubble Tea model of one inspection session.
type Model struct {
	ctrl     *session.Controller
	inputs   []textinput.Model
	focus    int
	selected int
	errs     []string
	width    int
}

// New returns a model on the controller's current step.
func New(ctrl *session.Controller) Model {
	cl := ctrl.Checklist()
	inputs := make([]textinput.Model, len(cl.Identity))
	for i, f := range cl.Identity {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = f.DisplayName()
		ti.CharLimit = 100
		ti.Width = maxWidth - 20
		inputs[i] = ti
	}
	m := Model{ctrl: ctrl, inputs: inputs, width: maxWidth}
	m.focusInput(0)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = min(msg.Width, maxWidth)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == keyCtrlC {
			return m, tea.Quit
		}
		switch m.ctrl.Step() {
		case session.StepLogin:
			return m.updateLogin(msg)
		case session.StepQuiz:
			return m.updateQuiz(msg)
		case session.StepResult:
			return m.updateResult(msg)
		}
	}

	if m.ctrl.Step() == session.StepLogin {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyTab, keyDown:
		m.focusInput((m.focus + 1) % len(m.inputs))
		return m, nil
	case keyShiftTab, keyUp:
		m.focusInput((m.focus - 1 + len(m.inputs)) % len(m.inputs))
		return m, nil
	case keyEnter:
		return m.submitIdentity()
	}
	return m.updateInputs(msg)
}

func (m Model) submitIdentity() (tea.Model, tea.Cmd) {
	cl := m.ctrl.Checklist()
	fields := make(map[string]string, len(cl.Identity))
	for i, f := range cl.Identity {
		fields[f.Key] = m.inputs[i].Value()
	}

	err := m.ctrl.SubmitIdentity(fields)
	var verr *session.ValidationError
	switch {
	case errors.As(err, &verr):
		m.errs = nil
		for _, f := range verr.Fields {
			m.errs = append(m.errs, f.Message)
		}
		for i, f := range cl.Identity {
			if f.Key == verr.Fields[0].Field {
				m.focusInput(i)
				break
			}
		}
		return m, nil
	case err != nil:
		m.errs = []string{err.Error()}
		return m, nil
	}

	m.errs = nil
	m.selected = 0
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	return m, nil
}

func (m Model) updateQuiz(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyLeft, "h", "1":
		m.selected = 0
	case keyRight, "l", "2":
		m.selected = 1
	case keyEnter:
		options := m.ctrl.Checklist().Options()
		if err := m.ctrl.Answer(options[m.selected]); err != nil {
			m.errs = []string{err.Error()}
			return m, nil
		}
		m.errs = nil
		m.selected = 0
	case "r":
		return m.restart()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		return m.restart()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) restart() (tea.Model, tea.Cmd) {
	m.ctrl.Restart()
	m.errs = nil
	m.selected = 0
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.focusInput(0)
	return m, textinput.Blink
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// focusInput moves keyboard focus to input i.
func (m *Model) focusInput(i int) {
	if len(m.inputs) == 0 {
		return
	}
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	m.inputs[i].Focus()
}

// View renders the current step.
func (m Model) View() string {
	cl := m.ctrl.Checklist()

	var body string
	switch m.ctrl.Step() {
	case session.StepLogin:
		body = m.viewLogin(cl)
	case session.StepQuiz:
		body = m.viewQuiz(cl)
	case session.StepResult:
		body = m.viewResult()
	}

	if len(m.errs) > 0 {
		lines := make([]string, len(m.errs))
		for i, e := range m.errs {
			lines[i] = errorStyle.Render("✘ " + e)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", strings.Join(lines, "\n"))
	}

	return boxStyle.Width(m.width).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(cl.Title), "", body),
	)
}

func (m Model) viewLogin(cl *checklist.Checklist) string {
	var b strings.Builder
	for i, f := range cl.Identity {
		label := f.DisplayName()
		if f.Required {
			label += " *"
		}
		marker := "  "
		if i == m.focus {
			marker = titleStyle.Render("▸ ")
		}
		fmt.Fprintf(&b, "%s%s\n  %s\n\n", marker, label, m.inputs[i].View())
	}
	b.WriteString(dimStyle.Render("tab: next field • enter: start • ctrl+c: quit"))
	return b.String()
}

func (m Model) viewQuiz(cl *checklist.Checklist) string {
	q, ok := m.ctrl.CurrentQuestion()
	if !ok {
		return ""
	}
	pos, total := m.ctrl.Progress()

	buttons := make([]string, 0, 2)
	for i, option := range cl.Options() {
		style := buttonStyle
		if i == m.selected {
			style = selectedButtonStyle
		}
		buttons = append(buttons, style.Render(fmt.Sprintf("%d  %s", i+1, option)))
	}

	parts := []string{
		dimStyle.Render(fmt.Sprintf("%d / %d", pos, total)),
		"",
		q.Text,
	}
	if q.Image != "" {
		parts = append(parts, dimStyle.Render("[image: "+q.Image+"]"))
	}
	parts = append(parts,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, buttons...),
		"",
		dimStyle.Render("←/→ or 1/2: choose • enter: confirm • r: restart • q: quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewResult() string {
	report, ok := m.ctrl.Report()
	if !ok {
		return ""
	}

	verdict := verdictPassStyle.Render("PASS")
	if !report.Passed() {
		verdict = verdictFailStyle.Render("FAIL")
	}

	var identity strings.Builder
	for _, iv := range report.Identity {
		fmt.Fprintf(&identity, "%s: %s\n", iv.Label, iv.Value)
	}
	identity.WriteString(dimStyle.Render(util.FormatHuman(report.CompletedAt)))

	rows := make([][]string, len(report.Answers))
	for i, a := range report.Answers {
		mark := "✔"
		if a.Status == checklist.StatusFail {
			mark = "✘"
		}
		rows[i] = []string{a.Question, a.Response, mark}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("Item", "Answer", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return titleStyle.Padding(0, 1)
			}
			if report.Answers[row].Status == checklist.StatusFail {
				return failStyle.Padding(0, 1)
			}
			if col == 2 {
				return passStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	return lipgloss.JoinVertical(lipgloss.Left,
		verdict,
		"",
		identity.String(),
		"",
		t.Render(),
		"",
		dimStyle.Render("r: restart • q: quit"),
	)
}
