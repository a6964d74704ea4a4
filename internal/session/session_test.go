package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/oszuidwest/cranecheck/internal/checklist"
)

var fixedNow = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

func testChecklist() *checklist.Checklist {
	return &checklist.Checklist{
		ID:    "test",
		Title: "Test",
		Identity: []checklist.IdentityField{
			{Key: "name", Label: "姓名", Required: true},
			{Key: "contractor", Label: "承攬商", Required: true},
			{Key: "note", Label: "備註"},
		},
		Responses: checklist.Responses{Pass: "有", Fail: "沒有"},
		Questions: []checklist.Question{
			{Text: "Q1"},
			{Text: "Q2", Image: "q2.jpg"},
			{Text: "Q3"},
		},
	}
}

func builtins(t *testing.T) []*checklist.Checklist {
	t.Helper()
	cat, err := checklist.Builtin()
	if err != nil {
		t.Fatalf("Builtin() error: %v", err)
	}
	return cat.All()
}

func validIdentity(cl *checklist.Checklist) map[string]string {
	fields := make(map[string]string)
	for _, f := range cl.Identity {
		fields[f.Key] = "value-" + f.Key
	}
	return fields
}

func TestSubmitIdentityStartsQuiz(t *testing.T) {
	cl := testChecklist()
	s, err := SubmitIdentity(cl, Initial(), map[string]string{
		"name":       "  王小明 ",
		"contractor": " 大安吊車",
		"unknown":    "dropped",
	}, fixedNow)
	if err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	if s.Step != StepQuiz || s.Index != 0 || len(s.Answers) != 0 {
		t.Fatalf("unexpected state: %+v", s)
	}
	if s.ID == "" {
		t.Error("session ID should be assigned")
	}
	if !s.StartedAt.Equal(fixedNow) {
		t.Errorf("StartedAt = %v", s.StartedAt)
	}
	want := map[string]string{"name": "王小明", "contractor": "大安吊車", "note": ""}
	if diff := cmp.Diff(want, s.Identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
}

func TestBlankIdentityNeverAdvances(t *testing.T) {
	cl := testChecklist()
	cases := []map[string]string{
		nil,
		{},
		{"name": "", "contractor": "x"},
		{"name": "   ", "contractor": "x"},
		{"name": "x", "contractor": "\t\n"},
		{"note": "only optional"},
	}
	for _, fields := range cases {
		s, err := SubmitIdentity(cl, Initial(), fields, fixedNow)
		if err == nil {
			t.Fatalf("fields %v: expected validation error", fields)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("fields %v: error %T is not *ValidationError", fields, err)
		}
		if s.Step != StepLogin {
			t.Errorf("fields %v: step = %s, want login", fields, s.Step)
		}
		if s.Identity != nil {
			t.Errorf("fields %v: identity should not be stored", fields)
		}
	}
}

func TestValidationErrorListsAllMissingFields(t *testing.T) {
	_, err := SubmitIdentity(testChecklist(), Initial(), map[string]string{"note": "x"}, fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"name", "contractor"}, verr.FieldKeys()); diff != "" {
		t.Errorf("field keys mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitIdentityRejectsOverlongValue(t *testing.T) {
	long := make([]rune, maxFieldLength+1)
	for i := range long {
		long[i] = '字'
	}
	_, err := SubmitIdentity(testChecklist(), Initial(), map[string]string{
		"name": "x", "contractor": "y", "note": string(long),
	}, fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.FieldKeys()[0] != "note" {
		t.Fatalf("expected note to be rejected, got %v", err)
	}
}

func TestSubmitIdentityStoresTextVerbatim(t *testing.T) {
	cl := testChecklist()
	s, err := SubmitIdentity(cl, Initial(), map[string]string{
		"name": "  A<B  ", "contractor": "A & B Cranes", "note": "x > y",
	}, fixedNow)
	if err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	want := map[string]string{"name": "A<B", "contractor": "A & B Cranes", "note": "x > y"}
	if diff := cmp.Diff(want, s.Identity); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitIdentityRejectsMarkup(t *testing.T) {
	s, err := SubmitIdentity(testChecklist(), Initial(), map[string]string{
		"name": "Lee <ACME Cranes>", "contractor": "ACME",
	}, fixedNow)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"name"}, verr.FieldKeys()); diff != "" {
		t.Errorf("field keys mismatch (-want +got):\n%s", diff)
	}
	if s.Step != StepLogin {
		t.Errorf("step = %s, want login", s.Step)
	}
}

func TestSubmitIdentityOnlyFromLogin(t *testing.T) {
	cl := testChecklist()
	s := mustStart(t, cl)
	if _, err := SubmitIdentity(cl, s, validIdentity(cl), fixedNow); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("error = %v, want ErrWrongStep", err)
	}
}

func TestAllAnswersReachResult(t *testing.T) {
	for _, cl := range builtins(t) {
		t.Run(cl.ID, func(t *testing.T) {
			s := mustStart(t, cl)
			for i := range cl.Len() {
				if s.Step != StepQuiz {
					t.Fatalf("after %d answers step = %s, want quiz", i, s.Step)
				}
				if s.Index != i {
					t.Fatalf("index = %d, want %d", s.Index, i)
				}
				var err error
				s, err = Answer(cl, s, cl.Responses.Pass, fixedNow)
				if err != nil {
					t.Fatalf("Answer %d: %v", i, err)
				}
				if s.Index < 0 || s.Index >= cl.Len() {
					t.Fatalf("index %d left [0, %d)", s.Index, cl.Len())
				}
			}
			if s.Step != StepResult {
				t.Fatalf("after %d answers step = %s, want result", cl.Len(), s.Step)
			}
			if len(s.Answers) != cl.Len() {
				t.Errorf("answers = %d, want %d", len(s.Answers), cl.Len())
			}
			if !s.CompletedAt.Equal(fixedNow) {
				t.Errorf("CompletedAt = %v", s.CompletedAt)
			}
		})
	}
}

func TestVerdictFollowsVariantMapping(t *testing.T) {
	for _, cl := range builtins(t) {
		t.Run(cl.ID, func(t *testing.T) {
			for failAt := -1; failAt < cl.Len(); failAt++ {
				s := mustStart(t, cl)
				for i := range cl.Len() {
					resp := cl.Responses.Pass
					if i == failAt {
						resp = cl.Responses.Fail
					}
					var err error
					if s, err = Answer(cl, s, resp, fixedNow); err != nil {
						t.Fatalf("Answer: %v", err)
					}
				}

				want := checklist.StatusPass
				if failAt >= 0 {
					want = checklist.StatusFail
				}
				if got := Verdict(s); got != want {
					t.Errorf("failAt=%d: verdict = %s, want %s", failAt, got, want)
				}
				if failAt >= 0 {
					failed := FailedAnswers(s)
					if len(failed) != 1 || failed[0].Response != cl.Responses.Fail {
						t.Errorf("failAt=%d: failed answers = %+v", failAt, failed)
					}
				}
			}
		})
	}
}

func TestAnswerRecordsQuestionResponseStatus(t *testing.T) {
	cl := testChecklist()
	s := mustStart(t, cl)
	s, _ = Answer(cl, s, "有", fixedNow)
	s, _ = Answer(cl, s, " 沒有 ", fixedNow)

	want := []Record{
		{Question: "Q1", Response: "有", Status: checklist.StatusPass},
		{Question: "Q2", Response: "沒有", Status: checklist.StatusFail},
	}
	if diff := cmp.Diff(want, s.Answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswerRejectsUnknownResponse(t *testing.T) {
	cl := testChecklist()
	s := mustStart(t, cl)
	next, err := Answer(cl, s, "maybe", fixedNow)
	if !errors.Is(err, ErrUnknownResponse) {
		t.Fatalf("error = %v, want ErrUnknownResponse", err)
	}
	if next.Index != 0 || len(next.Answers) != 0 {
		t.Errorf("state changed on rejected answer: %+v", next)
	}
}

func TestNoAnswersAfterResult(t *testing.T) {
	cl := testChecklist()
	s := finish(t, cl, "有")

	next, err := Answer(cl, s, "有", fixedNow)
	if !errors.Is(err, ErrWrongStep) {
		t.Fatalf("error = %v, want ErrWrongStep", err)
	}
	if len(next.Answers) != cl.Len() || next.Step != StepResult {
		t.Errorf("result state changed: %+v", next)
	}
	if next.Index != cl.Len()-1 {
		t.Errorf("index = %d, want %d", next.Index, cl.Len()-1)
	}
}

func TestAnswerOnLoginRejected(t *testing.T) {
	if _, err := Answer(testChecklist(), Initial(), "有", fixedNow); !errors.Is(err, ErrWrongStep) {
		t.Fatalf("error = %v, want ErrWrongStep", err)
	}
}

func TestRestartAlwaysResets(t *testing.T) {
	cl := testChecklist()
	quiz := mustStart(t, cl)
	quiz, _ = Answer(cl, quiz, "有", fixedNow)

	for name, s := range map[string]State{
		"login":  Initial(),
		"quiz":   quiz,
		"result": finish(t, cl, "沒有"),
	} {
		t.Run(name, func(t *testing.T) {
			got := Restart(s)
			if diff := cmp.Diff(Initial(), got); diff != "" {
				t.Errorf("restart mismatch (-want +got):\n%s", diff)
			}
			if len(got.Answers) != 0 || got.Index != 0 || got.Step != StepLogin || len(got.Identity) != 0 {
				t.Errorf("restart did not reset: %+v", got)
			}
		})
	}
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	cl := testChecklist()
	s := mustStart(t, cl)
	s, _ = Answer(cl, s, "有", fixedNow)
	before := s.clone()

	if _, err := Answer(cl, s, "沒有", fixedNow); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("input state mutated (-before +after):\n%s", diff)
	}
}

func TestControllerCompletionHookFiresOnce(t *testing.T) {
	cl := testChecklist()
	var reports []Report
	c := NewController(cl,
		WithClock(func() time.Time { return fixedNow }),
		WithCompletionHook(func(r Report) { reports = append(reports, r) }),
	)

	if err := c.SubmitIdentity(map[string]string{"name": "Lee", "contractor": "ACME"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if pos, total := c.Progress(); pos != 1 || total != 3 {
		t.Errorf("Progress() = %d/%d, want 1/3", pos, total)
	}
	q, ok := c.CurrentQuestion()
	if !ok || q.Text != "Q1" {
		t.Errorf("CurrentQuestion() = %+v, %v", q, ok)
	}
	if _, ok := c.Report(); ok {
		t.Error("Report() should be unavailable during quiz")
	}

	for _, r := range []string{"有", "沒有", "有"} {
		if err := c.Answer(r); err != nil {
			t.Fatalf("Answer(%q): %v", r, err)
		}
	}
	if err := c.Answer("有"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("answer after result: %v", err)
	}
	if _, ok := c.CurrentQuestion(); ok {
		t.Error("no current question in result")
	}

	if len(reports) != 1 {
		t.Fatalf("completion hook fired %d times, want 1", len(reports))
	}
	r := reports[0]
	if r.Passed() || r.Verdict != checklist.StatusFail {
		t.Errorf("verdict = %s, want fail", r.Verdict)
	}
	if r.Inspector() != "Lee" || r.ChecklistID != "test" || len(r.Failed) != 1 {
		t.Errorf("unexpected report: %+v", r)
	}

	c.Restart()
	if c.Step() != StepLogin || len(c.State().Answers) != 0 {
		t.Errorf("restart did not reset controller: %+v", c.State())
	}
	if len(reports) != 1 {
		t.Error("restart must not fire the completion hook")
	}
}

func TestControllerValidationKeepsLogin(t *testing.T) {
	c := NewController(testChecklist())
	if err := c.SubmitIdentity(map[string]string{"name": " "}); err == nil {
		t.Fatal("expected validation error")
	}
	if c.Step() != StepLogin {
		t.Errorf("step = %s, want login", c.Step())
	}
}

func TestReportInspectorFallback(t *testing.T) {
	r := Report{Identity: []IdentityValue{{Key: "badge", Value: ""}, {Key: "crew", Value: "B"}}}
	if got := r.Inspector(); got != "B" {
		t.Errorf("Inspector() = %q, want B", got)
	}
}

func mustStart(t *testing.T, cl *checklist.Checklist) State {
	t.Helper()
	s, err := SubmitIdentity(cl, Initial(), validIdentity(cl), fixedNow)
	if err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	return s
}

func finish(t *testing.T, cl *checklist.Checklist, response string) State {
	t.Helper()
	s := mustStart(t, cl)
	for range cl.Len() {
		var err error
		if s, err = Answer(cl, s, response, fixedNow); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}
	return s
}
