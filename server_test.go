package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/config"
	"github.com/oszuidwest/cranecheck/internal/session"
)

type reportRecorder struct {
	mu      sync.Mutex
	reports []session.Report
}

func (r *reportRecorder) record(rep session.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *reportRecorder) all() []session.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Report(nil), r.reports...)
}

// testClient keeps cookies and does not follow redirects.
type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestClient(t *testing.T, base string) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testClient{
		t:    t,
		base: base,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) get(path string) (int, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return readResponse(c.t, resp)
}

func (c *testClient) post(path string, form url.Values) (int, string) {
	c.t.Helper()
	resp, err := c.http.PostForm(c.base+path, form)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return readResponse(c.t, resp)
}

func readResponse(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func newTestServer(t *testing.T) (*httptest.Server, *checklist.Checklist, *reportRecorder) {
	t.Helper()
	dir := t.TempDir()
	images := filepath.Join(dir, "images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(images, "outrigger.jpg"), []byte("\xff\xd8\xff"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.New(filepath.Join(dir, "config.json"))
	if err := cfg.Apply(config.Overrides{ImagesDir: images}); err != nil {
		t.Fatal(err)
	}

	cat, err := checklist.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	cl, err := cat.Get("crane-illustrated")
	if err != nil {
		t.Fatal(err)
	}

	rec := &reportRecorder{}
	srv, err := NewServer(cfg, cl, rec.record, NewVersionChecker(false))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.SetupRoutes())
	t.Cleanup(ts.Close)
	return ts, cl, rec
}

func TestLoginValidation(t *testing.T) {
	ts, _, _ := newTestServer(t)
	c := newTestClient(t, ts.URL)

	status, body := c.get("/")
	if status != http.StatusOK || !strings.Contains(body, `action="/login"`) {
		t.Fatalf("GET / = %d, want login page", status)
	}

	status, body = c.post("/login", url.Values{"name": {"   "}, "contractor": {"ACME"}})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("blank name = %d, want 422", status)
	}
	if !strings.Contains(body, `value="ACME"`) {
		t.Error("entered contractor should be kept in the form")
	}
	if !strings.Contains(body, `class="errors"`) {
		t.Error("validation errors should be listed")
	}

	status, body = c.get("/")
	if status != http.StatusOK || !strings.Contains(body, `action="/login"`) {
		t.Error("session should still be on login after a rejected submit")
	}
}

func TestFullInspectionWalk(t *testing.T) {
	ts, cl, rec := newTestServer(t)
	c := newTestClient(t, ts.URL)

	status, _ := c.post("/login", url.Values{"name": {"陳大文"}, "contractor": {"ACME"}})
	if status != http.StatusSeeOther {
		t.Fatalf("login = %d, want 303", status)
	}

	status, body := c.get("/")
	if status != http.StatusOK {
		t.Fatalf("GET / = %d", status)
	}
	if !strings.Contains(body, cl.Questions[0].Text) || !strings.Contains(body, "1 / 6") {
		t.Error("quiz page should show the first question and progress")
	}
	if !strings.Contains(body, `src="/images/outrigger.jpg"`) {
		t.Error("quiz page should show the resolved image")
	}

	if status, _ := c.post("/answer", url.Values{"response": {"maybe"}, "position": {"1"}}); status != http.StatusBadRequest {
		t.Errorf("unknown response = %d, want 400", status)
	}
	if status, _ := c.post("/answer", url.Values{"response": {cl.Responses.Pass}, "position": {"3"}}); status != http.StatusConflict {
		t.Errorf("stale question form = %d, want 409", status)
	}

	for i := range cl.Questions {
		resp := cl.Responses.Pass
		if i == 2 {
			resp = cl.Responses.Fail
		}
		status, _ := c.post("/answer", url.Values{"response": {resp}, "position": {strconv.Itoa(i + 1)}})
		if status != http.StatusSeeOther {
			t.Fatalf("answer %d = %d, want 303", i+1, status)
		}
	}

	status, body = c.get("/")
	if status != http.StatusOK || !strings.Contains(body, "verdict-fail") {
		t.Fatalf("result page = %d, want fail verdict", status)
	}
	if !strings.Contains(body, "陳大文") {
		t.Error("result page should show the inspector")
	}

	if status, _ := c.post("/answer", url.Values{"response": {cl.Responses.Pass}}); status != http.StatusConflict {
		t.Errorf("answer after result = %d, want 409", status)
	}

	reports := rec.all()
	if len(reports) != 1 {
		t.Fatalf("completion hook called %d times, want 1", len(reports))
	}
	if reports[0].Passed() || len(reports[0].Failed) != 1 {
		t.Errorf("report = %+v", reports[0])
	}

	if status, _ := c.post("/restart", nil); status != http.StatusSeeOther {
		t.Fatalf("restart = %d, want 303", status)
	}
	if _, body := c.get("/"); !strings.Contains(body, `action="/login"`) {
		t.Error("restart should return to login")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ts, _, _ := newTestServer(t)
	a := newTestClient(t, ts.URL)
	b := newTestClient(t, ts.URL)

	a.post("/login", url.Values{"name": {"A"}, "contractor": {"ACME"}})

	if _, body := a.get("/"); !strings.Contains(body, `action="/answer"`) {
		t.Error("client A should be on the quiz")
	}
	if _, body := b.get("/"); !strings.Contains(body, `action="/login"`) {
		t.Error("client B should still be on login")
	}
}

func TestStaticRoutes(t *testing.T) {
	ts, _, _ := newTestServer(t)
	c := newTestClient(t, ts.URL)

	if status, _ := c.get("/images/outrigger.jpg"); status != http.StatusOK {
		t.Errorf("existing image = %d, want 200", status)
	}
	if status, _ := c.get("/images/overwind.jpg"); status != http.StatusNotFound {
		t.Errorf("missing image = %d, want 404", status)
	}
	if status, body := c.get("/style.css"); status != http.StatusOK || !strings.Contains(body, ".verdict") {
		t.Errorf("style.css = %d", status)
	}
	if status, _ := c.get("/nope"); status != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", status)
	}

	status, body := c.get("/api/checklist")
	if status != http.StatusOK {
		t.Fatalf("api/checklist = %d", status)
	}
	var got checklist.Checklist
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("api/checklist is not JSON: %v", err)
	}
	if got.ID != "crane-illustrated" || len(got.Questions) != 6 {
		t.Errorf("api/checklist = %s with %d questions", got.ID, len(got.Questions))
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&session.ValidationError{}, http.StatusUnprocessableEntity},
		{session.ErrWrongStep, http.StatusConflict},
		{session.ErrUnknownResponse, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
