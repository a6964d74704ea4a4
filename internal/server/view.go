package server

import (
	"path"

	"github.com/oszuidwest/cranecheck/internal/checklist"
	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/types"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// ImagePathPrefix is the URL prefix under which question images are served.
const ImagePathPrefix = "/images/"

// FormState carries login input that failed validation back to the page.
type FormState struct {
	Values  map[string]string
	Invalid []string
}

// Viewer builds client-facing session views.
type Viewer struct {
	images  *checklist.ImageResolver
	version func() types.VersionInfo
}

// NewViewer creates a Viewer. images and version may be nil.
func NewViewer(images *checklist.ImageResolver, version func() types.VersionInfo) *Viewer {
	return &Viewer{images: images, version: version}
}

// View returns the complete view of the controller's session.
func (v *Viewer) View(c *session.Controller, form *FormState) types.SessionView {
	cl := c.Checklist()
	st := c.State()
	pos, total := c.Progress()

	view := types.SessionView{
		Type:      types.MessageState,
		Checklist: cl.ID,
		Title:     cl.Title,
		Step:      string(st.Step),
		Total:     total,
		Options:   cl.Options(),
		Answers:   make([]types.AnswerView, 0, len(st.Answers)),
	}
	if v.version != nil {
		view.Version = v.version()
	}

	for _, a := range st.Answers {
		view.Answers = append(view.Answers, types.AnswerView{
			Question: a.Question,
			Response: a.Response,
			Status:   string(a.Status),
		})
	}

	switch st.Step {
	case session.StepLogin:
		view.Fields = loginFields(cl, form)
	case session.StepQuiz:
		view.Position = pos
		view.Percent = (pos - 1) * 100 / total
		if q, ok := c.CurrentQuestion(); ok {
			view.Question = v.question(q)
		}
	case session.StepResult:
		view.Position = total
		view.Percent = 100
		if r, ok := c.Report(); ok {
			view.Verdict = string(r.Verdict)
			view.Inspector = r.Inspector()
			view.CompletedAt = util.FormatHuman(r.CompletedAt)
			view.Fields = reportFields(r)
		}
	}
	return view
}

func (v *Viewer) question(q checklist.Question) *types.QuestionView {
	qv := &types.QuestionView{Text: q.Text, Image: q.Image}
	if q.Image != "" && v.images.Available(q.Image) {
		qv.ImageURL = ImagePathPrefix + path.Clean(q.Image)
	}
	return qv
}

func loginFields(cl *checklist.Checklist, form *FormState) []types.FieldView {
	invalid := make(map[string]bool)
	var values map[string]string
	if form != nil {
		values = form.Values
		for _, k := range form.Invalid {
			invalid[k] = true
		}
	}

	fields := make([]types.FieldView, 0, len(cl.Identity))
	for _, f := range cl.Identity {
		fields = append(fields, types.FieldView{
			Key:      f.Key,
			Label:    f.DisplayName(),
			Required: f.Required,
			Value:    values[f.Key],
			Invalid:  invalid[f.Key],
		})
	}
	return fields
}

func reportFields(r session.Report) []types.FieldView {
	fields := make([]types.FieldView, 0, len(r.Identity))
	for _, iv := range r.Identity {
		fields = append(fields, types.FieldView{
			Key:   iv.Key,
			Label: iv.Label,
			Value: iv.Value,
		})
	}
	return fields
}
