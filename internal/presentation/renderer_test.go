package presentation

import (
	"bytes"
	"testing"

	"github.com/Koyo-os/questionnaire-service/internal/editor"
	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, view View) string {
	t.Helper()

	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, view))
	return buf.String()
}

func TestRenderer_Render(t *testing.T) {
	errs := errortree.Build([]errortree.Entry{
		{Path: fieldpath.Of("questions", 1, "options", 1, "label"), Message: "Label required"},
	})
	out := render(t, Build(sampleDraft(), errs))

	assert.Contains(t, out, `name="title" value="Survey"`)
	assert.Contains(t, out, `name="questions.0.key" value="k1"`)
	assert.Contains(t, out, `name="questions.1.options.0.label" value="Red"`)
	assert.Contains(t, out, `value="add-question:TEXT"`)
	assert.Contains(t, out, `value="submit"`)
	assert.Contains(t, out, `data-error-for="questions.1.options.1.label">Label required`)
	assert.Contains(t, out, `<option value="NUMBER" selected>`)
}

func TestRenderer_OptionsOnlyForChoice(t *testing.T) {
	d := editor.New(keys())
	d.AppendQuestion(entity.TypeText)

	out := render(t, Build(d, errortree.Tree{}))

	assert.NotContains(t, out, "questions.0.options")
	assert.NotContains(t, out, "add-option:")
	assert.Contains(t, out, "question--plain")
}

func TestRenderer_Escapes(t *testing.T) {
	d := editor.New(keys())
	d.SetTitle(`<script>alert("x")</script>`)

	out := render(t, Build(d, errortree.Tree{}))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderer_TypeSelect(t *testing.T) {
	d := editor.New(keys())
	d.AppendQuestion(entity.QuestionType("BOGUS"))

	out := render(t, Build(d, errortree.Tree{}))

	assert.Contains(t, out, `<option value="BOGUS" selected>BOGUS</option>`)
	assert.NotContains(t, out, `<option value="TEXT" selected>`)
	assert.Contains(t, out, `name="intent" value="refresh"`)
}
