package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load(t *testing.T) {
	path := writeTemplate(t, `
title: Customer survey
questions:
  - name: How did you hear about us?
    type: RADIOLIST
    options:
      - label: Friend
      - label: ""
  - name: ""
    type: TEXT
    options:
      - label: ignored
`)

	form, err := New(path, logger.Nop()).Load(context.Background())
	require.NoError(t, err)

	want := entity.QuestionnaireForm{
		Title: "Customer survey",
		Questions: []entity.Question{
			{Name: "How did you hear about us?", Type: entity.TypeRadioList, Options: []entity.Option{{Label: "Friend"}, {Label: ""}}},
			{Name: "", Type: entity.TypeText},
		},
	}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Blank(t *testing.T) {
	for name, path := range map[string]string{
		"no path":      "",
		"missing file": filepath.Join(t.TempDir(), "absent.yaml"),
	} {
		t.Run(name, func(t *testing.T) {
			form, err := New(path, logger.Nop()).Load(context.Background())

			require.NoError(t, err)
			assert.Equal(t, Blank(), form)
		})
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := New(writeTemplate(t, "title: [oops"), logger.Nop()).Load(context.Background())
		assert.ErrorContains(t, err, "decode template")
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := New(writeTemplate(t, "title: Survey\nquestions: 3\n"), logger.Nop()).Load(context.Background())
		assert.ErrorContains(t, err, `Malformed value at "questions"`)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(writeTemplate(t, "title: x"), logger.Nop()).Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
