package fieldpath

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	value := map[string]any{
		"title": "Survey",
		"questions": []any{
			map[string]any{"name": "Q1", "type": "TEXT"},
			map[string]any{
				"name": "Q2",
				"type": "RADIOLIST",
				"options": []any{
					map[string]any{"label": "Yes"},
					map[string]any{"label": "No"},
				},
			},
		},
		"empty": []any{},
		"count": 3,
	}

	got := Encode(value)

	want := url.Values{
		"title":                       {"Survey"},
		"questions.0.name":            {"Q1"},
		"questions.0.type":            {"TEXT"},
		"questions.1.name":            {"Q2"},
		"questions.1.type":            {"RADIOLIST"},
		"questions.1.options.0.label": {"Yes"},
		"questions.1.options.1.label": {"No"},
		"count":                       {"3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode(t *testing.T) {
	t.Run("rebuilds nested arrays", func(t *testing.T) {
		got, errs := Decode(url.Values{
			"title":                         {"T"},
			"questions.1.name":              {"Q2"},
			"questions.0.name":              {"Q1"},
			"questions[1].options[0].label": {"A"},
		})

		require.Empty(t, errs)
		want := map[string]any{
			"title": "T",
			"questions": []any{
				map[string]any{"name": "Q1"},
				map[string]any{
					"name":    "Q2",
					"options": []any{map[string]any{"label": "A"}},
				},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Decode() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty submission is an empty object", func(t *testing.T) {
		got, errs := Decode(url.Values{})

		assert.Empty(t, errs)
		assert.Equal(t, map[string]any{}, got)
	})

	t.Run("gaps become nil entries", func(t *testing.T) {
		got, errs := Decode(url.Values{"questions.2.name": {"Q3"}})

		require.Empty(t, errs)
		assert.Equal(t, []any{nil, nil, map[string]any{"name": "Q3"}}, got["questions"])
	})

	t.Run("last repeated value wins", func(t *testing.T) {
		got, errs := Decode(url.Values{"title": {"first", "second"}})

		require.Empty(t, errs)
		assert.Equal(t, "second", got["title"])
	})

	t.Run("scalar and container conflict", func(t *testing.T) {
		got, errs := Decode(url.Values{
			"questions":        {"oops"},
			"questions.0.name": {"Q1"},
		})

		require.Len(t, errs, 1)
		assert.Equal(t, Of("questions"), errs[0].Path)
		assert.ErrorIs(t, errs[0], ErrConflict)
		assert.Equal(t, "oops", got["questions"])
	})

	t.Run("object and array conflict", func(t *testing.T) {
		_, errs := Decode(url.Values{
			"questions.0.name":    {"Q1"},
			"questions.name.text": {"x"},
		})

		require.Len(t, errs, 1)
		assert.Equal(t, Of("questions"), errs[0].Path)
		assert.ErrorIs(t, errs[0], ErrConflict)
	})

	t.Run("container then scalar conflict", func(t *testing.T) {
		_, errs := Decode(url.Values{
			"questions.0":      {"flat"},
			"questions.0.name": {"Q1"},
		})

		require.Len(t, errs, 1)
		assert.Equal(t, Of("questions", 0), errs[0].Path)
	})

	t.Run("malformed key is attributed to its valid prefix", func(t *testing.T) {
		got, errs := Decode(url.Values{
			"title":             {"T"},
			"questions.0.na me": {"x"},
			"[junk]":            {"x"},
		})

		require.Len(t, errs, 1)
		assert.Equal(t, Of("questions", 0), errs[0].Path)
		assert.ErrorIs(t, errs[0], ErrSyntax)
		assert.Equal(t, map[string]any{"title": "T"}, got)
	})

	t.Run("index overflow is reported", func(t *testing.T) {
		_, errs := Decode(url.Values{"questions.5000.name": {"x"}})

		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrIndexRange)
		assert.Equal(t, Of("questions"), errs[0].Path)
	})
}

func TestRoundTrip(t *testing.T) {
	values := []map[string]any{
		{},
		{"title": ""},
		{"title": "Only title"},
		{
			"title": "Trip",
			"questions": []any{
				map[string]any{"name": "", "type": ""},
				map[string]any{"name": "Q", "type": "RADIOLIST", "options": []any{
					map[string]any{"label": "a.b"},
					map[string]any{"label": "[x]"},
				}},
			},
		},
		{"questions": []any{nil, map[string]any{"name": "second"}}},
	}

	for _, value := range values {
		got, errs := Decode(Encode(value))

		require.Empty(t, errs)
		if diff := cmp.Diff(value, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}
