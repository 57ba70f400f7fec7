package service

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// sanitizeText strips markup and surrounding whitespace. The result is plain
// text: entities the policy produces are decoded back.
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(trimmed)))
}

func sanitizeValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vs := range values {
		cleaned := make([]string, len(vs))
		for i, v := range vs {
			cleaned[i] = sanitizeText(v)
		}
		out[key] = cleaned
	}
	return out
}

// sanitizeValue cleans every string of a decoded JSON document, leaving its
// shape untouched.
func sanitizeValue(raw any) any {
	switch v := raw.(type) {
	case string:
		return sanitizeText(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = sanitizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return raw
	}
}
