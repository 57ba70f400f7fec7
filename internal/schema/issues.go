package schema

import (
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
)

// Kind classifies a validation failure.
type Kind string

const (
	RequiredField Kind = "required_field"
	InvalidEnum   Kind = "invalid_enum"
	Malformed     Kind = "malformed"
)

const (
	msgInvalidType = "Invalid question type"
	msgMalformed   = "Malformed value"
	msgRequired    = "Required"
)

var requiredMessages = map[string]string{
	"title": "Title required",
	"name":  "Name required",
	"label": "Label required",
}

func requiredMessage(field string) string {
	if msg, ok := requiredMessages[field]; ok {
		return msg
	}
	return msgRequired
}

// Issue is one violation at an exact path.
type Issue struct {
	Path    fieldpath.Path
	Kind    Kind
	Message string
}

// Issues is every violation found in a single pass, in discovery order.
type Issues []Issue

// Tree projects the issues into an error tree.
func (iss Issues) Tree() errortree.Tree {
	entries := make([]errortree.Entry, len(iss))
	for i, is := range iss {
		entries[i] = errortree.Entry{Path: is.Path, Message: is.Message}
	}
	return errortree.Build(entries)
}

// At returns the issues at path or below it.
func (iss Issues) At(path fieldpath.Path) Issues {
	var out Issues
	for _, is := range iss {
		if is.Path.HasPrefix(path) {
			out = append(out, is)
		}
	}
	return out
}

// Filter keeps the issues accepted by keep.
func (iss Issues) Filter(keep func(Issue) bool) Issues {
	var out Issues
	for _, is := range iss {
		if keep(is) {
			out = append(out, is)
		}
	}
	return out
}

// settle drops what a Malformed issue already explains: repeated malformed
// reports of one path and any issue at or below a malformed path.
func (iss Issues) settle() Issues {
	var shapes []fieldpath.Path
	for _, is := range iss {
		if is.Kind == Malformed {
			shapes = append(shapes, is.Path)
		}
	}
	if len(shapes) == 0 {
		return iss
	}

	out := make(Issues, 0, len(iss))
	kept := make(map[string]bool, len(shapes))
	for _, is := range iss {
		if is.Kind == Malformed {
			key := is.Path.String()
			if kept[key] || coveredBy(is.Path, shapes, true) {
				continue
			}
			kept[key] = true
			out = append(out, is)
			continue
		}
		if coveredBy(is.Path, shapes, false) {
			continue
		}
		out = append(out, is)
	}
	return out
}

func coveredBy(path fieldpath.Path, shapes []fieldpath.Path, strict bool) bool {
	for _, shape := range shapes {
		if strict && len(shape) >= len(path) {
			continue
		}
		if path.HasPrefix(shape) {
			return true
		}
	}
	return false
}
