// Package fieldpath locates values inside a nested questionnaire value and
// implements the flattened key-path encoding used as the submission wire
// format.
//
// Grammar of a key:
//
//	key     = name *( "." segment / "[" index "]" )
//	segment = name / index
//	name    = (ALPHA / "_") *(ALPHA / DIGIT / "_" / "-")
//	index   = "0" / (%x31-39 *DIGIT)   ; less than MaxIndex
//
// Encode always emits the dot form (questions.0.options.1.label); Parse and
// Decode accept both forms (questions[0].options[1].label).
package fieldpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxIndex bounds array positions accepted from the wire.
const MaxIndex = 1000

var (
	ErrSyntax     = errors.New("malformed key")
	ErrIndexRange = errors.New("index out of range")
	ErrConflict   = errors.New("conflicting value kinds")
)

// Segment is one step of a Path: either a field name or an array index.
type Segment struct {
	Name    string
	Index   int
	isIndex bool
}

// Field returns a name segment.
func Field(name string) Segment {
	return Segment{Name: name}
}

// Index returns an array index segment.
func Index(i int) Segment {
	return Segment{Index: i, isIndex: true}
}

func (s Segment) IsIndex() bool {
	return s.isIndex
}

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// Path is an ordered list of segments. The empty path is the root.
type Path []Segment

// Of builds a path from strings (names) and ints (indexes).
// Any other part type is a programming error and panics.
func Of(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			p = append(p, Field(v))
		case int:
			p = append(p, Index(v))
		case Segment:
			p = append(p, v)
		default:
			panic(fmt.Sprintf("fieldpath: unsupported part %T", part))
		}
	}
	return p
}

// Child returns a copy of p extended with a name segment.
func (p Path) Child(name string) Path {
	return p.append(Field(name))
}

// At returns a copy of p extended with an index segment.
func (p Path) At(i int) Path {
	return p.append(Index(i))
}

func (p Path) append(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// String renders the dot form used on the wire.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

// HasPrefix reports whether q is p or an ancestor of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func (p Path) clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// KeyError reports a key that does not follow the grammar. Valid holds the
// longest prefix that parsed, which is where the failure is attributed.
type KeyError struct {
	Key   string
	Valid Path
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("fieldpath: %v in %q", e.Err, e.Key)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// Parse converts a wire key into a Path. On failure it returns the longest
// valid prefix together with a *KeyError.
func Parse(key string) (Path, error) {
	var p Path

	fail := func(err error) (Path, error) {
		return p, &KeyError{Key: key, Valid: p.clone(), Err: err}
	}

	rest := key
	for {
		end := strings.IndexAny(rest, ".[")
		token := rest
		if end >= 0 {
			token = rest[:end]
		}

		seg, err := parseSegment(token, len(p) == 0)
		if err != nil {
			return fail(err)
		}
		p = append(p, seg)

		if end < 0 {
			return p, nil
		}
		rest = rest[end:]

		for strings.HasPrefix(rest, "[") {
			closing := strings.IndexByte(rest, ']')
			if closing < 0 {
				return fail(ErrSyntax)
			}
			idx, err := parseIndex(rest[1:closing])
			if err != nil {
				return fail(err)
			}
			p = append(p, Index(idx))
			rest = rest[closing+1:]
		}

		if rest == "" {
			return p, nil
		}
		if rest[0] != '.' {
			return fail(ErrSyntax)
		}
		rest = rest[1:]
	}
}

func parseSegment(token string, first bool) (Segment, error) {
	if token == "" {
		return Segment{}, ErrSyntax
	}
	if isDigit(token[0]) {
		if first {
			return Segment{}, ErrSyntax
		}
		idx, err := parseIndex(token)
		if err != nil {
			return Segment{}, err
		}
		return Index(idx), nil
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case isLetter(c) || c == '_':
		case i > 0 && (isDigit(c) || c == '-'):
		default:
			return Segment{}, ErrSyntax
		}
	}
	return Field(token), nil
}

func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, ErrSyntax
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, ErrSyntax
	}
	if len(s) > len(strconv.Itoa(MaxIndex)) {
		return 0, ErrIndexRange
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrSyntax
	}
	if n >= MaxIndex {
		return 0, ErrIndexRange
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
