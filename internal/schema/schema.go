// Package schema declares what a valid questionnaire is and checks values of
// unknown shape against it, collecting every violation in one pass.
package schema

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Both registrations only fail on empty tags or nil funcs.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("questiontype", func(fl validator.FieldLevel) bool {
		return entity.QuestionType(fl.Field().String()).Valid()
	})

	return v
}

// Result is Valid when Issues is empty. Form always holds the best-effort
// typed reading of the input so it can be echoed back for editing.
type Result struct {
	Form   entity.QuestionnaireForm
	Issues Issues
}

func (r Result) Valid() bool {
	return len(r.Issues) == 0
}

// Errors is the error tree of the result; empty when valid.
func (r Result) Errors() errortree.Tree {
	return r.Issues.Tree()
}

// Parse reads a nested value (as produced by fieldpath.Decode or a JSON
// decoder) into a questionnaire and validates it. Values of the wrong kind
// are reported as Malformed at their path; a non-object root reads as an
// empty object.
func Parse(raw any) Result {
	var p parser
	return p.finish(p.form(raw))
}

// ParseValues decodes a flattened submission and parses it. Keys that cannot
// be placed are reported as Malformed at the path they affect, unless the
// path is one the questionnaire ignores, such as the options of a question
// that takes none.
func ParseValues(values url.Values) Result {
	raw, decodeErrs := fieldpath.Decode(values)

	var p parser
	form := p.form(raw)
	for _, de := range decodeErrs {
		if !reads(form, de.Path) {
			continue
		}
		p.malformed(de.Path)
	}
	return p.finish(form)
}

var (
	questionsSeg = fieldpath.Field("questions")
	optionsSeg   = fieldpath.Field("options")
)

// reads reports whether a path is part of what form is read from.
func reads(form entity.QuestionnaireForm, at fieldpath.Path) bool {
	if len(at) < 3 || at[0] != questionsSeg || !at[1].IsIndex() || at[2] != optionsSeg {
		return true
	}
	i := at[1].Index
	if i >= len(form.Questions) {
		return true
	}
	return form.Questions[i].Type.RequiresOptions()
}

// Validate checks an already typed questionnaire.
func Validate(form entity.QuestionnaireForm) Issues {
	err := validate.Struct(form.Normalize())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Issues{{Kind: Malformed, Message: msgMalformed}}
	}

	out := make(Issues, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, issueFor(fe))
	}
	return out
}

func issueFor(fe validator.FieldError) Issue {
	path := namespacePath(fe.Namespace())

	switch fe.Tag() {
	case "notblank":
		return Issue{Path: path, Kind: RequiredField, Message: requiredMessage(fe.Field())}
	case "questiontype":
		return Issue{Path: path, Kind: InvalidEnum, Message: msgInvalidType}
	default:
		return Issue{Path: path, Kind: Kind(fe.Tag()), Message: fe.Error()}
	}
}

// namespacePath turns "QuestionnaireForm.questions[0].name" into a path.
func namespacePath(ns string) fieldpath.Path {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return nil
	}
	path, _ := fieldpath.Parse(rest)
	return path
}

type parser struct {
	issues Issues
	holes  []hole
}

// hole is a run of missing items, from and to inclusive, of the array at at.
// The run is reported once, at its first index.
type hole struct {
	at       fieldpath.Path
	from, to int
}

func (h hole) covers(path fieldpath.Path) bool {
	if len(path) <= len(h.at) || !path.HasPrefix(h.at) || !path[len(h.at)].IsIndex() {
		return false
	}
	i := path[len(h.at)].Index
	return i >= h.from && i <= h.to
}

func (p *parser) malformed(at fieldpath.Path) {
	p.issues = append(p.issues, Issue{Path: at, Kind: Malformed, Message: msgMalformed})
}

// missing records a nil item. Consecutive ones extend the current run.
func (p *parser) missing(at fieldpath.Path, i int) {
	if n := len(p.holes); n > 0 {
		last := &p.holes[n-1]
		if last.at.Equal(at) && last.to == i-1 {
			last.to = i
			return
		}
	}
	p.malformed(at.At(i))
	p.holes = append(p.holes, hole{at: at, from: i, to: i})
}

func (p *parser) inHole(path fieldpath.Path) bool {
	for _, h := range p.holes {
		if h.covers(path) {
			return true
		}
	}
	return false
}

func (p *parser) finish(form entity.QuestionnaireForm) Result {
	issues := p.issues
	for _, is := range Validate(form) {
		if !p.inHole(is.Path) {
			issues = append(issues, is)
		}
	}
	issues = issues.settle()
	if len(issues) == 0 {
		return Result{Form: form}
	}
	return Result{Form: form, Issues: issues}
}

func (p *parser) form(raw any) entity.QuestionnaireForm {
	obj, _ := raw.(map[string]any)

	return entity.QuestionnaireForm{
		Title:     p.text(obj["title"], fieldpath.Of("title")),
		Questions: p.questions(obj["questions"], fieldpath.Of("questions")),
	}
}

func (p *parser) text(v any, at fieldpath.Path) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		p.malformed(at)
		return ""
	}
}

func (p *parser) questions(v any, at fieldpath.Path) []entity.Question {
	out := []entity.Question{}

	switch items := v.(type) {
	case nil:
	case []any:
		for i, item := range items {
			if item == nil {
				p.missing(at, i)
				out = append(out, entity.Question{})
				continue
			}
			out = append(out, p.question(item, at.At(i)))
		}
	default:
		p.malformed(at)
	}
	return out
}

func (p *parser) question(v any, at fieldpath.Path) entity.Question {
	obj, ok := v.(map[string]any)
	if !ok {
		p.malformed(at)
		return entity.Question{}
	}

	q := entity.Question{
		Name: p.text(obj["name"], at.Child("name")),
		Type: entity.QuestionType(p.text(obj["type"], at.Child("type"))),
	}
	if q.Type.RequiresOptions() {
		q.Options = p.options(obj["options"], at.Child("options"))
	}
	return q
}

func (p *parser) options(v any, at fieldpath.Path) []entity.Option {
	out := []entity.Option{}

	switch items := v.(type) {
	case nil:
	case []any:
		for i, item := range items {
			if item == nil {
				p.missing(at, i)
				out = append(out, entity.Option{})
				continue
			}
			obj, ok := item.(map[string]any)
			if !ok {
				p.malformed(at.At(i))
				out = append(out, entity.Option{})
				continue
			}
			out = append(out, entity.Option{Label: p.text(obj["label"], at.At(i).Child("label"))})
		}
	default:
		p.malformed(at)
	}
	return out
}

// Value lays form out as the nested value Parse reads.
func Value(form entity.QuestionnaireForm) map[string]any {
	form = form.Normalize()

	questions := make([]any, len(form.Questions))
	for i, q := range form.Questions {
		item := map[string]any{
			"name": q.Name,
			"type": string(q.Type),
		}
		if len(q.Options) > 0 {
			options := make([]any, len(q.Options))
			for j, o := range q.Options {
				options[j] = map[string]any{"label": o.Label}
			}
			item["options"] = options
		}
		questions[i] = item
	}

	return map[string]any{
		"title":     form.Title,
		"questions": questions,
	}
}

// Encode flattens form into the submission wire format.
func Encode(form entity.QuestionnaireForm) url.Values {
	return fieldpath.Encode(Value(form))
}
