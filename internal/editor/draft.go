// Package editor holds the in-progress questionnaire an author is editing
// and the submit state machine around it.
package editor

import (
	"net/url"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/Koyo-os/questionnaire-service/internal/listctl"
	"github.com/Koyo-os/questionnaire-service/internal/schema"
)

// keyField carries item identities through a form round trip. Schema
// parsing ignores it.
const keyField = "key"

// QuestionDraft is a question being edited. Options stays nil until the
// question first needs options.
type QuestionDraft struct {
	Name    string
	Type    entity.QuestionType
	Options *listctl.List[entity.Option]
}

// Draft is a questionnaire under edit. Items keep their identities across
// appends so inputs stay attached to the right question.
type Draft struct {
	Title     string
	Questions *listctl.List[QuestionDraft]

	opts []listctl.Option
}

func New(opts ...listctl.Option) *Draft {
	return &Draft{
		Questions: listctl.New[QuestionDraft](opts...),
		opts:      opts,
	}
}

// FromForm starts a draft from a template or a stored questionnaire.
func FromForm(form entity.QuestionnaireForm, opts ...listctl.Option) *Draft {
	d := New(opts...)
	d.Title = form.Title
	for _, q := range form.Normalize().Questions {
		qd := QuestionDraft{Name: q.Name, Type: q.Type}
		if q.Type.RequiresOptions() {
			qd.Options = d.newOptions()
			for _, o := range q.Options {
				qd.Options.Append(o)
			}
		}
		d.Questions.Append(qd)
	}
	return d
}

// FromValues rebuilds a draft from a flattened submission, reattaching the
// identities carried in the key fields. Values are taken as typed, valid or
// not, so the author sees exactly what was sent.
func FromValues(values url.Values, opts ...listctl.Option) *Draft {
	raw, _ := fieldpath.Decode(values)
	form := schema.Parse(raw).Form
	rawQuestions, _ := raw["questions"].([]any)

	d := New(opts...)
	d.Title = form.Title
	for i, q := range form.Questions {
		rawQuestion := itemAt(rawQuestions, i)

		qd := QuestionDraft{Name: q.Name, Type: q.Type}
		if q.Type.RequiresOptions() {
			rawOptions, _ := rawQuestion["options"].([]any)
			qd.Options = d.newOptions()
			for j, o := range q.Options {
				qd.Options.Adopt(keyOf(itemAt(rawOptions, j)), o)
			}
		}
		d.Questions.Adopt(keyOf(rawQuestion), qd)
	}
	return d
}

func itemAt(items []any, i int) map[string]any {
	if i >= len(items) {
		return nil
	}
	obj, _ := items[i].(map[string]any)
	return obj
}

func keyOf(obj map[string]any) listctl.Key {
	key, _ := obj[keyField].(string)
	return listctl.Key(key)
}

func (d *Draft) newOptions() *listctl.List[entity.Option] {
	return listctl.New[entity.Option](d.opts...)
}

func (d *Draft) SetTitle(title string) {
	d.Title = title
}

// AppendQuestion adds a blank question of type t. Only types that require
// options start with an (empty) options list.
func (d *Draft) AppendQuestion(t entity.QuestionType) listctl.Key {
	qd := QuestionDraft{Type: t}
	if t.RequiresOptions() {
		qd.Options = d.newOptions()
	}
	return d.Questions.Append(qd)
}

func (d *Draft) RemoveQuestion(key listctl.Key) bool {
	return d.Questions.Remove(key)
}

func (d *Draft) SetQuestionName(key listctl.Key, name string) bool {
	return d.Questions.Update(key, func(q *QuestionDraft) {
		q.Name = name
	})
}

// SetQuestionType switches a question between plain and choice input. Options
// entered before switching away are kept in case the author switches back.
func (d *Draft) SetQuestionType(key listctl.Key, t entity.QuestionType) bool {
	return d.Questions.Update(key, func(q *QuestionDraft) {
		q.Type = t
		if t.RequiresOptions() && q.Options == nil {
			q.Options = d.newOptions()
		}
	})
}

// AppendOption adds a blank option to a question whose current type takes
// options.
func (d *Draft) AppendOption(question listctl.Key) (listctl.Key, bool) {
	var (
		key listctl.Key
		ok  bool
	)
	d.Questions.Update(question, func(q *QuestionDraft) {
		if !q.Type.RequiresOptions() {
			return
		}
		if q.Options == nil {
			q.Options = d.newOptions()
		}
		key, ok = q.Options.Append(entity.Option{}), true
	})
	return key, ok
}

func (d *Draft) RemoveOption(question, option listctl.Key) bool {
	q, found := d.Questions.Get(question)
	if !found || q.Options == nil {
		return false
	}
	return q.Options.Remove(option)
}

func (d *Draft) SetOptionLabel(question, option listctl.Key, label string) bool {
	q, found := d.Questions.Get(question)
	if !found || q.Options == nil {
		return false
	}
	return q.Options.Update(option, func(o *entity.Option) {
		o.Label = label
	})
}

// Snapshot is the positional value the schema validates. Options are only
// included while the question's type requires them.
func (d *Draft) Snapshot() entity.QuestionnaireForm {
	form := entity.QuestionnaireForm{
		Title:     d.Title,
		Questions: make([]entity.Question, 0, d.Questions.Len()),
	}
	for _, q := range d.Questions.Values() {
		eq := entity.Question{Name: q.Name, Type: q.Type}
		if q.Type.RequiresOptions() {
			eq.Options = []entity.Option{}
			if q.Options != nil {
				eq.Options = q.Options.Values()
			}
		}
		form.Questions = append(form.Questions, eq)
	}
	return form
}

// Values encodes the draft for submission, identities included.
func (d *Draft) Values() url.Values {
	values := schema.Encode(d.Snapshot())
	for i, item := range d.Questions.Items() {
		at := fieldpath.Of("questions", i)
		values.Set(at.Child(keyField).String(), string(item.Key))

		q := item.Value
		if !q.Type.RequiresOptions() || q.Options == nil {
			continue
		}
		for j, option := range q.Options.Items() {
			values.Set(at.Child("options").At(j).Child(keyField).String(), string(option.Key))
		}
	}
	return values
}

// QuestionPath is the current positional path of a question.
func (d *Draft) QuestionPath(key listctl.Key) (fieldpath.Path, bool) {
	i := d.Questions.Index(key)
	if i < 0 {
		return nil, false
	}
	return fieldpath.Of("questions", i), true
}

// OptionPath is the current positional path of an option.
func (d *Draft) OptionPath(question, option listctl.Key) (fieldpath.Path, bool) {
	at, ok := d.QuestionPath(question)
	if !ok {
		return nil, false
	}
	q, _ := d.Questions.Get(question)
	if q.Options == nil {
		return nil, false
	}
	j := q.Options.Index(option)
	if j < 0 {
		return nil, false
	}
	return at.Child("options").At(j), true
}
