// Package presentation turns a draft and its errors into the view model the
// editor page is rendered from.
package presentation

import (
	"github.com/Koyo-os/questionnaire-service/internal/editor"
	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/Koyo-os/questionnaire-service/internal/listctl"
)

// State is how a question is edited. It follows the question's type only.
type State int

const (
	Plain State = iota
	Choice
)

func (s State) String() string {
	if s == Choice {
		return "choice"
	}
	return "plain"
}

func stateOf(t entity.QuestionType) State {
	if t.RequiresOptions() {
		return Choice
	}
	return Plain
}

type (
	// Field is one input: its wire name, what it currently holds and the
	// error to show next to it, if any.
	Field struct {
		Name  string
		Value string
		Error string
	}

	OptionView struct {
		Key   Field
		Label Field
	}

	// OptionsEditor is the options sub-editor of a choice question.
	OptionsEditor struct {
		Name      string
		Error     string
		Items     []OptionView
		AddIntent string
	}

	// TypeChoice is one entry of a question's type select.
	TypeChoice struct {
		Value    string
		Selected bool
	}

	QuestionView struct {
		Index int
		Error string
		Key   Field
		Name  Field
		Type  Field
		State State

		// Types lists the known types. A current type that is not one of
		// them comes first so the select still shows what was posted.
		Types []TypeChoice

		// Options is nil unless State is Choice.
		Options *OptionsEditor
	}

	// Button is an intent control of the form.
	Button struct {
		Intent string
		Label  string
	}

	View struct {
		Title          Field
		QuestionsError string
		Questions      []QuestionView
		AddQuestion    []Button
		Refresh        Button
		Submit         Button
	}
)

// Build lays the draft out for rendering, resolving each field's message in
// errs by its positional path.
func Build(d *editor.Draft, errs errortree.Tree) View {
	view := View{
		Title:          field(fieldpath.Of("title"), d.Title, errs),
		QuestionsError: errs.Message(fieldpath.Of("questions")),
		Questions:      make([]QuestionView, 0, d.Questions.Len()),
		AddQuestion:    make([]Button, len(entity.QuestionTypes)),
		Refresh:        Button{Intent: Refresh.String(), Label: "Update"},
		Submit:         Button{Intent: Submit.String(), Label: "Save"},
	}
	for i, t := range entity.QuestionTypes {
		view.AddQuestion[i] = Button{Intent: AddQuestion(t).String(), Label: "Add " + string(t) + " question"}
	}

	for i, item := range d.Questions.Items() {
		view.Questions = append(view.Questions, question(i, item, errs))
	}
	return view
}

func question(i int, item listctl.Item[editor.QuestionDraft], errs errortree.Tree) QuestionView {
	at := fieldpath.Of("questions", i)
	q := item.Value

	qv := QuestionView{
		Index: i,
		Error: errs.Message(at),
		Key:   Field{Name: at.Child("key").String(), Value: string(item.Key)},
		Name:  field(at.Child("name"), q.Name, errs),
		Type:  field(at.Child("type"), string(q.Type), errs),
		State: stateOf(q.Type),
		Types: typeChoices(q.Type),
	}
	if qv.State != Choice {
		return qv
	}

	optionsAt := at.Child("options")
	sub := &OptionsEditor{
		Name:      optionsAt.String(),
		Error:     errs.Message(optionsAt),
		Items:     []OptionView{},
		AddIntent: AddOption(item.Key).String(),
	}
	if q.Options != nil {
		for j, option := range q.Options.Items() {
			oat := optionsAt.At(j)
			sub.Items = append(sub.Items, OptionView{
				Key:   Field{Name: oat.Child("key").String(), Value: string(option.Key)},
				Label: field(oat.Child("label"), option.Value.Label, errs),
			})
		}
	}
	qv.Options = sub
	return qv
}

func typeChoices(current entity.QuestionType) []TypeChoice {
	out := make([]TypeChoice, 0, len(entity.QuestionTypes)+1)
	if !current.Valid() {
		out = append(out, TypeChoice{Value: string(current), Selected: true})
	}
	for _, t := range entity.QuestionTypes {
		out = append(out, TypeChoice{Value: string(t), Selected: t == current})
	}
	return out
}

func field(at fieldpath.Path, value string, errs errortree.Tree) Field {
	return Field{
		Name:  at.String(),
		Value: value,
		Error: errs.Message(at),
	}
}
