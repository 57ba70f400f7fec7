package presentation

import (
	"strings"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/listctl"
)

// IntentField is the form field the pressed button reports under.
const IntentField = "intent"

type Action string

const (
	ActionSubmit      Action = "submit"
	ActionAddQuestion Action = "add-question"
	ActionAddOption   Action = "add-option"
	ActionRefresh     Action = "refresh"
)

// Intent is what the author asked the form to do. Arg is the question type
// for ActionAddQuestion and the question key for ActionAddOption.
type Intent struct {
	Action Action
	Arg    string
}

var (
	Submit = Intent{Action: ActionSubmit}

	// Refresh re-renders the posted draft unchanged, so the page catches up
	// with edits such as a changed question type.
	Refresh = Intent{Action: ActionRefresh}
)

func AddQuestion(t entity.QuestionType) Intent {
	return Intent{Action: ActionAddQuestion, Arg: string(t)}
}

func AddOption(question listctl.Key) Intent {
	return Intent{Action: ActionAddOption, Arg: string(question)}
}

func (i Intent) String() string {
	if i.Arg == "" {
		return string(i.Action)
	}
	return string(i.Action) + ":" + i.Arg
}

// ParseIntent reads a button value. Anything unrecognized, the empty string
// included, means submit.
func ParseIntent(s string) Intent {
	action, arg, _ := strings.Cut(strings.TrimSpace(s), ":")

	switch Action(action) {
	case ActionAddQuestion:
		if arg == "" {
			arg = string(entity.TypeText)
		}
		return Intent{Action: ActionAddQuestion, Arg: arg}
	case ActionAddOption:
		if arg == "" {
			return Submit
		}
		return Intent{Action: ActionAddOption, Arg: arg}
	case ActionRefresh:
		return Refresh
	default:
		return Submit
	}
}

// QuestionType is the type requested by an add-question intent.
func (i Intent) QuestionType() entity.QuestionType {
	return entity.QuestionType(i.Arg)
}

// Question is the key targeted by an add-option intent.
func (i Intent) Question() listctl.Key {
	return listctl.Key(i.Arg)
}
