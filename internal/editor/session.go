package editor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/Koyo-os/questionnaire-service/internal/listctl"
	"github.com/Koyo-os/questionnaire-service/internal/schema"
)

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not completed.
var ErrSubmitInFlight = errors.New("submission already in progress")

// Status is the outcome of the latest completed submission.
type Status int

const (
	Pending Status = iota
	Rejected
	Accepted
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Response is what the submission transport reports back. A response with a
// redirect and no errors is an acceptance; anything else is a rejection.
type Response struct {
	Redirect string
	Errors   errortree.Tree
	Echo     url.Values
}

func (r Response) Accepted() bool {
	return r.Redirect != "" && r.Errors.Empty()
}

// Submitter delivers a flattened submission and reports the outcome. An
// error means the submission itself did not complete.
type Submitter interface {
	Submit(ctx context.Context, values url.Values) (Response, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, values url.Values) (Response, error)

func (f SubmitterFunc) Submit(ctx context.Context, values url.Values) (Response, error) {
	return f(ctx, values)
}

// touch records a field the author edited, by identity so it follows the
// item when positions change.
type touch struct {
	question listctl.Key
	option   listctl.Key
	field    string
}

// Session is one edit-submit cycle. Edits and Submit are expected to be
// driven from a single event loop; only the in-flight guard is atomic.
type Session struct {
	template  entity.QuestionnaireForm
	submitter Submitter
	opts      []listctl.Option

	draft    *Draft
	status   Status
	server   errortree.Tree
	redirect string
	touched  map[touch]struct{}
	inFlight atomic.Bool
}

func NewSession(template entity.QuestionnaireForm, submitter Submitter, opts ...listctl.Option) *Session {
	return &Session{
		template:  template,
		submitter: submitter,
		opts:      opts,
		draft:     FromForm(template, opts...),
		touched:   make(map[touch]struct{}),
	}
}

// Draft exposes the current draft for rendering. Mutate it through the
// session so edits are tracked.
func (s *Session) Draft() *Draft {
	return s.draft
}

func (s *Session) Status() Status {
	return s.status
}

// Redirect is the location to go to after an accepted submission.
func (s *Session) Redirect() string {
	return s.redirect
}

// Submitting reports whether a submission is in progress, during which the
// submit control should be unavailable.
func (s *Session) Submitting() bool {
	return s.inFlight.Load()
}

func (s *Session) mark(t touch) {
	s.touched[t] = struct{}{}
}

func (s *Session) SetTitle(title string) {
	s.draft.SetTitle(title)
	s.mark(touch{field: "title"})
}

func (s *Session) SetQuestionName(question listctl.Key, name string) bool {
	s.mark(touch{question: question, field: "name"})
	return s.draft.SetQuestionName(question, name)
}

func (s *Session) SetQuestionType(question listctl.Key, t entity.QuestionType) bool {
	s.mark(touch{question: question, field: "type"})
	return s.draft.SetQuestionType(question, t)
}

func (s *Session) SetOptionLabel(question, option listctl.Key, label string) bool {
	s.mark(touch{question: question, option: option, field: "label"})
	return s.draft.SetOptionLabel(question, option, label)
}

func (s *Session) AppendQuestion(t entity.QuestionType) listctl.Key {
	return s.draft.AppendQuestion(t)
}

func (s *Session) AppendOption(question listctl.Key) (listctl.Key, bool) {
	return s.draft.AppendOption(question)
}

// LiveErrors validates the current draft and keeps only the failures of
// fields the author has touched since the last submission.
func (s *Session) LiveErrors() errortree.Tree {
	if len(s.touched) == 0 {
		return errortree.Tree{}
	}

	paths := make(map[string]struct{}, len(s.touched))
	for t := range s.touched {
		if p, ok := s.resolve(t); ok {
			paths[p.String()] = struct{}{}
		}
	}

	issues := schema.Validate(s.draft.Snapshot()).Filter(func(is schema.Issue) bool {
		_, ok := paths[is.Path.String()]
		return ok
	})
	return issues.Tree()
}

func (s *Session) resolve(t touch) (fieldpath.Path, bool) {
	switch {
	case t.question == "":
		return fieldpath.Of(t.field), true
	case t.option == "":
		at, ok := s.draft.QuestionPath(t.question)
		if !ok {
			return nil, false
		}
		return at.Child(t.field), true
	default:
		at, ok := s.draft.OptionPath(t.question, t.option)
		if !ok {
			return nil, false
		}
		return at.Child(t.field), true
	}
}

// ServerErrors is the tree reported by the last rejected submission.
func (s *Session) ServerErrors() errortree.Tree {
	return s.server
}

// ActiveErrors is the tree to display next to the fields: live errors when
// there are any, otherwise the server's.
func (s *Session) ActiveErrors() errortree.Tree {
	if s.status == Accepted {
		return errortree.Tree{}
	}
	return errortree.Prefer(s.LiveErrors(), s.server)
}

// Submit sends the draft. When the transport fails the session is left
// exactly as it was and the error is returned. A rejection resets the draft
// to the echoed values (or the template when nothing is echoed) and shows
// the server's errors.
func (s *Session) Submit(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer s.inFlight.Store(false)

	resp, err := s.submitter.Submit(ctx, s.draft.Values())
	if err != nil {
		return fmt.Errorf("submit questionnaire: %w", err)
	}

	if resp.Accepted() {
		s.status = Accepted
		s.redirect = resp.Redirect
		s.server = errortree.Tree{}
		return nil
	}

	s.status = Rejected
	s.server = resp.Errors
	if len(resp.Echo) > 0 {
		s.draft = FromValues(resp.Echo, s.opts...)
	} else {
		s.draft = FromForm(s.template, s.opts...)
	}
	s.touched = make(map[touch]struct{})
	return nil
}
