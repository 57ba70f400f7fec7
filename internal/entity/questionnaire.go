// Package entity defines the core data structures used throughout the application
package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQuestionnaireNotFound is returned by storage lookups for unknown ids.
var ErrQuestionnaireNotFound = errors.New("questionnaire not found")

// QuestionType tags how a question is answered.
type QuestionType string

const (
	TypeText      QuestionType = "TEXT"
	TypeNumber    QuestionType = "NUMBER"
	TypeRadioList QuestionType = "RADIOLIST"
)

// QuestionTypes lists the allowed tags in presentation order.
var QuestionTypes = []QuestionType{TypeText, TypeNumber, TypeRadioList}

// Valid reports whether t is one of QuestionTypes. Matching is case-sensitive.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresOptions is true for types whose answers are picked from options.
func (t QuestionType) RequiresOptions() bool {
	return t == TypeRadioList
}

type (
	// Option is one labeled choice of a RADIOLIST question
	Option struct {
		Label string `json:"label" validate:"notblank"`
	}

	// Question is a single entry of a questionnaire. Options only carry
	// meaning when Type requires them.
	Question struct {
		Name    string       `json:"name" validate:"notblank"`
		Type    QuestionType `json:"type" validate:"questiontype"`
		Options []Option     `json:"options,omitempty" validate:"dive"`
	}

	// QuestionnaireForm is the editable questionnaire definition
	QuestionnaireForm struct {
		Title     string     `json:"title" validate:"notblank"`
		Questions []Question `json:"questions" validate:"dive"`
	}
)

// Normalize returns the canonical shape of f: Questions is never nil,
// Options is a non-nil list for types that require it and nil otherwise.
func (f QuestionnaireForm) Normalize() QuestionnaireForm {
	out := QuestionnaireForm{
		Title:     f.Title,
		Questions: make([]Question, len(f.Questions)),
	}
	for i, q := range f.Questions {
		nq := Question{Name: q.Name, Type: q.Type}
		if q.Type.RequiresOptions() {
			nq.Options = append(make([]Option, 0, len(q.Options)), q.Options...)
		}
		out.Questions[i] = nq
	}
	return out
}

type (
	// QuestionnaireRecord is the persisted form of an accepted questionnaire
	QuestionnaireRecord struct {
		ID        uuid.UUID        `gorm:"type:char(36);primaryKey"`
		Title     string           `gorm:"not null"`
		Questions []QuestionRecord `gorm:"foreignKey:QuestionnaireID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
		CreatedAt time.Time
	}

	// QuestionRecord keeps the position of the question inside its questionnaire
	QuestionRecord struct {
		ID              uint      `gorm:"primaryKey"`
		QuestionnaireID uuid.UUID `gorm:"type:char(36);index"`
		Position        int
		Name            string
		Type            string
		Options         []OptionRecord `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	}

	// OptionRecord is one persisted RADIOLIST option
	OptionRecord struct {
		ID         uint `gorm:"primaryKey"`
		QuestionID uint `gorm:"index"`
		Position   int
		Label      string
	}

	// OutputQuestionnaire is a DTO for questionnaire data in API responses
	OutputQuestionnaire struct {
		ID        string   `json:"id" msgpack:"id"`
		CreatedAt string   `json:"created_at" msgpack:"created_at"`
		Form      FormView `json:"form" msgpack:"form"`
	}

	// FormView mirrors QuestionnaireForm with serializer tags for the cache
	FormView struct {
		Title     string         `json:"title" msgpack:"title"`
		Questions []QuestionView `json:"questions" msgpack:"questions"`
	}

	QuestionView struct {
		Name    string   `json:"name" msgpack:"name"`
		Type    string   `json:"type" msgpack:"type"`
		Options []string `json:"options,omitempty" msgpack:"options,omitempty"`
	}
)

// NewRecord assigns a fresh identity to f and lays it out for storage.
func NewRecord(f QuestionnaireForm) *QuestionnaireRecord {
	f = f.Normalize()
	rec := &QuestionnaireRecord{
		ID:        uuid.New(),
		Title:     f.Title,
		Questions: make([]QuestionRecord, len(f.Questions)),
	}
	for i, q := range f.Questions {
		qr := QuestionRecord{
			Position: i,
			Name:     q.Name,
			Type:     string(q.Type),
		}
		for j, o := range q.Options {
			qr.Options = append(qr.Options, OptionRecord{Position: j, Label: o.Label})
		}
		rec.Questions[i] = qr
	}
	return rec
}

// Form converts a record back into the editable value. Children are
// expected in position order.
func (r *QuestionnaireRecord) Form() QuestionnaireForm {
	out := QuestionnaireForm{
		Title:     r.Title,
		Questions: make([]Question, len(r.Questions)),
	}
	for i, qr := range r.Questions {
		q := Question{Name: qr.Name, Type: QuestionType(qr.Type)}
		for _, or := range qr.Options {
			q.Options = append(q.Options, Option{Label: or.Label})
		}
		out.Questions[i] = q
	}
	return out.Normalize()
}

// ToOutput converts a record to its DTO representation
func (r *QuestionnaireRecord) ToOutput() OutputQuestionnaire {
	form := r.Form()
	view := FormView{
		Title:     form.Title,
		Questions: make([]QuestionView, len(form.Questions)),
	}
	for i, q := range form.Questions {
		qv := QuestionView{Name: q.Name, Type: string(q.Type)}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, o.Label)
		}
		view.Questions[i] = qv
	}
	return OutputQuestionnaire{
		ID:        r.ID.String(),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		Form:      view,
	}
}
