// Package loader reads the questionnaire template new drafts start from.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/schema"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Blank is the template used when none is configured.
func Blank() entity.QuestionnaireForm {
	return entity.QuestionnaireForm{Questions: []entity.Question{}}
}

// Loader reads a YAML template shaped like the JSON submission:
//
//	title: Customer survey
//	questions:
//	  - name: How did you hear about us?
//	    type: RADIOLIST
//	    options:
//	      - label: Friend
type Loader struct {
	path   string
	logger *logger.Logger
}

func New(path string, logger *logger.Logger) *Loader {
	return &Loader{
		path:   path,
		logger: logger,
	}
}

// Load reads the template on every call so edits apply without a restart.
// Blank fields are allowed; values of the wrong shape are not.
func (l *Loader) Load(ctx context.Context) (entity.QuestionnaireForm, error) {
	if l.path == "" {
		return Blank(), nil
	}

	if err := ctx.Err(); err != nil {
		return entity.QuestionnaireForm{}, err
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("template file not found, using blank template", zap.String("path", l.path))
		return Blank(), nil
	}
	if err != nil {
		return entity.QuestionnaireForm{}, fmt.Errorf("read template %s: %w", l.path, err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return entity.QuestionnaireForm{}, fmt.Errorf("decode template %s: %w", l.path, err)
	}

	res := schema.Parse(raw)
	malformed := res.Issues.Filter(func(is schema.Issue) bool {
		return is.Kind == schema.Malformed
	})
	if len(malformed) > 0 {
		return entity.QuestionnaireForm{}, fmt.Errorf("template %s: %s at %q", l.path, malformed[0].Message, malformed[0].Path.String())
	}

	return res.Form, nil
}
