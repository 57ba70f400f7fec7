// Package listener turns broker submission requests into service calls
package listener

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/service"
	"github.com/Koyo-os/questionnaire-service/pkg/config"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"
)

type (
	Submitter interface {
		Submit(ctx context.Context, values url.Values) (service.Outcome, error)
	}

	Publisher interface {
		Publish(ctx context.Context, payload any, routingKey string) error
	}
)

type Listener struct {
	inputChan <-chan entity.Event
	logger    *logger.Logger
	service   Submitter
	publisher Publisher
	cfg       *config.Config
}

func Init(
	inputChan <-chan entity.Event,
	logger *logger.Logger,
	cfg *config.Config,
	service Submitter,
	publisher Publisher,
) *Listener {
	return &Listener{
		inputChan: inputChan,
		service:   service,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// Listen handles events until ctx is done or the input channel closes
func (list *Listener) Listen(ctx context.Context) {
	for {
		select {
		case event, ok := <-list.inputChan:
			if !ok {
				list.logger.Info("input channel closed, stopping listener")
				return
			}
			list.handle(ctx, event)

		case <-ctx.Done():
			list.logger.Info("stopping listeners...")
			return
		}
	}
}

func (list *Listener) handle(ctx context.Context, event entity.Event) {
	switch event.Type {
	case list.cfg.Reqs.SubmitRequestType:
		values, err := decodeValues(event.Payload)
		if err != nil {
			list.logger.Error("error unmarshal event payload to submission",
				zap.String("event_type", event.Type),
				zap.String("event_id", event.ID),
				zap.Error(err))
			return
		}

		outcome, err := list.service.Submit(ctx, values)
		if err != nil {
			list.logger.Error("error submit questionnaire",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return
		}

		if outcome.Status != service.Rejected {
			return
		}

		if err := list.publisher.Publish(ctx, entity.RejectedPayload{
			RequestID: event.ID,
			Errors:    outcome.Errors,
		}, entity.EventQuestionnaireRejected); err != nil {
			list.logger.Error("error publish rejection",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}

	default:
		list.logger.Debug("ignoring event",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID))
	}
}

// decodeValues reads a JSON object of flattened keys. A value is a string or
// a list of strings, as a form would post it.
func decodeValues(payload []byte) (url.Values, error) {
	var raw map[string]any
	if err := gojson.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	values := make(url.Values, len(raw))
	for key, v := range raw {
		switch t := v.(type) {
		case string:
			values.Set(key, t)
		case []any:
			for _, item := range t {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("key %q: list items must be strings", key)
				}
				values.Add(key, s)
			}
		case nil:
			values.Set(key, "")
		default:
			values.Set(key, fmt.Sprint(t))
		}
	}
	return values, nil
}
