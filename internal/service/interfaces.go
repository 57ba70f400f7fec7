package service

import (
	"context"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/google/uuid"
)

type (
	Repository interface {
		Create(ctx context.Context, record *entity.QuestionnaireRecord) error
		Get(ctx context.Context, id uuid.UUID) (*entity.QuestionnaireRecord, error)
	}

	Publisher interface {
		Publish(ctx context.Context, payload any, routingKey string) error
	}

	Casher interface {
		AddToCash(ctx context.Context, id string, payload any) error
		GetCashFor(ctx context.Context, id string, out any) error // out must be a pointer
		RemoveFromCash(ctx context.Context, id string) error
	}

	// Loader provides the questionnaire a new draft starts from
	Loader interface {
		Load(ctx context.Context) (entity.QuestionnaireForm, error)
	}
)
