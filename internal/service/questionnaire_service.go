// Package service accepts questionnaire submissions: it validates them,
// persists the accepted ones and announces them to the rest of the system.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/Koyo-os/questionnaire-service/internal/schema"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/Koyo-os/questionnaire-service/pkg/retrier"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("questionnaire not found")
	ErrInvalidID = errors.New("invalid questionnaire id")
)

type Status int

const (
	Rejected Status = iota + 1
	Accepted
)

func (s Status) String() string {
	switch s {
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome of a submission. Rejected outcomes carry the errors and the
// values as received; accepted ones the new id and where to go next.
type Outcome struct {
	Status   Status
	ID       string
	Redirect string
	Errors   errortree.Tree
	Echo     url.Values
}

type Options struct {
	SuccessLocation string
	Sanitize        bool
	CacheRetry      retrier.RetrierOpts
	CacheTimeout    time.Duration
}

type Service struct {
	casher    Casher
	repo      Repository
	publisher Publisher
	loader    Loader
	logger    *logger.Logger
	opts      Options

	background sync.WaitGroup
}

func Init(casher Casher, repo Repository, publisher Publisher, loader Loader, logger *logger.Logger, opts Options) *Service {
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = 5 * time.Second
	}

	return &Service{
		casher:    casher,
		repo:      repo,
		publisher: publisher,
		loader:    loader,
		logger:    logger,
		opts:      opts,
	}
}

// Wait blocks until background cache writes have finished
func (s *Service) Wait() {
	s.background.Wait()
}

// LoadTemplate returns the questionnaire new drafts start from
func (s *Service) LoadTemplate(ctx context.Context) (entity.QuestionnaireForm, error) {
	form, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("error load template", zap.Error(err))
		return entity.QuestionnaireForm{}, fmt.Errorf("failed to load template: %w", err)
	}
	return form.Normalize(), nil
}

// Submit handles a flattened form submission
func (s *Service) Submit(ctx context.Context, values url.Values) (Outcome, error) {
	if s.opts.Sanitize {
		values = sanitizeValues(values)
	}

	return s.finish(ctx, schema.ParseValues(values), values)
}

// SubmitValue handles an already nested submission such as a JSON body
func (s *Service) SubmitValue(ctx context.Context, raw any) (Outcome, error) {
	if s.opts.Sanitize {
		raw = sanitizeValue(raw)
	}

	return s.finish(ctx, schema.Parse(raw), fieldpath.Encode(raw))
}

func (s *Service) finish(ctx context.Context, res schema.Result, echo url.Values) (Outcome, error) {
	if !res.Valid() {
		s.logger.Debug("submission rejected", zap.Int("issues", len(res.Issues)))
		return Outcome{
			Status: Rejected,
			Errors: res.Errors(),
			Echo:   echo,
		}, nil
	}

	record := entity.NewRecord(res.Form)
	if err := s.repo.Create(ctx, record); err != nil {
		return Outcome{}, fmt.Errorf("failed to create questionnaire in repository: %w", err)
	}

	id := record.ID.String()
	s.cache(ctx, record.ToOutput())

	if err := s.publisher.Publish(ctx, entity.CreatedPayload{
		ID:            id,
		Title:         record.Title,
		QuestionCount: len(record.Questions),
	}, entity.EventQuestionnaireCreated); err != nil {
		s.logger.Error("error publish questionnaire created",
			zap.String("questionnaire_id", id),
			zap.Error(err))
	}

	return Outcome{
		Status:   Accepted,
		ID:       id,
		Redirect: s.opts.SuccessLocation,
	}, nil
}

// cache stores out in the background, retrying as configured. Failures are
// logged only.
func (s *Service) cache(ctx context.Context, out entity.OutputQuestionnaire) {
	ctx = context.WithoutCancel(ctx)

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		err := retrier.Do(uint8(s.opts.CacheRetry.Count), s.opts.CacheRetry.Interval, func() error {
			ctx, cancel := context.WithTimeout(ctx, s.opts.CacheTimeout)
			defer cancel()

			return s.casher.AddToCash(ctx, out.ID, &out)
		})
		if err != nil {
			s.logger.Warn("error cache questionnaire",
				zap.String("questionnaire_id", out.ID),
				zap.Error(err))
		}
	}()
}

// evict drops a cache entry that does not hold the questionnaire it is keyed
// by. The repository is the source of truth, so failures are logged only.
func (s *Service) evict(ctx context.Context, id string) {
	s.logger.Warn("stale cache entry", zap.String("questionnaire_id", id))

	if err := s.casher.RemoveFromCash(ctx, id); err != nil {
		s.logger.Warn("error evict cache entry",
			zap.String("questionnaire_id", id),
			zap.Error(err))
	}
}

// Get returns a persisted questionnaire, from the cache when possible
func (s *Service) Get(ctx context.Context, id string) (entity.OutputQuestionnaire, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return entity.OutputQuestionnaire{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var cached entity.OutputQuestionnaire
	if err := s.casher.GetCashFor(ctx, uid.String(), &cached); err == nil {
		if cached.ID == uid.String() {
			return cached, nil
		}
		s.evict(ctx, uid.String())
	}

	record, err := s.repo.Get(ctx, uid)
	if errors.Is(err, entity.ErrQuestionnaireNotFound) {
		return entity.OutputQuestionnaire{}, ErrNotFound
	}
	if err != nil {
		return entity.OutputQuestionnaire{}, fmt.Errorf("failed to get questionnaire from repository: %w", err)
	}

	out := record.ToOutput()
	s.cache(ctx, out)

	return out, nil
}
