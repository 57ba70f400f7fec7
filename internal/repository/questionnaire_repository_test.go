package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := Open("sqlite", dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := Init(db, logger.Nop())
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	form := entity.QuestionnaireForm{
		Title: "Survey",
		Questions: []entity.Question{
			{Name: "Why?", Type: entity.TypeText},
			{Name: "Pick", Type: entity.TypeRadioList, Options: []entity.Option{
				{Label: "C"}, {Label: "A"}, {Label: "B"},
			}},
			{Name: "How many?", Type: entity.TypeNumber},
		},
	}
	record := entity.NewRecord(form)

	require.NoError(t, repo.Create(ctx, record))

	got, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, form.Normalize(), got.Form(), "positions survive the round trip")
}

func TestRepository_GetUnknown(t *testing.T) {
	repo := setupRepository(t)

	_, err := repo.Get(context.Background(), uuid.New())

	assert.ErrorIs(t, err, entity.ErrQuestionnaireNotFound)
}

func TestRepository_IsHealthy(t *testing.T) {
	repo := setupRepository(t)

	assert.True(t, repo.IsHealthy())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "")

	assert.ErrorContains(t, err, "unsupported driver")
}
