package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("record not found")

type IGenerationRepository interface {
	Create(ctx context.Context, generation *models.Generation) (*models.Generation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.GenerationStatus) error
	MarkCompleted(ctx context.Context, id uuid.UUID, imageURL, finalPrompt string) error
	MarkFailed(ctx context.Context, id uuid.UUID, genErr *types.GenerationError) error
	SetEmailResult(ctx context.Context, id uuid.UUID, sent bool, emailErr string) error
	TryMarkStatsRecorded(ctx context.Context, id uuid.UUID) (bool, error)
}

type GenerationRepository struct {
	db bun.IDB
}

func NewGenerationRepository(db *bun.DB) IGenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, generation *models.Generation) (*models.Generation, error) {
	if generation == nil {
		return nil, fmt.Errorf("generation model is nil")
	}
	if generation.ID == uuid.Nil {
		generation.ID = uuid.New()
	}
	if generation.Status == "" {
		generation.Status = models.GenerationStatusPending
	}

	if err := r.db.NewInsert().Model(generation).Returning("*").Scan(ctx); err != nil {
		return nil, err
	}

	return generation, nil
}

func (r *GenerationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	var generation models.Generation
	err := r.db.NewSelect().Model(&generation).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("generation %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	return &generation, nil
}

func (r *GenerationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.GenerationStatus) error {
	_, err := r.db.NewUpdate().
		Model((*models.Generation)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *GenerationRepository) MarkCompleted(ctx context.Context, id uuid.UUID, imageURL, finalPrompt string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Generation)(nil)).
		Set("status = ?", models.GenerationStatusCompleted).
		Set("generated_image_url = ?", imageURL).
		Set("final_prompt = ?", finalPrompt).
		Set("completed_at = ?", time.Now()).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *GenerationRepository) MarkFailed(ctx context.Context, id uuid.UUID, genErr *types.GenerationError) error {
	code := types.ErrCodeInternal
	message := "unexpected error"
	if genErr != nil {
		code = genErr.Code
		message = genErr.Message
	}

	_, err := r.db.NewUpdate().
		Model((*models.Generation)(nil)).
		Set("status = ?", models.GenerationStatusFailed).
		Set("error_code = ?", string(code)).
		Set("error_message = ?", message).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *GenerationRepository) SetEmailResult(ctx context.Context, id uuid.UUID, sent bool, emailErr string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Generation)(nil)).
		Set("email_sent = ?", sent).
		Set("email_error = ?", emailErr).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// TryMarkStatsRecorded flips statsRecorded exactly once. The WHERE clause is
// the idempotency guard: a second caller matches zero rows and gets false.
func (r *GenerationRepository) TryMarkStatsRecorded(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Generation)(nil)).
		Set("stats_recorded = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND stats_recorded = ?", id, false).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
