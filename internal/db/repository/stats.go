package repository

import (
	"context"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type IStatRepository interface {
	IncrementCompleted(ctx context.Context, animationID uuid.UUID) error
	IncrementFailed(ctx context.Context, animationID uuid.UUID) error
	GetByAnimationID(ctx context.Context, animationID uuid.UUID) (*models.AnimationStat, error)
}

type StatRepository struct {
	db bun.IDB
}

func NewStatRepository(db *bun.DB) IStatRepository {
	return &StatRepository{db: db}
}

func (r *StatRepository) IncrementCompleted(ctx context.Context, animationID uuid.UUID) error {
	return r.increment(ctx, animationID, "completed")
}

func (r *StatRepository) IncrementFailed(ctx context.Context, animationID uuid.UUID) error {
	return r.increment(ctx, animationID, "failed")
}

func (r *StatRepository) increment(ctx context.Context, animationID uuid.UUID, column string) error {
	stat := &models.AnimationStat{AnimationID: animationID}

	_, err := r.db.NewInsert().
		Model(stat).
		Value(column, "1").
		On("CONFLICT (animation_id) DO UPDATE").
		Set(column+" = animation_stat."+column+" + 1").
		Set("updated_at = ?", time.Now()).
		Exec(ctx)
	return err
}

func (r *StatRepository) GetByAnimationID(ctx context.Context, animationID uuid.UUID) (*models.AnimationStat, error) {
	var stat models.AnimationStat
	if err := r.db.NewSelect().Model(&stat).Where("animation_id = ?", animationID).Scan(ctx); err != nil {
		return nil, err
	}

	return &stat, nil
}
