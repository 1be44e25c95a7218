package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type IAnimationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Animation, error)
	Create(ctx context.Context, animation *models.Animation) (*models.Animation, error)
}

type AnimationRepository struct {
	db bun.IDB
}

func NewAnimationRepository(db *bun.DB) IAnimationRepository {
	return &AnimationRepository{db: db}
}

func (r *AnimationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Animation, error) {
	var animation models.Animation
	err := r.db.NewSelect().Model(&animation).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("animation %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	return &animation, nil
}

func (r *AnimationRepository) Create(ctx context.Context, animation *models.Animation) (*models.Animation, error) {
	if animation == nil {
		return nil, fmt.Errorf("animation model is nil")
	}
	if animation.ID == uuid.Nil {
		animation.ID = uuid.New()
	}

	if err := r.db.NewInsert().Model(animation).Returning("*").Scan(ctx); err != nil {
		return nil, err
	}

	return animation, nil
}
