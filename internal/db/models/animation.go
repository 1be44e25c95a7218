package models

import (
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Animation owns the ordered block pipeline executed once per generation,
// plus the email template used for result delivery.
type Animation struct {
	bun.BaseModel `bun:"table:animations"`

	ID              uuid.UUID             `bun:",pk"`
	Name            string                `bun:",notnull"`
	Pipeline        []types.PipelineBlock `bun:"type:jsonb"`
	InputCollection types.InputCollection `bun:"type:jsonb"`
	EmailSubject    string                `bun:",nullzero"`
	EmailTemplate   string                `bun:",nullzero"`
	UpdatedAt       bun.NullTime          `bun:",nullzero,notnull,default:current_timestamp"`
	CreatedAt       bun.NullTime          `bun:",nullzero,notnull,default:current_timestamp"`
}
