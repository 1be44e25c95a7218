package models

import (
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// Generation is one participant submission. Status moves
// pending → processing → completed|failed and never leaves a terminal state.
// Email fields are a side channel, independent of the terminal status.
type Generation struct {
	bun.BaseModel `bun:"table:generations"`

	ID                uuid.UUID             `bun:",pk"`
	AnimationID       uuid.UUID             `bun:",notnull"`
	ParticipantData   types.ParticipantData `bun:"type:jsonb"`
	Status            GenerationStatus      `bun:",notnull"`
	GeneratedImageURL string                `bun:",nullzero"`
	ErrorCode         string                `bun:",nullzero"`
	ErrorMessage      string                `bun:",nullzero"`
	FinalPrompt       string                `bun:",nullzero"`
	EmailSent         bool                  `bun:",default:false"`
	EmailError        string                `bun:",nullzero"`
	StatsRecorded     bool                  `bun:",default:false"`
	CompletedAt       bun.NullTime          `bun:",nullzero"`
	UpdatedAt         bun.NullTime          `bun:",nullzero,notnull,default:current_timestamp"`
	CreatedAt         bun.NullTime          `bun:",nullzero,notnull,default:current_timestamp"`
}

func (g *Generation) IsTerminal() bool {
	return g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed
}
