package models

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AnimationStat aggregates counters per animation. Rows are incremented under
// the generation's statsRecorded guard so repeated reads of one completed
// generation count once.
type AnimationStat struct {
	bun.BaseModel `bun:"table:animation_stats"`

	AnimationID uuid.UUID    `bun:",pk"`
	Completed   int64        `bun:",default:0"`
	Failed      int64        `bun:",default:0"`
	UpdatedAt   bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}
