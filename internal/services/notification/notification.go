// Package notification delivers the result email for completed generations.
// Delivery is a side channel: its outcome lands in the generation's email
// fields and never touches the terminal status.
package notification

import (
	"context"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
)

// Notifier sends the result of one completed generation to its participant.
// Invoked once per generation; the engine records the outcome but never
// retries delivery.
type Notifier interface {
	SendGenerationResult(ctx context.Context, generation *models.Generation, animation *models.Animation) error
}

// Event is the msgpack payload published per completed generation.
type Event struct {
	GenerationID string `msgpack:"generation_id"`
}
