package notification

import (
	"context"
	"errors"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/repository"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/mq"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Worker consumes notification events and sends result emails off the
// generation's critical path. Each send's outcome is written back to the
// generation's email fields; a failed send is recorded, not retried.
type Worker struct {
	mq          mq.MQ
	notifier    Notifier
	generations repository.IGenerationRepository
	animations  repository.IAnimationRepository
	wp          *workerpool.WorkerPool
	logger      *zap.Logger
}

func NewWorker(
	queue mq.MQ,
	notifier Notifier,
	generations repository.IGenerationRepository,
	animations repository.IAnimationRepository,
	maxWorkers int,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Worker{
		mq:          queue,
		notifier:    notifier,
		generations: generations,
		animations:  animations,
		wp:          workerpool.New(maxWorkers),
		logger:      logger,
	}
}

// Run blocks consuming the notifications topic until the context is done or
// the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		data, err := w.mq.Receive(ctx, mq.NotificationsTopic)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, mq.ErrQueueClosed) || errors.Is(err, mq.ErrTopicClosed) {
				return nil
			}
			return err
		}

		var event Event
		if err := msgpack.Unmarshal(data, &event); err != nil {
			w.logger.Error("failed to decode notification event", zap.Error(err))
			continue
		}

		w.wp.Submit(func() {
			w.process(ctx, event)
		})
	}
}

func (w *Worker) Stop() {
	w.wp.StopWait()
}

func (w *Worker) process(ctx context.Context, event Event) {
	id, err := uuid.Parse(event.GenerationID)
	if err != nil {
		w.logger.Error("notification event carries invalid generation id",
			zap.String("generation_id", event.GenerationID), zap.Error(err))
		return
	}

	generation, err := w.generations.GetByID(ctx, id)
	if err != nil {
		w.logger.Error("failed to load generation for notification", zap.Error(err))
		return
	}

	animation, err := w.animations.GetByID(ctx, generation.AnimationID)
	if err != nil {
		w.logger.Error("failed to load animation for notification", zap.Error(err))
		return
	}

	sendErr := w.notifier.SendGenerationResult(ctx, generation, animation)

	sent := sendErr == nil
	errText := ""
	if sendErr != nil {
		errText = sendErr.Error()
		w.logger.Warn("result email failed",
			zap.String("generation_id", generation.ID.String()),
			zap.Error(sendErr))
	}

	if err := w.generations.SetEmailResult(ctx, generation.ID, sent, errText); err != nil {
		w.logger.Error("failed to record email outcome", zap.Error(err))
	}
}
