// Package orchestrator ties pipeline execution to persistence, storage upload
// and asynchronous delivery for one generation at a time.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/repository"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/mq"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/pipeline"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/fileuploader"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/services/notification"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// PipelineExecutor is what the orchestrator needs from the pipeline engine.
type PipelineExecutor interface {
	Execute(ctx context.Context, pipeline []types.PipelineBlock, participant types.ParticipantData) types.PipelineResult
}

type Orchestrator struct {
	generations repository.IGenerationRepository
	animations  repository.IAnimationRepository
	stats       repository.IStatRepository
	executor    PipelineExecutor
	uploader    *fileuploader.Uploader
	mq          mq.MQ
	logger      *zap.Logger
}

func New(
	generations repository.IGenerationRepository,
	animations repository.IAnimationRepository,
	stats repository.IStatRepository,
	executor PipelineExecutor,
	uploader *fileuploader.Uploader,
	queue mq.MQ,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		generations: generations,
		animations:  animations,
		stats:       stats,
		executor:    executor,
		uploader:    uploader,
		mq:          queue,
		logger:      logger,
	}
}

// Run executes one generation's pipeline end to end. It is fire-and-forget
// from the caller's point of view: every failure, expected or not, still
// drives the record to failed so nothing stays stuck in processing. Invoking
// it on an already-terminal record is a no-op.
func (o *Orchestrator) Run(ctx context.Context, generationID uuid.UUID) {
	log := o.logger.With(zap.String("generation_id", generationID.String()))

	generation, err := o.generations.GetByID(ctx, generationID)
	if err != nil {
		log.Error("failed to load generation", zap.Error(err))
		return
	}

	if generation.IsTerminal() {
		log.Info("generation already terminal, skipping", zap.String("status", string(generation.Status)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during generation run", zap.Any("panic", r))
			o.fail(ctx, generation, types.NewGenerationError(types.ErrCodeInternal, "unexpected error during generation"))
		}
	}()

	if err := o.generations.UpdateStatus(ctx, generationID, models.GenerationStatusProcessing); err != nil {
		log.Error("failed to mark generation processing", zap.Error(err))
		return
	}

	animation, err := o.animations.GetByID(ctx, generation.AnimationID)
	if err != nil {
		code := types.ErrCodeInternal
		if errors.Is(err, repository.ErrNotFound) {
			code = types.ErrCodeNotFound
		}
		o.fail(ctx, generation, types.NewGenerationError(code, "failed to load animation: %v", err))
		return
	}

	// The pipeline was validated when the animation was saved; it is re-checked
	// here because the registry or the configuration may have changed since.
	if validation := pipeline.Validate(animation.Pipeline, animation.InputCollection); validation.Level == pipeline.SeverityError {
		o.fail(ctx, generation, types.NewGenerationError(types.ErrCodeValidation, "invalid pipeline: %s", validation.Message))
		return
	}

	result := o.executor.Execute(ctx, animation.Pipeline, generation.ParticipantData)
	log.Info("pipeline finished",
		zap.Bool("success", result.Success),
		zap.Duration("execution_time", result.ExecutionTime),
		zap.Int("blocks", len(result.BlockResults)))

	if !result.Success {
		genErr := result.Err
		if genErr == nil {
			genErr = types.NewGenerationError(types.ErrCodeInternal, "pipeline failed without a reported error")
		}
		o.fail(ctx, generation, genErr)
		return
	}

	imageURL := ""
	if len(result.FinalImage) > 0 {
		response := make(chan fileuploader.Result, 1)
		o.uploader.UploadResult(ctx, result.FinalImage, generationID.String(), response)

		uploaded := <-response
		if uploaded.Err != nil {
			o.fail(ctx, generation, types.NewGenerationError(types.ErrCodeInternal, "failed to store generated image: %v", uploaded.Err))
			return
		}
		imageURL = uploaded.URL
	}

	if err := o.generations.MarkCompleted(ctx, generationID, imageURL, result.FinalPrompt); err != nil {
		log.Error("failed to mark generation completed", zap.Error(err))
		return
	}

	o.recordStats(ctx, generation, true)

	// The email leaves on the queue after the result is already visible;
	// delivery latency or failure cannot delay or flip the terminal status.
	o.publishNotification(ctx, generationID, log)
}

func (o *Orchestrator) fail(ctx context.Context, generation *models.Generation, genErr *types.GenerationError) {
	if err := o.generations.MarkFailed(ctx, generation.ID, genErr); err != nil {
		o.logger.Error("failed to mark generation failed",
			zap.String("generation_id", generation.ID.String()),
			zap.Error(err))
		return
	}

	o.recordStats(ctx, generation, false)
}

// recordStats increments the animation's aggregate counters exactly once per
// generation, guarded by the statsRecorded flag.
func (o *Orchestrator) recordStats(ctx context.Context, generation *models.Generation, completed bool) {
	recorded, err := o.generations.TryMarkStatsRecorded(ctx, generation.ID)
	if err != nil {
		o.logger.Error("failed to claim stats guard", zap.Error(err))
		return
	}
	if !recorded {
		return
	}

	if completed {
		err = o.stats.IncrementCompleted(ctx, generation.AnimationID)
	} else {
		err = o.stats.IncrementFailed(ctx, generation.AnimationID)
	}
	if err != nil {
		o.logger.Error("failed to increment animation stats", zap.Error(err))
	}
}

func (o *Orchestrator) publishNotification(ctx context.Context, generationID uuid.UUID, log *zap.Logger) {
	if o.mq == nil {
		return
	}

	event := notification.Event{GenerationID: generationID.String()}
	data, err := msgpack.Marshal(&event)
	if err != nil {
		log.Error("failed to encode notification event", zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := o.mq.Publish(publishCtx, mq.NotificationsTopic, data); err != nil {
		log.Warn("failed to publish notification event", zap.Error(err))
	}
}
