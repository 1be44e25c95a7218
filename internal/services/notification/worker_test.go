package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/repository"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/mq"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type memGenerationRepo struct {
	mu          sync.Mutex
	generations map[uuid.UUID]*models.Generation
	emailSet    chan uuid.UUID
}

func newMemGenerationRepo(generations ...*models.Generation) *memGenerationRepo {
	repo := &memGenerationRepo{
		generations: make(map[uuid.UUID]*models.Generation),
		emailSet:    make(chan uuid.UUID, 8),
	}
	for _, g := range generations {
		repo.generations[g.ID] = g
	}
	return repo
}

func (r *memGenerationRepo) get(id uuid.UUID) *models.Generation {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.generations[id]
	return &copied
}

func (r *memGenerationRepo) Create(ctx context.Context, generation *models.Generation) (*models.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[generation.ID] = generation
	return generation, nil
}

func (r *memGenerationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	generation, ok := r.generations[id]
	if !ok {
		return nil, fmt.Errorf("generation %s: %w", id, repository.ErrNotFound)
	}
	copied := *generation
	return &copied, nil
}

func (r *memGenerationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.GenerationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[id].Status = status
	return nil
}

func (r *memGenerationRepo) MarkCompleted(ctx context.Context, id uuid.UUID, imageURL, finalPrompt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.generations[id]
	g.Status = models.GenerationStatusCompleted
	g.GeneratedImageURL = imageURL
	g.FinalPrompt = finalPrompt
	return nil
}

func (r *memGenerationRepo) MarkFailed(ctx context.Context, id uuid.UUID, genErr *types.GenerationError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.generations[id]
	g.Status = models.GenerationStatusFailed
	g.ErrorCode = string(genErr.Code)
	g.ErrorMessage = genErr.Message
	return nil
}

func (r *memGenerationRepo) SetEmailResult(ctx context.Context, id uuid.UUID, sent bool, emailErr string) error {
	r.mu.Lock()
	g := r.generations[id]
	g.EmailSent = sent
	g.EmailError = emailErr
	r.mu.Unlock()

	r.emailSet <- id
	return nil
}

func (r *memGenerationRepo) TryMarkStatsRecorded(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.generations[id]
	if g.StatsRecorded {
		return false, nil
	}
	g.StatsRecorded = true
	return true, nil
}

type memAnimationRepo struct {
	animations map[uuid.UUID]*models.Animation
}

func (r *memAnimationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Animation, error) {
	animation, ok := r.animations[id]
	if !ok {
		return nil, fmt.Errorf("animation %s: %w", id, repository.ErrNotFound)
	}
	return animation, nil
}

func (r *memAnimationRepo) Create(ctx context.Context, animation *models.Animation) (*models.Animation, error) {
	r.animations[animation.ID] = animation
	return animation, nil
}

type stubNotifier struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (n *stubNotifier) SendGenerationResult(ctx context.Context, generation *models.Generation, animation *models.Animation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func runWorkerFixture(t *testing.T, notifier Notifier) (*memGenerationRepo, uuid.UUID) {
	t.Helper()

	animationID := uuid.New()
	generationID := uuid.New()

	generations := newMemGenerationRepo(&models.Generation{
		ID:                generationID,
		AnimationID:       animationID,
		Status:            models.GenerationStatusCompleted,
		GeneratedImageURL: "https://cdn.example.com/results/x.png",
		ParticipantData:   types.ParticipantData{Email: "ada@example.com", FirstName: "Ada"},
	})
	animations := &memAnimationRepo{animations: map[uuid.UUID]*models.Animation{
		animationID: {ID: animationID, Name: "test animation"},
	}}

	queue, err := mq.NewInMemoryMQ(8)
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	worker := NewWorker(queue, notifier, generations, animations, 1, nil)
	t.Cleanup(worker.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go worker.Run(ctx)

	data, err := msgpack.Marshal(&Event{GenerationID: generationID.String()})
	require.NoError(t, err)
	require.NoError(t, queue.Publish(ctx, mq.NotificationsTopic, data))

	select {
	case <-generations.emailSet:
	case <-time.After(2 * time.Second):
		t.Fatal("email outcome was never recorded")
	}

	return generations, generationID
}

func TestWorkerRecordsSuccessfulSend(t *testing.T) {
	generations, generationID := runWorkerFixture(t, &stubNotifier{})

	generation := generations.get(generationID)
	assert.True(t, generation.EmailSent)
	assert.Empty(t, generation.EmailError)
	assert.Equal(t, models.GenerationStatusCompleted, generation.Status)
}

func TestWorkerRecordsFailedSendWithoutTouchingStatus(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("smtp connection refused")}
	generations, generationID := runWorkerFixture(t, notifier)

	generation := generations.get(generationID)
	assert.False(t, generation.EmailSent)
	assert.Contains(t, generation.EmailError, "smtp connection refused")

	// A failed send never flips the terminal status.
	assert.Equal(t, models.GenerationStatusCompleted, generation.Status)
	assert.Equal(t, 1, notifier.calls)
}
