package repository

import (
	"context"

	"github.com/user/perfwatch/internal/entity"
)

// JobProducer is the enqueue side of a named job queue.
type JobProducer interface {
	Name() entity.QueueName
	// Add enqueues a one-shot job. It reports false when a job with the same ID already exists.
	Add(ctx context.Context, job *entity.Job) (bool, error)
	// AddRepeatable registers (or replaces) a recurring job under a deterministic key.
	AddRepeatable(ctx context.Context, def *entity.RepeatDefinition) error
	// RemoveRepeatable deletes a recurring job. It reports false when the key was not registered.
	RemoveRepeatable(ctx context.Context, key string) (bool, error)
	// Repeatables lists the registered recurring jobs.
	Repeatables(ctx context.Context) ([]*entity.RepeatDefinition, error)
}

// JobConsumer is the processing side of a named job queue.
type JobConsumer interface {
	Name() entity.QueueName
	// Promote moves due delayed jobs to waiting and returns how many moved.
	Promote(ctx context.Context) (int, error)
	// Take moves the next waiting job to active. It returns nil, nil when the queue is empty.
	Take(ctx context.Context) (*entity.Job, error)
	ExtendLock(ctx context.Context, job *entity.Job) error
	Complete(ctx context.Context, job *entity.Job) error
	Fail(ctx context.Context, job *entity.Job, reason error) error
	// RecoverStalled requeues active jobs whose lock expired.
	RecoverStalled(ctx context.Context) (int, error)
}

// QueueRepository is a full job queue, including its queryable state.
type QueueRepository interface {
	JobProducer
	JobConsumer
	Jobs(ctx context.Context, states ...entity.JobState) ([]*entity.Job, error)
	Counts(ctx context.Context) (map[entity.JobState]int64, error)
}
