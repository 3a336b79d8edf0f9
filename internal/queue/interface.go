package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error

	// Consume delivers messages until ctx is cancelled or the connection drops.
	// prefetchCount bounds unacknowledged messages held by this consumer.
	// The caller acknowledges each message.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	Close() error

	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered jobs older than a retention window
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
