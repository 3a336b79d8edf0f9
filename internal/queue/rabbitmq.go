package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the profile rebuild work queue
	DefaultQueueName = "profile_rebuild_jobs"
	// DefaultDLQName receives rebuild jobs that exhausted their retries or failed to decode
	DefaultDLQName = "profile_rebuild_jobs_dlq"
	// DefaultExchangeName is the direct exchange both queues bind to
	DefaultExchangeName = "personalization_jobs"
	// DefaultDelayedExchangeName requires the rabbitmq_delayed_message_exchange plugin
	DefaultDelayedExchangeName = "personalization_jobs_delayed"
	// DefaultWaitQueueName holds future jobs until their per-message TTL expires
	// when the delayed exchange is unavailable. It has no consumers and dead-letters
	// back into the work queue.
	DefaultWaitQueueName = "profile_rebuild_jobs_wait"

	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
	waitRoutingKey = "wait"
)

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn                *amqp.Connection
	mu                  sync.Mutex // guards channel for publishing and DLQ reads
	channel             *amqp.Channel
	logger              *zap.Logger
	queueName           string
	dlqName             string
	waitQueueName       string
	exchangeName        string
	delayedExchangeName string
	delayedAvailable    bool
}

// NewRabbitMQQueue connects and declares the exchanges and queues
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		logger:              logger,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		waitQueueName:       DefaultWaitQueueName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
	}

	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return q, nil
}

func (q *RabbitMQQueue) setup() error {
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err != nil {
		// A failed declare closes the channel
		if q.channel.IsClosed() {
			newCh, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = newCh
		}
		q.logger.Warn("delayed_exchange_unavailable", zap.Error(err))
	} else {
		q.delayedAvailable = true
	}

	if err := q.channel.ExchangeDeclare(q.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(q.dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := q.channel.QueueBind(q.dlqName, dlqRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	waitArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": jobsRoutingKey,
	}
	if _, err := q.channel.QueueDeclare(q.waitQueueName, true, false, false, false, waitArgs); err != nil {
		return fmt.Errorf("failed to declare wait queue: %w", err)
	}
	if err := q.channel.QueueBind(q.waitQueueName, waitRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind wait queue: %w", err)
	}

	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	if q.delayedAvailable {
		if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.delayedExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue to delayed exchange: %w", err)
		}
	}

	return nil
}

// Enqueue publishes a job. Jobs with a future NotBefore go through the delayed exchange
// when available and through the TTL wait queue otherwise.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	publishing, exchange, routingKey, err := q.buildPublishing(job, time.Now())
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.PublishWithContext(ctx, exchange, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

func (q *RabbitMQQueue) buildPublishing(job *Job, now time.Time) (amqp.Publishing, string, string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, "", "", fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
		Type:         string(job.Type),
	}

	if job.NotAfter != nil {
		if ttl := job.NotAfter.Sub(now); ttl > 0 {
			publishing.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}

	exchange, routingKey := q.exchangeName, jobsRoutingKey
	if job.NotBefore != nil {
		if delay := job.NotBefore.Sub(now); delay > 0 {
			if q.delayedAvailable {
				exchange = q.delayedExchangeName
				publishing.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
			} else {
				// The wait queue uses the expiration as the delay; NotAfter is
				// still enforced by the consumer.
				routingKey = waitRoutingKey
				publishing.Expiration = strconv.FormatInt(max(1, delay.Milliseconds()), 10)
			}
		}
	}
	return publishing, exchange, routingKey, nil
}

type deliveryAction int

const (
	actionProcess deliveryAction = iota
	actionDrop
	actionDefer
)

// classify decides what the consumer does with a decoded job
func classify(job *Job, now time.Time) deliveryAction {
	switch {
	case job.IsExpired(now):
		return actionDrop
	case !job.ShouldProcess(now):
		return actionDefer
	default:
		return actionProcess
	}
}

// deferDelivery republishes a job that arrived before NotBefore and acks the original.
// If the republish fails the message is dead-lettered rather than redelivered at once.
func (q *RabbitMQQueue) deferDelivery(ctx context.Context, job *Job, delivery amqp.Delivery) {
	if err := q.Enqueue(ctx, job); err != nil {
		q.logger.Warn("job_defer_failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		_ = delivery.Nack(false, false)
		return
	}
	_ = delivery.Ack(false)
}

// Consume returns a channel of messages using async delivery on a dedicated channel
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- errors.New("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					_ = delivery.Nack(false, false)
					q.logger.Warn("job_decode_failed",
						zap.String("message_id", delivery.MessageId),
						zap.Error(err))
					continue
				}

				switch classify(&job, time.Now()) {
				case actionDrop:
					_ = delivery.Ack(false)
					q.logger.Debug("job_expired", zap.String("job_id", job.ID.String()))
					continue
				case actionDefer:
					q.deferDelivery(ctx, &job, delivery)
					continue
				}

				msg := &Message{Job: &job, DeliveryTag: delivery.DeliveryTag, Channel: consumeCh}
				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// PurgeOlderThan drains DLQ messages whose timestamp is older than retention.
// It stops at the first message still inside the window.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		delivery, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}
		if !delivery.Timestamp.IsZero() && delivery.Timestamp.After(cutoff) {
			if err := delivery.Nack(false, true); err != nil {
				return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
			}
			return purged, nil
		}
		if err := delivery.Ack(false); err != nil {
			return purged, fmt.Errorf("failed to ack DLQ message: %w", err)
		}
		purged++
	}
}

// HealthCheck verifies the connection and publishing channel are open
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close closes the channel and connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)

const (
	connectInitialDelay = 2 * time.Second
	connectMaxDelay     = 30 * time.Second
)

// connectBackoff is the wait before reconnect attempt n+1: 2s doubling, capped at 30s
func connectBackoff(attempt int) time.Duration {
	if attempt >= 4 {
		return connectMaxDelay
	}
	return min(connectInitialDelay*time.Duration(1<<uint(attempt)), connectMaxDelay)
}

// ConnectWithRetry dials RabbitMQ with exponential backoff until it succeeds or attempts run out
func ConnectWithRetry(ctx context.Context, amqpURL string, attempts int, logger *zap.Logger) (*RabbitMQQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		q, err := NewRabbitMQQueue(amqpURL, logger)
		if err == nil {
			return q, nil
		}
		lastErr = err

		delay := connectBackoff(attempt)
		logger.Warn("rabbitmq_connect_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("rabbitmq unavailable after %d attempts: %w", attempts, lastErr)
}
