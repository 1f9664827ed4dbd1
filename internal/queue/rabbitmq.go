package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	// DefaultQueueName is the default queue name
	DefaultQueueName = "focus_reconcile_jobs"
	// DefaultDLQName is the default dead letter queue name
	DefaultDLQName = "focus_reconcile_jobs_dlq"
	// DefaultExchangeName is the default exchange name
	DefaultExchangeName = "focus_jobs"
	// DefaultDelayedExchangeName is the default delayed exchange name (requires plugin)
	DefaultDelayedExchangeName = "focus_jobs_delayed"
)

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
	logger              *zap.Logger
}

// NewRabbitMQQueue creates a new RabbitMQ queue
func NewRabbitMQQueue(amqpURL string, logger *zap.Logger) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queue := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
		logger:              logger,
	}

	if err := queue.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return queue, nil
}

// setup configures exchanges and queues
func (q *RabbitMQQueue) setup() error {
	// Declare delayed exchange (requires rabbitmq_delayed_message_exchange plugin)
	delayedArgs := amqp.Table{
		"x-delayed-type": "direct",
	}
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName,
		"x-delayed-message",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		delayedArgs,
	)
	if err != nil {
		// A failed declare closes the channel; reopen and continue without
		// delayed delivery
		if q.channel.IsClosed() {
			newCh, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = newCh
		}
		q.logger.Warn("delayed message exchange not available, delayed jobs will publish immediately",
			zap.Error(err),
		)
	}

	// Declare regular exchange
	err = q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare dead letter queue
	_, err = q.channel.QueueDeclare(
		q.dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{},
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind DLQ to exchange
	err = q.channel.QueueBind(
		q.dlqName,
		"dlq", // routing key
		q.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Declare main queue with DLQ
	queueArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": "dlq",
	}
	_, err = q.channel.QueueDeclare(
		q.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind main queue to both exchanges
	err = q.channel.QueueBind(
		q.queueName,
		"jobs", // routing key
		q.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	// Bind to delayed exchange if available (ignore error if plugin not installed)
	_ = q.channel.QueueBind(
		q.queueName,
		"jobs", // routing key
		q.delayedExchangeName,
		false,
		nil,
	)

	return nil
}

// Enqueue adds a job to the queue
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         jobJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
	}

	// Calculate TTL from NotAfter if set
	if job.NotAfter != nil {
		ttl := time.Until(*job.NotAfter)
		if ttl > 0 {
			publishing.Expiration = fmt.Sprintf("%d", int(ttl.Milliseconds()))
		}
	}

	// Use delayed exchange if NotBefore is set
	exchangeName := q.exchangeName
	if job.NotBefore != nil {
		delay := time.Until(*job.NotBefore)
		if delay > 0 {
			exchangeName = q.delayedExchangeName
			publishing.Headers = amqp.Table{
				"x-delay": int(delay.Milliseconds()),
			}
		}
	}

	err = q.channel.PublishWithContext(
		ctx,
		exchangeName,
		"jobs", // routing key
		false,  // mandatory
		false,  // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// Consume returns a channel of messages from the queue using async delivery.
// Each worker process calls this once; prefetchCount=1 gives fair dispatch
// across multiple workers.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	// Dedicated channel for consuming, separate from the publisher channel
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack (false = manual ack required)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() {
			_ = consumeCh.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				var job Job
				if err := json.Unmarshal(delivery.Body, &job); err != nil {
					// Invalid message, send to DLQ
					_ = delivery.Nack(false, false)
					errChan <- fmt.Errorf("failed to unmarshal job: %w", err)
					continue
				}

				if job.IsExpired() {
					_ = delivery.Nack(false, false)
					continue
				}

				// Respect NotBefore: requeue jobs whose time has not come
				if !job.ShouldProcess() {
					_ = delivery.Nack(false, true)
					continue
				}

				msg := &Message{
					Job:         &job,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}

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

// PurgeOlderThan drains dead-letter messages older than retention and
// returns how many it dropped. Newer messages are requeued untouched.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	state, err := q.channel.QueueInspect(q.dlqName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	purged := 0

	// Bounded by the message count observed up front so requeued messages
	// are not revisited in this pass
	for i := 0; i < state.Messages; i++ {
		if ctx.Err() != nil {
			return purged, ctx.Err()
		}

		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to get DLQ message: %w", err)
		}
		if !ok {
			break
		}

		if msg.Timestamp.Before(cutoff) {
			if err := msg.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to drop DLQ message: %w", err)
			}
			purged++
			continue
		}

		if err := msg.Nack(false, true); err != nil {
			return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
		}
	}

	return purged, nil
}

// HealthCheck verifies the queue connection is healthy
func (q *RabbitMQQueue) HealthCheck(_ context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel is closed")
	}
	return nil
}

// Close closes the queue connection
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

// Ensure RabbitMQQueue implements the interfaces
var (
	_ JobQueue  = (*RabbitMQQueue)(nil)
	_ DLQPurger = (*RabbitMQQueue)(nil)
)
