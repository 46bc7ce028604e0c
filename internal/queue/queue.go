package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type QueueName string

const (
	QueueTransferStatus QueueName = "transfer_status"
)

type Config struct {
	URL               string
	ReconnectInterval time.Duration
	ConnectTimeout    time.Duration
}

// Queue owns one RabbitMQ connection. Publish opens a short lived channel
// per message and declares the target queue as durable.
type Queue struct {
	config *Config
	conn   *amqp.Connection
	mu     sync.Mutex
	log    *slog.Logger
}

func New(config *Config) *Queue {
	return &Queue{
		config: config,
		log:    slog.With("component", "queue"),
	}
}

// Connect dials once. Short lived runs use it instead of Start.
func (q *Queue) Connect(ctx context.Context) error {
	_, err := q.dial(ctx)
	return err
}

// dial stores the new connection under the lock and hands it back so the
// caller never reads q.conn unguarded.
func (q *Queue) dial(ctx context.Context) (*amqp.Connection, error) {
	q.log.Info("connecting to Rabbit MQ...")

	conn, err := amqp.DialConfig(q.config.URL, amqp.Config{
		Dial: amqp.DefaultDial(q.config.ConnectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbit mq: %w", err)
	}

	q.mu.Lock()
	q.conn = conn
	q.mu.Unlock()

	q.log.Info("connected to Rabbit MQ...")

	return conn, nil
}

// Start keeps the connection open until ctx is done, redialing after every
// failure.
func (q *Queue) Start(ctx context.Context) error {
	q.log.Info("Starting the queue manager.")
	defer q.log.Info("Stopping the queue manager.")

	for {
		if conn, err := q.dial(ctx); err != nil {
			q.log.Error("connection to Rabbit MQ failed", "error", err)
		} else {
			connErrors := make(chan *amqp.Error, 1)
			conn.NotifyClose(connErrors)

			select {
			case <-ctx.Done():
				q.Close()
				return nil
			case err := <-connErrors:
				q.log.Error("rabbit mq connection closed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(q.config.ReconnectInterval):
		}
	}
}

func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn != nil && !q.conn.IsClosed() {
		if err := q.conn.Close(); err != nil {
			q.log.Error("closing rabbit mq connection", "error", err)
		}
	}
	q.conn = nil
}

func (q *Queue) Publish(ctx context.Context, queueName QueueName,
	message []byte) error {

	q.mu.Lock()
	conn := q.conn
	q.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return fmt.Errorf("connection is not open yet")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("couldn't open channel: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(string(queueName), true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	err = ch.PublishWithContext(ctx,
		"",                // default exchange routes by queue name
		string(queueName), // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         message,
		},
	)
	if err != nil {
		q.log.Error("Failed to publish", "queue", queueName, "error", err)
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}

	return nil
}
