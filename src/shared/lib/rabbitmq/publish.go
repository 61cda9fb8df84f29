package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const publishTimeout = 5 * time.Second

var _ Publisher = &QueuePublisher{}

//counterfeiter:generate . Publisher
type Publisher interface {
	Publish(msg amqp091.Publishing) error
}

func NewQueuePublisher(rabbitMQURL string, queueName string) (*QueuePublisher, error) {
	publisher := &QueuePublisher{
		rabbitMQURL: rabbitMQURL,
		queueName:   queueName,
	}

	if err := publisher.connect(); err != nil {
		return nil, errors.Wrap(err, "Failed to connect to RabbitMQ")
	}

	return publisher, nil
}

type QueuePublisher struct {
	rabbitMQURL string
	queueName   string

	lock    sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func (q *QueuePublisher) connect() error {
	q.closeConnection()

	conn, err := amqp091.Dial(q.rabbitMQURL)
	if err != nil {
		return errors.Wrap(err, "Failed to dial rabbitMQURL")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "Failed to create rabbit channel")
	}

	_, err = channel.QueueDeclare(
		q.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "Failed to declare the queue")
	}

	q.conn = conn
	q.channel = channel
	return nil
}

func (q *QueuePublisher) publishWithoutRetry(msg amqp091.Publishing) error {
	if q.channel == nil {
		return amqp091.ErrClosed
	}

	msg.ContentType = "application/json"
	msg.DeliveryMode = amqp091.Persistent

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return q.channel.PublishWithContext(
		ctx,
		"",
		q.queueName,
		false,
		false,
		msg,
	)
}

// Publish reconnects once when the channel has been closed underneath it.
func (q *QueuePublisher) Publish(msg amqp091.Publishing) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	err := q.publishWithoutRetry(msg)
	if err == nil {
		return nil
	}

	publishErr := errors.Wrap(err, "Failed to publish message to rabbitMQ channel")
	if !errors.Is(err, amqp091.ErrClosed) {
		return publishErr
	}

	if err := q.connect(); err != nil {
		log.WithError(err).
			WithField("queue", q.queueName).
			Error("Unable to reconnect to rabbitMQ channel")
		return publishErr
	}

	return q.publishWithoutRetry(msg)
}

func (q *QueuePublisher) Close() error {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.closeConnection()
}

func (q *QueuePublisher) closeConnection() error {
	q.channel = nil
	if q.conn == nil {
		return nil
	}

	err := q.conn.Close()
	q.conn = nil
	if err != nil && !errors.Is(err, amqp091.ErrClosed) {
		return errors.Wrap(err, "Failed to close rabbitMQ connection")
	}

	return nil
}
