package dummy

import (
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/stem-splitter/src/shared/lib/rabbitmq"
)

var _ rabbitmq.Publisher = &RabbitMQ{}

type RabbitMQ struct {
	lock        sync.Mutex
	Unavailable bool
	published   []amqp091.Publishing
}

func NewRabbitMQ() *RabbitMQ {
	return &RabbitMQ{}
}

func (r *RabbitMQ) Publish(msg amqp091.Publishing) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.Unavailable {
		return NetworkFailure
	}

	r.published = append(r.published, msg)
	return nil
}

func (r *RabbitMQ) Published() []amqp091.Publishing {
	r.lock.Lock()
	defer r.lock.Unlock()

	published := make([]amqp091.Publishing, len(r.published))
	copy(published, r.published)
	return published
}
