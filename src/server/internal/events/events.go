package events

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/veedubyou/stem-splitter/src/shared/lib/rabbitmq"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

type EventType string

const (
	SeparationCompleted EventType = "separation_completed"
	SeparationFailed    EventType = "separation_failed"
)

type JobEvent struct {
	Type            EventType `json:"type"`
	JobID           string    `json:"job_id"`
	FileName        string    `json:"file_name"`
	Model           string    `json:"model"`
	StemMode        string    `json:"stem_mode"`
	Format          string    `json:"format"`
	Device          string    `json:"device"`
	Stems           []string  `json:"stems,omitempty"`
	OutputDir       string    `json:"output_dir,omitempty"`
	Error           string    `json:"error,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	OccurredAt      time.Time `json:"occurred_at"`
}

//counterfeiter:generate . Publisher
type Publisher interface {
	PublishJobEvent(event JobEvent) error
}

var _ Publisher = QueuePublisher{}

// QueuePublisher sends job events to a RabbitMQ queue for anything
// listening in on finished separations.
type QueuePublisher struct {
	publisher rabbitmq.Publisher
}

func NewQueuePublisher(publisher rabbitmq.Publisher) QueuePublisher {
	return QueuePublisher{publisher: publisher}
}

func (q QueuePublisher) PublishJobEvent(event JobEvent) error {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal job event")
	}

	err = q.publisher.Publish(amqp091.Publishing{
		Type:      string(event.Type),
		MessageId: event.JobID,
		Timestamp: event.OccurredAt,
		Body:      jsonBytes,
	})
	if err != nil {
		return errors.Wrap(err, "Failed to publish job event to rabbitmq")
	}

	return nil
}

var _ Publisher = NoopPublisher{}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishJobEvent(JobEvent) error {
	return nil
}
