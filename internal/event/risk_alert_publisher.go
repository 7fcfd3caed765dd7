package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"waterguard/internal/models"
	"waterguard/internal/services"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPChannel is the subset of *amqp.Channel the alert publisher uses.
type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RiskAlertPublisher evaluates every accepted reading and publishes a
// RiskAlertEvent when the level rises into High or Critical.
type RiskAlertPublisher struct {
	channel   AMQPChannel
	queue     string
	evaluator services.RiskEvaluator
	now       func() time.Time

	mu            sync.Mutex
	declared      bool
	previousLevel models.RiskLevel

	messagesPublished int64
	messagesFailed    int64
}

func NewRiskAlertPublisher(channel AMQPChannel, queue string, evaluator services.RiskEvaluator) *RiskAlertPublisher {
	return &RiskAlertPublisher{
		channel:       channel,
		queue:         queue,
		evaluator:     evaluator,
		now:           time.Now,
		previousLevel: models.RiskLevelUnknown,
	}
}

// NotifyReading is called once per accepted reading, in acceptance order.
func (p *RiskAlertPublisher) NotifyReading(ctx context.Context, reading models.SensorReading) error {
	risk := p.evaluator.Evaluate(reading)

	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.previousLevel
	if !isEscalation(previous, risk.Level) {
		p.previousLevel = risk.Level
		return nil
	}

	event := models.RiskAlertEvent{
		EventID:       uuid.New(),
		ReadingID:     reading.ID,
		PreviousLevel: previous,
		Level:         risk.Level,
		Factors:       risk.Factors,
		Reading:       reading.String(),
		Timestamp:     p.now(),
	}
	if risk.Score != nil {
		event.Score = *risk.Score
	}

	// The level only advances once the alert is out.
	if err := p.publish(ctx, event); err != nil {
		p.messagesFailed++
		return err
	}
	p.messagesPublished++
	p.previousLevel = risk.Level

	slog.Info("Risk alert published",
		"queue", p.queue,
		"reading_id", reading.ID,
		"previous_level", previous,
		"level", risk.Level,
		"score", event.Score)
	return nil
}

// Stats returns the published and failed message counts.
func (p *RiskAlertPublisher) Stats() (published, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messagesPublished, p.messagesFailed
}

func (p *RiskAlertPublisher) publish(ctx context.Context, event models.RiskAlertEvent) error {
	if !p.declared {
		_, err := p.channel.QueueDeclare(
			p.queue, // queue name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared = true
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal risk alert: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    event.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish risk alert: %w", err)
	}
	return nil
}

func isEscalation(previous, current models.RiskLevel) bool {
	return current.Rank() >= models.RiskLevelHigh.Rank() && current.Rank() > previous.Rank()
}
