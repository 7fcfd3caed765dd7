package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"waterguard/internal/models"
)

// ReadingPublisher fans accepted readings out to every Redis subscriber of
// the channel.
type ReadingPublisher struct {
	client  *Client
	channel string
}

func NewReadingPublisher(client *Client, channel string) *ReadingPublisher {
	return &ReadingPublisher{
		client:  client,
		channel: channel,
	}
}

func (p *ReadingPublisher) NotifyReading(ctx context.Context, reading models.SensorReading) error {
	body, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	receivers, err := p.client.GetClient().Publish(ctx, p.channel, body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish reading to %s: %w", p.channel, err)
	}

	slog.Debug("Reading published to Redis",
		"channel", p.channel,
		"reading_id", reading.ID,
		"receivers", receivers)
	return nil
}
