package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"waterguard/internal/config"
	"waterguard/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ReadingIngestor is the ingestion boundary as seen by transport consumers.
type ReadingIngestor interface {
	Submit(ctx context.Context, raw models.RawReading, source models.ReadingSource) (models.SensorReading, error)
}

// MQTTConsumer feeds device readings published on the broker into the
// ingestion boundary.
type MQTTConsumer struct {
	cfg       config.MQTTConfig
	client    mqtt.Client
	ingestor  ReadingIngestor
	ctx       context.Context
	processed atomic.Int64
	rejected  atomic.Int64
}

func NewMQTTConsumer(cfg config.MQTTConfig, ingestor ReadingIngestor) *MQTTConsumer {
	return &MQTTConsumer{
		cfg:      cfg,
		ingestor: ingestor,
		ctx:      context.Background(),
	}
}

// Start connects to the broker and subscribes to the reading topic. ctx is
// handed to every ingestion triggered by a message.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
	}
	if c.cfg.Password != "" {
		opts.SetPassword(c.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	// Resubscribe after every reconnect since the session is clean.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		if err := c.subscribe(client); err != nil {
			slog.Error("MQTT subscribe failed", "topic", c.cfg.Topic, "error", err)
		}
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	slog.Info("MQTT consumer started", "broker", c.cfg.Broker, "topic", c.cfg.Topic)
	return nil
}

func (c *MQTTConsumer) subscribe(client mqtt.Client) error {
	token := client.Subscribe(c.cfg.Topic, c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.HandleMessage(msg.Topic(), msg.Payload()); err != nil {
			slog.Warn("Dropped MQTT reading", "topic", msg.Topic(), "error", err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.cfg.Topic, token.Error())
	}
	return nil
}

// HandleMessage decodes one payload and submits it. The device id falls back
// to the topic segment after "sensors".
func (c *MQTTConsumer) HandleMessage(topic string, payload []byte) error {
	var raw models.RawReading
	if err := json.Unmarshal(payload, &raw); err != nil {
		c.rejected.Add(1)
		return fmt.Errorf("invalid reading payload: %w", err)
	}
	if raw.DeviceID == "" {
		raw.DeviceID = deviceIDFromTopic(topic)
	}

	reading, err := c.ingestor.Submit(c.ctx, raw, models.SourceMQTT)
	if err != nil {
		c.rejected.Add(1)
		return fmt.Errorf("reading rejected: %w", err)
	}

	c.processed.Add(1)
	slog.Debug("MQTT reading accepted", "reading_id", reading.ID, "device_id", raw.DeviceID)
	return nil
}

// Stats returns accepted and rejected message counts.
func (c *MQTTConsumer) Stats() (processed, rejected int64) {
	return c.processed.Load(), c.rejected.Load()
}

func (c *MQTTConsumer) Close() {
	if c.client == nil {
		return
	}
	c.client.Disconnect(250)
	slog.Info("MQTT consumer disconnected")
}

func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	for i, part := range parts {
		if part == "sensors" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
