// Package mqtt forwards incident lifecycle events to an MQTT broker so
// external dashboards can subscribe without touching the core.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/powergrid-labs/blackoutd/core/events"
	"github.com/powergrid-labs/blackoutd/core/logger"
	"github.com/powergrid-labs/blackoutd/internal/eventbus"
)

// Config defines the broker connection and topic layout.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	QoS         byte   `json:"qos"`
	TopicPrefix string `json:"topic_prefix"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "blackoutd"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "blackout/events"
	}
}

// Publisher bridges the in-process event bus to MQTT topics. One topic per
// event type: <prefix>/blackout_alert, <prefix>/recovery_progress, ...
type Publisher struct {
	client paho.Client
	cfg    Config
	log    logger.Logger
}

// NewPublisher connects to the broker and returns a Publisher.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := paho.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tok.Error())
	}
	return &Publisher{client: client, cfg: cfg, log: log}, nil
}

// Forward consumes bus events until the context is canceled or the bus
// closes. It is meant to run in its own goroutine.
func (p *Publisher) Forward(ctx context.Context, bus eventbus.EventBus) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			p.publish(ev)
		}
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) publish(ev eventbus.Event) {
	kind, ok := eventKind(ev)
	if !ok {
		return
	}
	payload, err := json.Marshal(map[string]any{"type": kind, "data": ev})
	if err != nil {
		p.log.Errorf("marshal %s event: %v", kind, err)
		return
	}
	topic := p.cfg.TopicPrefix + "/" + kind
	tok := p.client.Publish(topic, p.cfg.QoS, false, payload)
	if tok.WaitTimeout(5*time.Second) && tok.Error() != nil {
		p.log.Errorf("publish %s: %v", topic, tok.Error())
	}
}

// eventKind maps a bus event to its wire name.
func eventKind(ev eventbus.Event) (string, bool) {
	switch ev.(type) {
	case events.AlertEvent:
		return "blackout_alert", true
	case events.UpdateEvent:
		return "blackout_update", true
	case events.ProgressEvent:
		return "recovery_progress", true
	case events.ResolvedEvent:
		return "blackout_resolved", true
	case events.ManualAllocationEvent:
		return "manual_allocation", true
	default:
		return "", false
	}
}
