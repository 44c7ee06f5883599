package rabbitmq

import (
	"errors"
	"fmt"
	"time"

	"github.com/eclipse/paho.mqtt.golang"
)

// DefaultWaitTimeout bounds how long a publish waits for the broker ack.
const DefaultWaitTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("rabbitmq: publish timed out")

// Publisher publishes on explicit topics over the shared MQTT client.
type Publisher struct {
	client      mqtt.Client
	retained    bool
	waitTimeout time.Duration
}

func NewPublisher(client mqtt.Client) *Publisher {
	return &Publisher{
		client:      client,
		waitTimeout: DefaultWaitTimeout,
	}
}

// Retained makes the broker keep the last message for late subscribers.
func (p *Publisher) Retained() *Publisher {
	p.retained = true
	return p
}

// PublishTo publishes a string or []byte payload on topic with the QoS that topic requires.
func (p *Publisher) PublishTo(topic string, message interface{}) error {
	if p.client == nil {
		return errors.New("rabbitmq: nil client")
	}
	switch message.(type) {
	case string, []byte:
	default:
		return fmt.Errorf("invalid message format, expected string or []byte, got %T", message)
	}

	token := p.client.Publish(topic, qosFor(topic), p.retained, message)
	if !token.WaitTimeout(p.waitTimeout) {
		return fmt.Errorf("%w: topic %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message on %s: %w", topic, err)
	}
	return nil
}
