package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  interface{}
}

// fakeClient records calls; the embedded interface panics on anything else.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	published    []published
	subscribed   map[string]mqtt.MessageHandler
	unsubscribed []string
	token        *fakeToken
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribed: map[string]mqtt.MessageHandler{}, token: &fakeToken{}}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic, qos, retained, payload})
	return c.token
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[topic] = cb
	return c.token
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return &fakeToken{}
}

func (c *fakeClient) handler(topic string) mqtt.MessageHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed[topic]
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

func TestQosFor(t *testing.T) {
	tests := []struct {
		topic string
		want  byte
	}{
		{"actuator/command/#", 1},
		{"actuator/command/irrigation", 1},
		{"event/StateChange/camera", 1},
		{"agribot/state", 0},
		{" event/StateChange/x ", 1},
	}
	for _, tt := range tests {
		if got := qosFor(tt.topic); got != tt.want {
			t.Errorf("qosFor(%q) = %d, want %d", tt.topic, got, tt.want)
		}
	}
}

func TestPublisherUsesTopicQos(t *testing.T) {
	c := newFakeClient()
	p := NewPublisher(c).Retained()

	if err := p.PublishTo("agribot/state", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("PublishTo failed: %v", err)
	}
	if err := p.PublishTo("event/StateChange/irrigation", `{"active":true}`); err != nil {
		t.Fatalf("PublishTo failed: %v", err)
	}

	if len(c.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(c.published))
	}
	if got := c.published[0]; got.topic != "agribot/state" || got.qos != 0 || !got.retained {
		t.Fatalf("unexpected state publish: %+v", got)
	}
	if got := c.published[1]; got.topic != "event/StateChange/irrigation" || got.qos != 1 {
		t.Fatalf("unexpected event publish: %+v", got)
	}
}

func TestPublisherErrors(t *testing.T) {
	c := newFakeClient()
	p := NewPublisher(c)

	if err := p.PublishTo("agribot/state", 42); err == nil {
		t.Fatalf("expected error for non string payload")
	}

	c.token = &fakeToken{timeout: true}
	if err := p.PublishTo("agribot/state", "x"); !errors.Is(err, ErrPublishTimeout) {
		t.Fatalf("expected ErrPublishTimeout, got %v", err)
	}

	boom := errors.New("broker down")
	c.token = &fakeToken{err: boom}
	if err := p.PublishTo("agribot/state", "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestConsumerDispatchesUntilCancelled(t *testing.T) {
	c := newFakeClient()
	got := make(chan string, 1)
	cons := NewConsumer(c, "actuator/command/#", nil)
	cons.SetHandler(func(topic string, msg mqtt.Message) error {
		got <- topic + " " + string(msg.Payload())
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cons.ConsumeMessage(ctx) }()

	deadline := time.Now().Add(time.Second)
	var h mqtt.MessageHandler
	for h == nil && time.Now().Before(deadline) {
		h = c.handler("actuator/command/#")
		time.Sleep(time.Millisecond)
	}
	if h == nil {
		t.Fatalf("consumer never subscribed")
	}

	h(c, fakeMessage{topic: "actuator/command/camera", payload: []byte("{}")})
	if s := <-got; s != "actuator/command/camera {}" {
		t.Fatalf("unexpected dispatch %q", s)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("ConsumeMessage returned %v", err)
	}
	if len(c.unsubscribed) != 1 || c.unsubscribed[0] != "actuator/command/#" {
		t.Fatalf("expected unsubscribe on cancel, got %v", c.unsubscribed)
	}
}

func TestConsumerReportsSubscribeFailure(t *testing.T) {
	c := newFakeClient()
	c.token = &fakeToken{err: errors.New("not authorized")}
	cons := NewConsumer(c, "actuator/command/#", func(string, mqtt.Message) error { return nil })

	if err := cons.ConsumeMessage(context.Background()); err == nil {
		t.Fatalf("expected subscribe error")
	}
}
