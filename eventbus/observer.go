// Package eventbus publishes run lifecycle events to a Watermill publisher so
// that other processes can follow runs as they happen.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/hupe1980/agentrelay/callback"
)

const (
	// DefaultTopic is used when NewObserver receives an empty topic.
	DefaultTopic = "agentrelay.events"

	// MetadataEventType carries the callback.Type of a message.
	MetadataEventType = "event_type"
	// MetadataRunID carries the run id of a message.
	MetadataRunID = "run_id"
	// MetadataAgent carries the agent name of a message.
	MetadataAgent = "agent"
)

// Observer publishes every event as a JSON message.
type Observer struct {
	publisher message.Publisher
	topic     string
}

// NewObserver returns an observer that publishes to topic.
func NewObserver(publisher message.Publisher, topic string) *Observer {
	if topic == "" {
		topic = DefaultTopic
	}

	return &Observer{publisher: publisher, topic: topic}
}

// Topic returns the topic messages are published to.
func (o *Observer) Topic() string { return o.topic }

// Handler returns the observer as a single handler for Manager.RegisterAll.
func (o *Observer) Handler() callback.Handler { return o.publish }

func (o *Observer) OnAgentThinking(ctx context.Context, ev callback.Event) error {
	return o.publish(ctx, ev)
}

func (o *Observer) OnToolStart(ctx context.Context, ev callback.Event) error {
	return o.publish(ctx, ev)
}

func (o *Observer) OnToolComplete(ctx context.Context, ev callback.Event) error {
	return o.publish(ctx, ev)
}

func (o *Observer) OnAgentHandoff(ctx context.Context, ev callback.Event) error {
	return o.publish(ctx, ev)
}

func (o *Observer) OnAgentComplete(ctx context.Context, ev callback.Event) error {
	return o.publish(ctx, ev)
}

func (o *Observer) OnRunComplete(ctx context.Context, ev callback.Event) error {
	return o.publish(ctx, ev)
}

func (o *Observer) publish(ctx context.Context, ev callback.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventbus: marshal %s: %w", ev.Type, err)
	}

	msg := message.NewMessageWithContext(ctx, watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEventType, string(ev.Type))
	msg.Metadata.Set(MetadataRunID, ev.RunID)

	if ev.AgentName != "" {
		msg.Metadata.Set(MetadataAgent, ev.AgentName)
	}

	if err := o.publisher.Publish(o.topic, msg); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", ev.Type, err)
	}

	return nil
}

var _ callback.Observer = (*Observer)(nil)
