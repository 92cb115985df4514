// Package events publishes document lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/logging"
)

// Source is the EventBridge source of every event
const Source = "docgraph.ingest"

// Event types
const (
	TypeDocumentIngested = "DocumentIngested"
	TypeDocumentDeleted  = "DocumentDeleted"
	TypeDocumentLinked   = "DocumentLinked"
)

// Event is a document lifecycle notification
type Event struct {
	Type      string    `json:"-"`
	Document  string    `json:"document"`
	Chunks    int       `json:"chunks,omitempty"`
	Links     int       `json:"links,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, Event) error { return nil }

type eventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher publishes events to an EventBridge bus
type EventBridgePublisher struct {
	client       eventBridgeAPI
	eventBusName string
	logger       *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(cfg aws.Config, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	return newPublisher(eventbridge.NewFromConfig(cfg), eventBusName, logger)
}

func newPublisher(client eventBridgeAPI, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{client: client, eventBusName: eventBusName, logger: logging.OrNop(logger)}
}

// Publish sends a single event to EventBridge
func (p *EventBridgePublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(Source),
			DetailType:   aws.String(event.Type),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.Timestamp),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for _, entry := range result.Entries {
			if entry.ErrorCode != nil {
				return fmt.Errorf("event %s rejected: %s: %s", event.Type, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("event published",
		zap.String("type", event.Type),
		zap.String("document", event.Document),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}
