package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"

	lambdaevents "github.com/aws/aws-lambda-go/events"
)

// Ingest actions
const (
	EventCreated = "created"
	EventDeleted = "deleted"
)

// Handler result statuses
const (
	StatusIngested        = "ingested"
	StatusDeleted         = "deleted"
	StatusSkipped         = "skipped"
	StatusLinkingComplete = "linking_complete"
	StatusError           = "error"
)

// IngestEvent is the direct ingest payload
type IngestEvent struct {
	Filename string `json:"filename"`
	Event    string `json:"event"`
	Bucket   string `json:"bucket,omitempty"`
	Key      string `json:"key,omitempty"`
}

// LinkEvent is the output of the ingest step fed to the link step
type LinkEvent struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// Status is returned by both handlers
type Status struct {
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`
	Message  string `json:"message,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	Links    int    `json:"links,omitempty"`
}

var errMalformedEvent = errors.New("malformed event")

type s3Detail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

// parseIngestEvent accepts a direct payload or an EventBridge S3 notification
func parseIngestEvent(raw json.RawMessage) (IngestEvent, error) {
	var probe lambdaevents.EventBridgeEvent
	if err := json.Unmarshal(raw, &probe); err != nil {
		return IngestEvent{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	if probe.Source == "aws.s3" {
		var action string
		switch probe.DetailType {
		case "Object Created":
			action = EventCreated
		case "Object Deleted":
			action = EventDeleted
		default:
			return IngestEvent{}, fmt.Errorf("%w: unsupported detail-type %q", errMalformedEvent, probe.DetailType)
		}

		var detail s3Detail
		if err := json.Unmarshal(probe.Detail, &detail); err != nil {
			return IngestEvent{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
		}

		ev := IngestEvent{Event: action, Bucket: detail.Bucket.Name, Key: detail.Object.Key}
		if ev.Key != "" {
			ev.Filename = path.Base(ev.Key)
		}
		return ev, nil
	}

	var ev IngestEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return IngestEvent{}, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if ev.Event == "" {
		ev.Event = EventCreated
	}
	if ev.Event != EventCreated && ev.Event != EventDeleted {
		return IngestEvent{}, fmt.Errorf("%w: unknown event %q", errMalformedEvent, ev.Event)
	}
	return ev, nil
}
