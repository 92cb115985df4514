package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIngestEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want IngestEvent
	}{
		{
			name: "direct defaults to created",
			raw:  `{"filename":"a.pdf"}`,
			want: IngestEvent{Filename: "a.pdf", Event: EventCreated},
		},
		{
			name: "direct delete",
			raw:  `{"filename":"a.pdf","event":"deleted"}`,
			want: IngestEvent{Filename: "a.pdf", Event: EventDeleted},
		},
		{
			name: "eventbridge created",
			raw:  `{"detail-type":"Object Created","source":"aws.s3","detail":{"bucket":{"name":"in"},"object":{"key":"x/y/b.pdf"}}}`,
			want: IngestEvent{Filename: "b.pdf", Event: EventCreated, Bucket: "in", Key: "x/y/b.pdf"},
		},
		{
			name: "eventbridge without key",
			raw:  `{"detail-type":"Object Deleted","source":"aws.s3","detail":{"bucket":{"name":"in"},"object":{}}}`,
			want: IngestEvent{Event: EventDeleted, Bucket: "in"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIngestEvent(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIngestEvent_Rejects(t *testing.T) {
	for _, raw := range []string{
		`[]`,
		`{"filename":"a.pdf","event":"moved"}`,
		`{"detail-type":"Object Restore Completed","source":"aws.s3","detail":{}}`,
	} {
		_, err := parseIngestEvent(json.RawMessage(raw))
		assert.ErrorIs(t, err, errMalformedEvent, raw)
	}
}
