package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"resume-review/internal/queue"
)

type fakeProcessor map[string]error

func (f fakeProcessor) Process(_ context.Context, sessionID string) error {
	return f[sessionID]
}

func body(t *testing.T, sessionID string) string {
	t.Helper()
	b, err := queue.EncodeMessage(queue.Message{SessionID: sessionID, Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

func TestProcessRecordsReportsRetryableFailures(t *testing.T) {
	proc := fakeProcessor{"bad": errors.New("analyzer down")}
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: body(t, "ok")},
		{MessageId: "m2", Body: body(t, "bad")},
		{MessageId: "m3", Body: "{not json"},
	}}

	resp := processRecords(context.Background(), proc, event)
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("expected only m2 to be retried, got %+v", resp.BatchItemFailures)
	}
}
