package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEventStampsOccurredAt(t *testing.T) {
	before := time.Now().UTC()
	event := NewEvent(EventAttemptStarted, AttemptEventPayload{AttemptID: 1})
	after := time.Now().UTC()

	if event.Type != EventAttemptStarted {
		t.Errorf("Type = %s, want %s", event.Type, EventAttemptStarted)
	}
	if event.OccurredAt.Before(before) || event.OccurredAt.After(after) {
		t.Errorf("OccurredAt = %v, want between %v and %v", event.OccurredAt, before, after)
	}
}

func TestMockPublisherRecords(t *testing.T) {
	pub := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	if err := pub.Publish(ctx, NewEvent(EventAttemptStarted, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := pub.Publish(ctx, NewEvent(EventAttemptSubmitted, nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	got := pub.GetPublishedEvents()
	if len(got) != 2 {
		t.Fatalf("recorded %d events, want 2", len(got))
	}
	if got[0].Type != EventAttemptStarted || got[1].Type != EventAttemptSubmitted {
		t.Errorf("recorded order = %s, %s", got[0].Type, got[1].Type)
	}

	// The returned slice is a copy; mutating it must not touch the record.
	got[0].Type = "tampered"
	if pub.GetPublishedEvents()[0].Type != EventAttemptStarted {
		t.Error("GetPublishedEvents must return a copy")
	}

	pub.Reset()
	if len(pub.GetPublishedEvents()) != 0 {
		t.Error("Reset left events behind")
	}
}

func TestMockPublisherConcurrent(t *testing.T) {
	pub := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Publish(ctx, NewEvent(EventAttemptStarted, nil))
		}()
	}
	wg.Wait()

	if got := len(pub.GetPublishedEvents()); got != 20 {
		t.Errorf("recorded %d events, want 20", got)
	}
}
