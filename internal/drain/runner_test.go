package drain

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
	"github.com/gigwire/gigwire/internal/queue"
)

func TestRunnerDrainsOnOnlineEvent(t *testing.T) {
	sender := &mockSender{ok: true}
	q, d, b := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(d, b, 0, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	b.Publish(bus.Event{Kind: bus.KindNetOnline, Timestamp: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sender.callCount() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("send called %d times, want 1 after online event", sender.callCount())
}

func TestRunnerIgnoresOfflineEvent(t *testing.T) {
	sender := &mockSender{ok: true}
	q, d, b := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(d, b, 0, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	b.Publish(bus.Event{Kind: bus.KindNetOffline, Timestamp: time.Now()})

	time.Sleep(100 * time.Millisecond)
	if sender.callCount() != 0 {
		t.Errorf("send called %d times after offline event, want 0", sender.callCount())
	}
}

func TestRunnerPeriodicFallback(t *testing.T) {
	sender := &mockSender{ok: true}
	q, d, b := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "hi"}); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(d, b, 50*time.Millisecond, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sender.callCount() >= 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("periodic fallback never drained")
}
