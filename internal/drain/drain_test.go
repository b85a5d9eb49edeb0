package drain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
	"github.com/gigwire/gigwire/internal/queue"
)

// mockSender records calls and returns configurable results per invocation.
type mockSender struct {
	mu      sync.Mutex
	calls   []queue.Message
	ok      bool
	err     error
	panics  bool
	block   chan struct{} // when set, each call waits until the channel closes
	started chan struct{} // when set, signalled once per call before blocking
}

func (m *mockSender) send(_ context.Context, msg queue.Message) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msg)
	m.mu.Unlock()
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	if m.panics {
		panic("sender blew up")
	}
	return m.ok, m.err
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testSetup(t *testing.T, sender *mockSender) (*queue.Queue, *Drainer, *bus.Bus) {
	t.Helper()
	b := bus.New()
	q := queue.New(queue.NewMemoryBackend(), b, zap.NewNop())
	d := New(q, sender.send, b, zap.NewNop())
	return q, d, b
}

// TestSuccessfulDrainEmptiesQueue checks that N queued messages and an
// always-true sender leave the queue empty after one drain, with the sender
// invoked exactly N times in insertion order.
func TestSuccessfulDrainEmptiesQueue(t *testing.T) {
	sender := &mockSender{ok: true}
	q, d, _ := testSetup(t, sender)

	var ids []string
	for i := 0; i < 4; i++ {
		msg, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: fmt.Sprintf("msg %d", i)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, msg.ID)
	}

	d.Drain(context.Background())

	if got := q.All(); len(got) != 0 {
		t.Errorf("queue has %d entries after drain, want 0", len(got))
	}
	if sender.callCount() != 4 {
		t.Fatalf("send called %d times, want 4", sender.callCount())
	}
	for i, id := range ids {
		if sender.calls[i].ID != id {
			t.Errorf("call %d = %s, want %s (insertion order)", i, sender.calls[i].ID, id)
		}
	}
}

// TestRetryCapThenTerminal walks one message through the full retry ladder:
// three drain cycles against an always-rejecting sender must leave it in
// failed state, still in the queue, and a fourth drain must not touch it.
func TestRetryCapThenTerminal(t *testing.T) {
	sender := &mockSender{ok: false}
	q, d, _ := testSetup(t, sender)

	msg, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "doomed"})
	if err != nil {
		t.Fatal(err)
	}

	for cycle := 1; cycle <= 3; cycle++ {
		d.Drain(context.Background())
		got := q.All()
		if len(got) != 1 {
			t.Fatalf("cycle %d: queue has %d entries, want 1", cycle, len(got))
		}
		if got[0].RetryCount != cycle {
			t.Errorf("cycle %d: retry count = %d, want %d", cycle, got[0].RetryCount, cycle)
		}
		wantStatus := queue.StatusPending
		if cycle == 3 {
			wantStatus = queue.StatusFailed
		}
		if got[0].Status != wantStatus {
			t.Errorf("cycle %d: status = %q, want %q", cycle, got[0].Status, wantStatus)
		}
	}

	// Terminal: a further drain must not attempt it again.
	d.Drain(context.Background())
	if sender.callCount() != 3 {
		t.Errorf("send called %d times, want 3 (failed message not retried)", sender.callCount())
	}
	got := q.All()
	if len(got) != 1 || got[0].ID != msg.ID {
		t.Error("failed message must never be silently dropped")
	}
}

func TestSendErrorCountsAsAttempt(t *testing.T) {
	sender := &mockSender{err: errors.New("connection reset")}
	q, d, _ := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	d.Drain(context.Background())

	got := q.All()
	if got[0].RetryCount != 1 || got[0].Status != queue.StatusPending {
		t.Errorf("entry = %+v, want pending with 1 retry", got[0])
	}
}

func TestSendPanicCountsAsAttempt(t *testing.T) {
	sender := &mockSender{panics: true}
	q, d, _ := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	d.Drain(context.Background())

	got := q.All()
	if len(got) != 1 {
		t.Fatal("message lost after sender panic")
	}
	if got[0].RetryCount != 1 || got[0].Status != queue.StatusPending {
		t.Errorf("entry = %+v, want pending with 1 retry", got[0])
	}
}

// TestOneFailureDoesNotAbortBatch checks that a failing message in the
// middle of the batch does not stop later messages from being delivered.
func TestOneFailureDoesNotAbortBatch(t *testing.T) {
	var n int
	var mu sync.Mutex
	send := func(_ context.Context, msg queue.Message) (bool, error) {
		mu.Lock()
		n++
		call := n
		mu.Unlock()
		if call == 2 {
			return false, errors.New("boom")
		}
		return true, nil
	}

	b := bus.New()
	q := queue.New(queue.NewMemoryBackend(), b, zap.NewNop())
	d := New(q, send, b, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	d.Drain(context.Background())

	got := q.All()
	if len(got) != 1 {
		t.Fatalf("queue has %d entries, want 1 (only the failed one)", len(got))
	}
	if got[0].Text != "m1" {
		t.Errorf("surviving entry = %q, want m1", got[0].Text)
	}
}

func TestEmptyQueueIsNoOp(t *testing.T) {
	sender := &mockSender{ok: true}
	_, d, _ := testSetup(t, sender)

	d.Drain(context.Background())
	if sender.callCount() != 0 {
		t.Errorf("send called %d times on empty queue, want 0", sender.callCount())
	}
}

// TestDrainNotReentrant checks that a second Drain entered while the first
// is mid-send is a no-op: no message may be handed to send twice.
func TestDrainNotReentrant(t *testing.T) {
	sender := &mockSender{
		ok:      true,
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	q, d, _ := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "once"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		d.Drain(context.Background())
		close(done)
	}()

	// Wait until the first drain is inside send, then try to re-enter.
	<-sender.started
	d.Drain(context.Background())

	close(sender.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first drain")
	}

	if sender.callCount() != 1 {
		t.Errorf("send called %d times, want 1 (re-entrant drain must be a no-op)", sender.callCount())
	}
}

// TestMessageEnqueuedMidDrainWaits checks snapshot semantics: a message
// enqueued while a drain is in flight is picked up by the next drain, not
// the current pass.
func TestMessageEnqueuedMidDrainWaits(t *testing.T) {
	sender := &mockSender{
		ok:      true,
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	q, d, _ := testSetup(t, sender)

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "first"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		d.Drain(context.Background())
		close(done)
	}()

	<-sender.started
	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "late"}); err != nil {
		t.Fatal(err)
	}
	close(sender.block)
	<-done

	if sender.callCount() != 1 {
		t.Fatalf("send called %d times, want 1 (late message not in snapshot)", sender.callCount())
	}

	d.Drain(context.Background())
	if sender.callCount() != 2 {
		t.Errorf("send called %d times after second drain, want 2", sender.callCount())
	}
}

func TestAckAndFailedEvents(t *testing.T) {
	sender := &mockSender{ok: true}
	q, d, b := testSetup(t, sender)

	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	d.Drain(context.Background())

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindMessageSendAck {
			t.Errorf("event kind = %q, want message.send_ack", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for send_ack event")
	}

	// Now exhaust retries and expect a terminal failure event.
	sender.ok = false
	if _, err := q.Enqueue(queue.Draft{ConversationID: "c", Text: "bad"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		d.Drain(context.Background())
	}

	var sawFailed bool
	deadline := time.After(time.Second)
	for !sawFailed {
		select {
		case evt := <-ch:
			if evt.Kind == bus.KindMessageSendFailed {
				sawFailed = true
			}
		case <-deadline:
			t.Fatal("timeout waiting for send_failed event")
		}
	}
}

// TestInterruptedSendDeliveredOnNextDrain covers recovery from a process
// death mid-delivery: a message persisted as sending must be released and
// delivered by the next drain rather than stranded. Resending is safe
// because the client message ID doubles as the server's deduplication key.
func TestInterruptedSendDeliveredOnNextDrain(t *testing.T) {
	sender := &mockSender{ok: true}
	q, d, _ := testSetup(t, sender)

	msg, err := q.Enqueue(queue.Draft{ConversationID: "conv-1", Text: "interrupted"})
	if err != nil {
		t.Fatal(err)
	}
	sending := queue.StatusSending
	if err := q.Update(msg.ID, queue.Patch{Status: &sending}); err != nil {
		t.Fatal(err)
	}

	d.Drain(context.Background())

	if sender.callCount() != 1 {
		t.Fatalf("sender called %d times, want 1 (interrupted message redelivered)", sender.callCount())
	}
	if remaining := q.All(); len(remaining) != 0 {
		t.Errorf("queue = %+v, want empty after redelivery", remaining)
	}
}
