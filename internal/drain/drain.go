package drain

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/bus"
	"github.com/gigwire/gigwire/internal/queue"
)

// MaxAttempts is the delivery attempt cap. A message that fails this many
// times goes terminal and stays in the queue for manual retry or discard.
const MaxAttempts = 3

// SendFunc delivers one message. true means delivered; false means the
// server rejected it without a transport error. Both false and a non-nil
// error count as a failed attempt. The function owns its own timeout.
type SendFunc func(ctx context.Context, msg queue.Message) (bool, error)

// Drainer attempts delivery of all pending messages, in insertion order,
// exactly once per invocation.
type Drainer struct {
	queue   *queue.Queue
	send    SendFunc
	bus     *bus.Bus
	logger  *zap.Logger
	running atomic.Bool
}

// New creates a drainer over the queue with the injected send function.
func New(q *queue.Queue, send SendFunc, b *bus.Bus, logger *zap.Logger) *Drainer {
	return &Drainer{
		queue:  q,
		send:   send,
		bus:    b,
		logger: logger,
	}
}

// Drain runs one sequential pass over the pending snapshot. A Drain entered
// while another is in flight is a no-op, so a reconnect callback racing a
// manual retry cannot double-send. Drain never returns an error; every send
// outcome becomes a queue state transition.
func (d *Drainer) Drain(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	defer d.running.Store(false)

	// A message persisted as sending belongs to a delivery that never
	// finished; release it so this pass picks it up.
	if released, err := d.queue.ReleaseSending(); err != nil {
		d.logger.Error("failed to release interrupted sends", zap.Error(err))
	} else if released > 0 {
		d.logger.Info("released interrupted sends", zap.Int("count", released))
	}

	pending := d.queue.PendingAll()
	if len(pending) == 0 {
		return
	}

	delivered := 0
	for _, msg := range pending {
		if ctx.Err() != nil {
			// Re-eligible on the next drain; nothing was lost.
			d.logger.Warn("drain interrupted", zap.Int("remaining", len(pending)-delivered))
			break
		}
		if d.deliver(ctx, msg) {
			delivered++
		}
	}

	d.logger.Info("drain finished",
		zap.Int("pending", len(pending)),
		zap.Int("delivered", delivered))
	if d.bus != nil {
		d.bus.Publish(bus.Event{
			Kind:      bus.KindQueueDrained,
			Timestamp: time.Now(),
			Payload:   map[string]int{"pending": len(pending), "delivered": delivered},
		})
	}
}

// deliver attempts one message and applies the retry policy. Returns true
// on confirmed delivery.
func (d *Drainer) deliver(ctx context.Context, msg queue.Message) bool {
	sending := queue.StatusSending
	if err := d.queue.Update(msg.ID, queue.Patch{Status: &sending}); err != nil {
		d.logger.Error("failed to mark sending", zap.Error(err), zap.String("msg_id", msg.ID))
		return false
	}

	ok, err := d.callSend(ctx, msg)
	if err == nil && ok {
		if err := d.queue.Remove(msg.ID); err != nil {
			d.logger.Error("failed to remove delivered message", zap.Error(err), zap.String("msg_id", msg.ID))
		}
		if d.bus != nil {
			d.bus.Publish(bus.Event{
				Kind:      bus.KindMessageSendAck,
				Timestamp: time.Now(),
				Payload:   msg,
			})
		}
		return true
	}

	if err != nil {
		d.logger.Warn("send attempt failed", zap.Error(err),
			zap.String("msg_id", msg.ID), zap.Int("attempt", msg.RetryCount+1))
	} else {
		d.logger.Warn("send attempt rejected",
			zap.String("msg_id", msg.ID), zap.Int("attempt", msg.RetryCount+1))
	}

	retries := msg.RetryCount + 1
	next := queue.StatusPending
	if retries >= MaxAttempts {
		next = queue.StatusFailed
	}
	if err := d.queue.Update(msg.ID, queue.Patch{Status: &next, RetryCount: &retries}); err != nil {
		d.logger.Error("failed to record attempt", zap.Error(err), zap.String("msg_id", msg.ID))
	}
	if next == queue.StatusFailed && d.bus != nil {
		msg.Status = queue.StatusFailed
		msg.RetryCount = retries
		d.bus.Publish(bus.Event{
			Kind:      bus.KindMessageSendFailed,
			Timestamp: time.Now(),
			Payload:   msg,
		})
	}
	return false
}

// callSend invokes the injected send function, converting a panic into an
// ordinary failed attempt. A collaborator that throws is treated the same
// as one that returns an error.
func (d *Drainer) callSend(ctx context.Context, msg queue.Message) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return d.send(ctx, msg)
}
