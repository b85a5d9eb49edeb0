package bus

import "time"

// Event kinds published by the messaging core. Subscribers filter by
// namespace prefix, e.g. "queue." matches every queue event.
const (
	KindNetOnline            = "net.online"
	KindNetOffline           = "net.offline"
	KindConnStatusChanged    = "conn.status_changed"
	KindQueueEnqueued        = "queue.enqueued"
	KindQueueDrained         = "queue.drained"
	KindMessageSendAck       = "message.send_ack"
	KindMessageSendFailed    = "message.send_failed"
	KindConversationsUpdated = "conversations.updated"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
