package queue

// Status is the delivery state of a queued message.
type Status string

const (
	// StatusPending marks a message waiting for the next drain.
	StatusPending Status = "pending"
	// StatusSending marks the message the drain is currently delivering.
	StatusSending Status = "sending"
	// StatusFailed marks a message that exhausted its retries. It stays in
	// the queue until the user retries or discards it.
	StatusFailed Status = "failed"
)

// Kind is the message content type.
type Kind string

const (
	KindText  Kind = "TEXT"
	KindImage Kind = "IMAGE"
)

// Message is an outgoing chat message not yet confirmed delivered. The ID is
// locally generated and never equals a server-assigned ID.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Kind           Kind   `json:"kind"`
	ImageURI       string `json:"image_uri,omitempty"`
	Timestamp      int64  `json:"timestamp"`
	RetryCount     int    `json:"retry_count"`
	Status         Status `json:"status"`
}

// Draft is the caller-supplied part of a message; Enqueue fills in the rest.
type Draft struct {
	ConversationID string
	Text           string
	Kind           Kind
	ImageURI       string
}

// Patch holds the fields Update merges into an existing entry. Nil fields
// are left unchanged.
type Patch struct {
	Text       *string
	Status     *Status
	RetryCount *int
}
