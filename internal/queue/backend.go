package queue

import "sync"

// Backend is the durable storage for the serialized queue. Implementations
// read and write the whole list as one value; the Queue serializes access.
type Backend interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// MemoryBackend is an in-process Backend for tests and ephemeral profiles.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte

	// LoadErr / StoreErr, when set, are returned by the corresponding
	// operation. Used to simulate storage failures.
	LoadErr  error
	StoreErr error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryBackend) Store(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreErr != nil {
		return m.StoreErr
	}
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}
