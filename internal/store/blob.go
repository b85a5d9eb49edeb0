package store

// Blob is a handle to a single kv row, read and written whole. The offline
// queue and the conversation snapshot both persist through one of these.
type Blob struct {
	db  *DB
	key string
}

// Blob returns a handle for the given well-known key.
func (db *DB) Blob(key string) *Blob {
	return &Blob{db: db, key: key}
}

// Load reads the current value. Returns nil with no error if the key is absent.
func (b *Blob) Load() ([]byte, error) {
	return b.db.GetValue(b.key)
}

// Store replaces the current value.
func (b *Blob) Store(value []byte) error {
	return b.db.PutValue(b.key, value)
}
