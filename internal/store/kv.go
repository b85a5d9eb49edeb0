package store

import (
	"database/sql"
	"time"
)

// GetValue returns the blob stored under key, or nil if the key is absent.
func (db *DB) GetValue(key string) ([]byte, error) {
	var value []byte
	err := db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// PutValue stores a blob under key, replacing any previous value.
func (db *DB) PutValue(key string, value []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// DeleteValue removes a key. Deleting an absent key is a no-op.
func (db *DB) DeleteValue(key string) error {
	_, err := db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}
