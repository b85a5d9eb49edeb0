package queue_test

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/queue"
	"github.com/gigwire/gigwire/internal/store"
)

// Exercises the queue over its production backend: a single kv row in the
// profile's sqlite database.
func TestQueueOverSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "gigwire.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	q := queue.New(db.Blob(queue.StorageKey), nil, zap.NewNop())

	first, err := q.Enqueue(queue.Draft{ConversationID: "conv-1", Text: "running late"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := q.Enqueue(queue.Draft{ConversationID: "conv-2", Text: "photo attached", Kind: queue.KindImage, ImageURI: "file:///tmp/a.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	// Reopen the database: the queue must survive a process restart.
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	db2, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()

	q2 := queue.New(db2.Blob(queue.StorageKey), nil, zap.NewNop())
	msgs := q2.All()
	if len(msgs) != 2 {
		t.Fatalf("reloaded queue has %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Errorf("order lost across restart: %s, %s", msgs[0].ID, msgs[1].ID)
	}
	if msgs[1].Kind != queue.KindImage || msgs[1].ImageURI != "file:///tmp/a.jpg" {
		t.Errorf("image fields lost: %+v", msgs[1])
	}

	if err := q2.Remove(first.ID); err != nil {
		t.Fatal(err)
	}
	if remaining := q2.All(); len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Errorf("remaining = %+v", remaining)
	}
}
