package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/gigwire/gigwire/internal/marketplace"
	"github.com/gigwire/gigwire/internal/queue"
	"github.com/gigwire/gigwire/internal/store"
)

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "gigwire.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestSendFuncDeliveredRecordsSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message_id":"srv-1"}`))
	}))
	defer srv.Close()

	db := openTestStore(t)
	send := NewSendFunc(marketplace.New(srv.URL, "", zap.NewNop()), db, zap.NewNop())

	ok, err := send(context.Background(), queue.Message{ID: "client-1", ConversationID: "conv-1", Text: "hi", Kind: queue.KindText})
	if err != nil || !ok {
		t.Fatalf("send = (%v, %v), want (true, nil)", ok, err)
	}

	rec, err := db.LookupSend("client-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.ServerMsgID != "srv-1" {
		t.Errorf("send log record = %+v, want server id srv-1", rec)
	}
}

func TestSendFuncPermanentRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad message", http.StatusBadRequest)
	}))
	defer srv.Close()

	db := openTestStore(t)
	send := NewSendFunc(marketplace.New(srv.URL, "", zap.NewNop()), db, zap.NewNop())

	ok, err := send(context.Background(), queue.Message{ID: "client-1"})
	if ok || err != nil {
		t.Errorf("4xx should count as a clean rejection, got (%v, %v)", ok, err)
	}
}

func TestSendFuncTemporaryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	db := openTestStore(t)
	send := NewSendFunc(marketplace.New(srv.URL, "", zap.NewNop()), db, zap.NewNop())

	ok, err := send(context.Background(), queue.Message{ID: "client-1"})
	if ok || err == nil {
		t.Errorf("5xx should surface an error, got (%v, %v)", ok, err)
	}
}

func TestSendFuncTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	db := openTestStore(t)
	send := NewSendFunc(marketplace.New(srv.URL, "", zap.NewNop()), db, zap.NewNop())

	ok, err := send(context.Background(), queue.Message{ID: "client-1"})
	if ok || err == nil {
		t.Errorf("transport failure should surface an error, got (%v, %v)", ok, err)
	}
}
