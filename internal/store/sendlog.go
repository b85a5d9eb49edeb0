package store

import (
	"database/sql"
	"time"
)

// SendRecord is an audit row for a delivered message: which locally
// generated ID mapped to which server-assigned ID.
type SendRecord struct {
	ClientMsgID    string
	ServerMsgID    string
	ConversationID string
	SentAt         int64
}

// RecordSend logs a confirmed delivery (idempotent on client_msg_id).
func (db *DB) RecordSend(clientMsgID, serverMsgID, conversationID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO send_log (client_msg_id, server_msg_id, conversation_id, sent_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_msg_id) DO UPDATE SET
			server_msg_id = excluded.server_msg_id`,
		clientMsgID, serverMsgID, conversationID, now)
	return err
}

// LookupSend returns the delivery record for a client message ID, or nil.
func (db *DB) LookupSend(clientMsgID string) (*SendRecord, error) {
	var r SendRecord
	err := db.QueryRow(`
		SELECT client_msg_id, server_msg_id, conversation_id, sent_at
		FROM send_log WHERE client_msg_id = ?`, clientMsgID).
		Scan(&r.ClientMsgID, &r.ServerMsgID, &r.ConversationID, &r.SentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// SendsForConversation returns delivery records for a conversation, newest first.
func (db *DB) SendsForConversation(conversationID string, limit int) ([]SendRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT client_msg_id, server_msg_id, conversation_id, sent_at
		FROM send_log WHERE conversation_id = ?
		ORDER BY sent_at DESC LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []SendRecord
	for rows.Next() {
		var r SendRecord
		if err := rows.Scan(&r.ClientMsgID, &r.ServerMsgID, &r.ConversationID, &r.SentAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
