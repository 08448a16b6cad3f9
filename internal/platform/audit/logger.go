package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ActionVerificationRejected = "webhook.verification_rejected"
	ActionWebhookCreated       = "webhook.created"
	ActionSecretRotated        = "webhook.secret_rotated"
)

// Entry is one operator-facing record. Metadata may carry detailed failure
// reasons that are never returned to API callers.
type Entry struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Metadata     map[string]interface{} `json:"metadata"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	CreatedAt    int64                  `json:"created_at"`
}

// maxUserAgent bounds the caller-supplied user agent kept per entry.
const maxUserAgent = 256

type Logger struct {
	db *sql.DB
	wg sync.WaitGroup
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log writes the entry in the background so request handling never waits on it.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = "audit_" + uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	entry.UserAgent = truncate(entry.UserAgent, maxUserAgent)
	metaJSON, _ := json.Marshal(entry.Metadata)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_, err := l.db.ExecContext(writeCtx, `
			INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, string(metaJSON), entry.IPAddress, entry.UserAgent, entry.CreatedAt)
		if err != nil {
			log.Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log")
		}
	}()
}

// Wait blocks until every pending entry has been written.
func (l *Logger) Wait() {
	l.wg.Wait()
}

func (l *Logger) ListByResource(ctx context.Context, resourceType, resourceID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, COALESCE(user_id, ''), action, resource_type, COALESCE(resource_id, ''), COALESCE(metadata, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM audit_logs WHERE resource_type = ? AND resource_id = ? ORDER BY created_at DESC
	`, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var meta string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &meta, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta != "" {
			json.Unmarshal([]byte(meta), &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteCreatedBefore removes entries older than the given unix time.
func (l *Logger) DeleteCreatedBefore(ctx context.Context, before int64) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
