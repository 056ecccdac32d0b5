// Package postgres persists finalized transcript items to a PostgreSQL
// transcript_items table. The archive is optional and strictly best effort:
// write failures surface in logs and readiness checks, never in the
// conversation itself.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voicenav/voicenav/internal/transcript"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcript_items (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    item_id     TEXT         NOT NULL,
    item_type   TEXT         NOT NULL,
    role        TEXT         NOT NULL DEFAULT '',
    title       TEXT         NOT NULL DEFAULT '',
    data        JSONB,
    created_at  TIMESTAMPTZ  NOT NULL,
    archived_at TIMESTAMPTZ  NOT NULL DEFAULT now(),
    UNIQUE (session_id, item_id)
);
CREATE INDEX IF NOT EXISTS transcript_items_session_idx
    ON transcript_items (session_id, created_at);`

// Archive stores finalized transcript items for one logical conversation,
// identified by sessionID. All methods are safe for concurrent use.
type Archive struct {
	pool      *pgxpool.Pool
	sessionID string
}

// NewArchive connects to the database at dsn, verifies the connection, and
// ensures the transcript_items table exists. sessionID scopes all writes and
// reads of the returned archive.
func NewArchive(ctx context.Context, dsn, sessionID string) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript archive: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transcript archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript archive: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript archive: ensure schema: %w", err)
	}

	return &Archive{pool: pool, sessionID: sessionID}, nil
}

// WriteItem upserts one finalized item. Re-finalization of the same item
// (final transcript text arriving after audio completes) overwrites the
// previous row's title and data.
func (a *Archive) WriteItem(ctx context.Context, item transcript.Item) error {
	var data []byte
	if item.Data != nil {
		var err error
		data, err = json.Marshal(item.Data)
		if err != nil {
			return fmt.Errorf("transcript archive: marshal item data: %w", err)
		}
	}

	const q = `
		INSERT INTO transcript_items
		    (session_id, item_id, item_type, role, title, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, item_id) DO UPDATE
		SET title = EXCLUDED.title, data = EXCLUDED.data`

	_, err := a.pool.Exec(ctx, q,
		a.sessionID,
		item.ItemID,
		string(item.Type),
		string(item.Role),
		item.Title,
		data,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("transcript archive: write item: %w", err)
	}
	return nil
}

// Recent returns this session's items created no earlier than now-window,
// oldest first.
func (a *Archive) Recent(ctx context.Context, window time.Duration) ([]transcript.Item, error) {
	const q = `
		SELECT item_id, item_type, role, title, data, created_at
		FROM   transcript_items
		WHERE  session_id = $1
		  AND  created_at >= now() - ($2::bigint * interval '1 microsecond')
		ORDER  BY created_at`

	rows, err := a.pool.Query(ctx, q, a.sessionID, window.Microseconds())
	if err != nil {
		return nil, fmt.Errorf("transcript archive: recent: %w", err)
	}
	return collectItems(rows)
}

// Ping verifies database connectivity, for readiness checks.
func (a *Archive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close releases the connection pool.
func (a *Archive) Close() {
	a.pool.Close()
}

// collectItems scans pgx rows into transcript items.
func collectItems(rows pgx.Rows) ([]transcript.Item, error) {
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (transcript.Item, error) {
		var (
			item transcript.Item
			typ  string
			role string
			data []byte
		)
		if err := row.Scan(&item.ItemID, &typ, &role, &item.Title, &data, &item.CreatedAt); err != nil {
			return transcript.Item{}, err
		}
		item.Type = transcript.ItemType(typ)
		item.Role = transcript.Role(role)
		item.Status = transcript.StatusDone
		if len(data) > 0 {
			var decoded any
			if err := json.Unmarshal(data, &decoded); err != nil {
				return transcript.Item{}, err
			}
			item.Data = decoded
		}
		return item, nil
	})
	if err != nil {
		return nil, fmt.Errorf("transcript archive: scan rows: %w", err)
	}
	if items == nil {
		items = []transcript.Item{}
	}
	return items, nil
}
