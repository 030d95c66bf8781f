package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect picks the SQL flavour of a SQLBackend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLBackend keeps one row per session with the record as a JSON payload.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLBackend opens dsn with the driver for dialect and ensures the schema.
func OpenSQLBackend(ctx context.Context, dialect Dialect, dsn string) (*SQLBackend, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s persistence: dsn is required", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case DialectSQLite:
		// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	b := &SQLBackend{db: db, dialect: dialect}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := b.migrate(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLBackend) migrate(ctx context.Context) error {
	payloadType := "TEXT"
	if b.dialect == DialectPostgres {
		payloadType = "JSONB"
	}
	q := `CREATE TABLE IF NOT EXISTS frame_sessions (
        id TEXT PRIMARY KEY,
        seq BIGINT NOT NULL,
        payload ` + payloadType + ` NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )`
	if _, err := b.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create frame_sessions: %w", err)
	}
	return nil
}

func (b *SQLBackend) upsertQuery() string {
	if b.dialect == DialectPostgres {
		return `INSERT INTO frame_sessions (id, seq, payload, updated_at) VALUES ($1, $2, $3::jsonb, $4)
      ON CONFLICT (id) DO UPDATE SET seq=EXCLUDED.seq, payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`
	}
	return `INSERT INTO frame_sessions (id, seq, payload, updated_at) VALUES (?, ?, ?, ?)
      ON CONFLICT (id) DO UPDATE SET seq=excluded.seq, payload=excluded.payload, updated_at=excluded.updated_at`
}

func (b *SQLBackend) Load(ctx context.Context) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT id, payload FROM frame_sessions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (b *SQLBackend) Save(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, b.upsertQuery())
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode session %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Seq, string(raw), rec.UpdatedAt.UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert session %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (b *SQLBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
