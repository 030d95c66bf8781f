package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/cheese-frames/pkg/chessdto"
)

// PostgresRepository archives games in frame_games.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresRepository{db: db}
	if err := r.migrate(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	const q = `CREATE TABLE IF NOT EXISTS frame_games (
        session_id TEXT NOT NULL,
        white_name TEXT NOT NULL,
        black_name TEXT NOT NULL,
        result TEXT NOT NULL,
        termination TEXT NOT NULL,
        moves_uci JSONB NOT NULL,
        moves_san JSONB NOT NULL,
        pgn TEXT NOT NULL,
        started_at TIMESTAMPTZ NOT NULL,
        ended_at TIMESTAMPTZ NOT NULL,
        duration_ms BIGINT NOT NULL,
        PRIMARY KEY (session_id, ended_at)
    )`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) Save(ctx context.Context, g *chessdto.ArchivedGame) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesUCIRaw, _ := json.Marshal(nonNil(g.MovesUCI))
	movesSANRaw, _ := json.Marshal(nonNil(g.MovesSAN))
	duration := g.Duration.Milliseconds()
	if duration < 0 {
		duration = 0
	}
	const q = `INSERT INTO frame_games (
        session_id, white_name, black_name, result, termination,
        moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
      ON CONFLICT (session_id, ended_at) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q,
		g.SessionID, g.WhiteName, g.BlackName, g.Result, g.Termination,
		string(movesUCIRaw), string(movesSANRaw), g.PGN,
		g.StartedAt, g.EndedAt, duration,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateGame
	}
	return nil
}

func (r *PostgresRepository) BySession(ctx context.Context, sessionID string) ([]*chessdto.ArchivedGame, error) {
	return r.query(ctx, `WHERE session_id = $1 ORDER BY ended_at`, sessionID)
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*chessdto.ArchivedGame, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.query(ctx, `ORDER BY ended_at DESC LIMIT $1`, limit)
}

func (r *PostgresRepository) query(ctx context.Context, tail string, args ...any) ([]*chessdto.ArchivedGame, error) {
	q := `SELECT session_id, white_name, black_name, result, termination,
        moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
      FROM frame_games ` + tail
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*chessdto.ArchivedGame
	for rows.Next() {
		var (
			g               chessdto.ArchivedGame
			movesUCI, moves []byte
			durationMS      int64
		)
		if err := rows.Scan(&g.SessionID, &g.WhiteName, &g.BlackName, &g.Result, &g.Termination,
			&movesUCI, &moves, &g.PGN, &g.StartedAt, &g.EndedAt, &durationMS); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(movesUCI, &g.MovesUCI); err != nil {
			return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
		}
		if err := json.Unmarshal(moves, &g.MovesSAN); err != nil {
			return nil, fmt.Errorf("unmarshal moves_san: %w", err)
		}
		g.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, &g)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
