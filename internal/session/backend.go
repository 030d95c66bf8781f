package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Backend is a durable medium for session records. Save upserts the given
// records; Load returns everything stored, or nothing when the medium is absent.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, recs []Record) error
	Close() error
}

// BackendOptions selects and configures a Backend.
type BackendOptions struct {
	Kind        string
	FilePath    string
	RedisURL    string
	RedisKey    string
	SQLitePath  string
	DatabaseURL string
}

// OpenBackend builds the backend named by opts.Kind: none, memory, file, redis,
// sqlite or postgres.
func OpenBackend(ctx context.Context, opts BackendOptions) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", "none", "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(opts.FilePath)
	case "redis":
		return OpenRedisBackend(ctx, opts.RedisURL, opts.RedisKey)
	case "sqlite":
		return OpenSQLBackend(ctx, DialectSQLite, opts.SQLitePath)
	case "postgres":
		return OpenSQLBackend(ctx, DialectPostgres, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", opts.Kind)
	}
}

// MemoryBackend keeps records in process. It satisfies the contract without
// durability.
type MemoryBackend struct {
	mu   sync.Mutex
	recs map[string]Record
	// Fail, when set, is returned by Save.
	Fail error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{recs: make(map[string]Record)}
}

func (m *MemoryBackend) Load(context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for _, r := range recs {
		m.recs[r.ID] = r
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Record returns the stored copy of id.
func (m *MemoryBackend) Record(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	return r, ok
}

// SetFail swaps the injected Save error.
func (m *MemoryBackend) SetFail(err error) {
	m.mu.Lock()
	m.Fail = err
	m.mu.Unlock()
}
