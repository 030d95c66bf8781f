package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-frames/internal/rules"
	"go.uber.org/zap"
)

// Errors
var (
	ErrNotFound = errf("session not found")
	ErrEmptyID  = errf("session id is empty")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// entry guards one session. mu serializes read-modify-write on this id only;
// cur is swapped atomically so readers never take mu.
type entry struct {
	mu  sync.Mutex
	cur atomic.Pointer[Session]
}

// Store is the authoritative in-memory map of sessions.
type Store struct {
	oracle    rules.Oracle
	persister *Persister
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	seq     int64
}

type Option func(*Store)

func WithPersister(p *Persister) Option { return func(s *Store) { s.persister = p } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(oracle rules.Oracle, opts ...Option) *Store {
	s := &Store{
		oracle:  oracle,
		logger:  zap.NewNop(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.persister != nil {
		s.persister.attach(s.record)
	}
	return s
}

// Oracle exposes the rules engine sessions are built with.
func (s *Store) Oracle() rules.Oracle { return s.oracle }

// Now is the store clock.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// Get returns the committed session for id.
func (s *Store) Get(id string) (*Session, bool) {
	e := s.lookup(strings.TrimSpace(id))
	if e == nil {
		return nil, false
	}
	return e.cur.Load(), true
}

// GetOrCreate returns the session for id, creating a waiting one on first reference.
// It never resets an existing session.
func (s *Store) GetOrCreate(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}
	if e := s.lookup(id); e != nil {
		return e.cur.Load(), nil
	}

	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		s.mu.Unlock()
		return e.cur.Load(), nil
	}
	s.seq++
	sess := New(id, s.oracle.Initial(), s.now())
	sess.Seq = s.seq
	e := &entry{}
	e.cur.Store(sess)
	s.entries[id] = e
	s.mu.Unlock()

	s.logger.Debug("session_created", zap.String("session_id", id), zap.Int64("seq", sess.Seq))
	s.enqueue(id)
	return sess, nil
}

// Create allocates a fresh id and a waiting session.
func (s *Store) Create() *Session {
	for {
		id := uuid.NewString()
		if _, exists := s.Get(id); exists {
			continue
		}
		sess, _ := s.GetOrCreate(id)
		return sess
	}
}

// Put replaces or inserts sess. The stored copy keeps the insertion ordinal of
// any record it replaces.
func (s *Store) Put(sess *Session) error {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return ErrEmptyID
	}
	c := sess.Clone()

	s.mu.Lock()
	e, ok := s.entries[c.ID]
	if !ok {
		s.seq++
		c.Seq = s.seq
		e = &entry{}
		e.cur.Store(c)
		s.entries[c.ID] = e
		s.mu.Unlock()
		s.enqueue(c.ID)
		return nil
	}
	s.mu.Unlock()

	e.mu.Lock()
	c.Seq = e.cur.Load().Seq
	e.cur.Store(c)
	e.mu.Unlock()
	s.enqueue(c.ID)
	return nil
}

// Update runs fn on a working copy of the session under the per-id lock and
// commits the copy only if fn returns nil. Calls on different ids never contend.
func (s *Store) Update(id string, fn func(*Session) error) (*Session, error) {
	e := s.lookup(strings.TrimSpace(id))
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	work := e.cur.Load().Clone()
	if err := fn(work); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.cur.Store(work)
	e.mu.Unlock()

	s.enqueue(work.ID)
	return work, nil
}

// List returns summaries in insertion order.
func (s *Store) List() []Summary {
	all := s.all()
	out := make([]Summary, 0, len(all))
	for _, sess := range all {
		out = append(out, sess.Summary())
	}
	return out
}

// Len is the number of known sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) all() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.cur.Load())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Snapshot queues every session for persistence.
func (s *Store) Snapshot() {
	for _, sess := range s.all() {
		s.enqueue(sess.ID)
	}
}

// Flush waits until queued writes reach the backend.
func (s *Store) Flush(ctx context.Context) {
	if s.persister != nil {
		s.persister.Flush(ctx)
	}
}

// Close drains and stops the persister.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

// Restore loads persisted sessions. An absent medium yields an empty store. It
// returns the number of sessions loaded and how many of them were degraded.
func (s *Store) Restore(ctx context.Context) (int, int, error) {
	if s.persister == nil {
		return 0, 0, nil
	}
	recs, err := s.persister.backend.Load(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load sessions: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	loaded, degraded := 0, 0
	var dirty []string
	s.mu.Lock()
	for _, rec := range recs {
		if strings.TrimSpace(rec.ID) == "" {
			continue
		}
		sess, bad := FromRecord(rec, s.oracle, s.logger)
		if sess.Seq <= s.seq {
			sess.Seq = s.seq + 1
		}
		s.seq = sess.Seq
		e := &entry{}
		e.cur.Store(sess)
		s.entries[sess.ID] = e
		loaded++
		if bad {
			degraded++
			dirty = append(dirty, sess.ID)
		}
	}
	s.mu.Unlock()

	for _, id := range dirty {
		s.enqueue(id)
	}
	s.logger.Info("sessions_restored", zap.Int("count", loaded), zap.Int("degraded", degraded))
	return loaded, degraded, nil
}

func (s *Store) enqueue(id string) {
	if s.persister != nil {
		s.persister.Enqueue(id)
	}
}

func (s *Store) record(id string) (Record, bool) {
	sess, ok := s.Get(id)
	if !ok {
		return Record{}, false
	}
	return ToRecord(sess, s.oracle), true
}
