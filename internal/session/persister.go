package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Persister mirrors committed sessions to a Backend off the request path.
// Pending ids are coalesced, so a burst of moves on one session costs one write
// of its latest state. Backend failures are logged and counted, never returned;
// the failed ids stay pending and are retried after RetryDelay.
type Persister struct {
	backend Backend
	logger  *zap.Logger
	sync    bool
	timeout time.Duration
	retry   time.Duration
	source  func(id string) (Record, bool)

	mu      sync.Mutex
	pending map[string]struct{}
	signal  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	flushMu sync.Mutex

	writes   atomic.Int64
	failures atomic.Int64
	lastErr  atomic.Value
}

type PersisterOption func(*Persister)

// Synchronous makes Enqueue write before returning.
func Synchronous(on bool) PersisterOption { return func(p *Persister) { p.sync = on } }

func WriteTimeout(d time.Duration) PersisterOption {
	return func(p *Persister) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// RetryDelay sets how long a failed batch waits before the next attempt.
func RetryDelay(d time.Duration) PersisterOption {
	return func(p *Persister) {
		if d > 0 {
			p.retry = d
		}
	}
}

func NewPersister(backend Backend, logger *zap.Logger, opts ...PersisterOption) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Persister{
		backend: backend,
		logger:  logger,
		timeout: 5 * time.Second,
		retry:   time.Second,
		pending: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

func (p *Persister) attach(source func(string) (Record, bool)) {
	p.mu.Lock()
	p.source = source
	p.mu.Unlock()
}

// Backend returns the medium this persister writes to.
func (p *Persister) Backend() Backend { return p.backend }

// Enqueue marks id dirty.
func (p *Persister) Enqueue(id string) {
	p.mu.Lock()
	p.pending[id] = struct{}{}
	p.mu.Unlock()
	if p.sync {
		p.drain(context.Background())
		return
	}
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Pending is the number of sessions waiting to be written.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush attempts to write everything enqueued before the call.
func (p *Persister) Flush(ctx context.Context) {
	p.drain(ctx)
}

// Close flushes and stops the worker, then closes the backend.
func (p *Persister) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		<-p.stopped
		p.drain(context.Background())
		err = p.backend.Close()
	})
	return err
}

// Stats reports successful batch writes and swallowed failures.
func (p *Persister) Stats() (writes, failures int64) {
	return p.writes.Load(), p.failures.Load()
}

// LastError is the most recent swallowed backend error, if any.
func (p *Persister) LastError() string {
	if v, ok := p.lastErr.Load().(string); ok {
		return v
	}
	return ""
}

func (p *Persister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.signal:
			p.drain(context.Background())
		case <-p.done:
			return
		}
	}
}

func (p *Persister) drain(ctx context.Context) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	if len(p.pending) == 0 || p.source == nil {
		p.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	p.pending = make(map[string]struct{})
	source := p.source
	p.mu.Unlock()

	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := source(id); ok {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

	wctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.backend.Save(wctx, recs); err != nil {
		p.failures.Add(1)
		p.lastErr.Store(err.Error())
		p.logger.Warn("persistence_warning",
			zap.Int("sessions", len(recs)),
			zap.Int64("failures", p.failures.Load()),
			zap.Duration("retry_in", p.retry),
			zap.Error(err),
		)
		p.requeue(ids)
		return
	}
	p.writes.Add(1)
}

// requeue puts ids back as pending and wakes the worker after the retry delay.
func (p *Persister) requeue(ids []string) {
	p.mu.Lock()
	for _, id := range ids {
		p.pending[id] = struct{}{}
	}
	p.mu.Unlock()
	if p.sync {
		return
	}
	time.AfterFunc(p.retry, func() {
		select {
		case p.signal <- struct{}{}:
		default:
		}
	})
}
