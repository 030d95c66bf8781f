package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/cheese-frames/pkg/chessdto"
)

// memrepo is used when no database is configured.
type memrepo struct {
	mu        sync.RWMutex
	games     []*chessdto.ArchivedGame
	bySession map[string][]*chessdto.ArchivedGame
}

func NewMemoryRepository() Repository {
	return &memrepo{bySession: make(map[string][]*chessdto.ArchivedGame)}
}

func (m *memrepo) Save(_ context.Context, game *chessdto.ArchivedGame) error {
	if game == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.bySession[game.SessionID] {
		if g.EndedAt.Equal(game.EndedAt) {
			return ErrDuplicateGame
		}
	}
	cp := *game
	cp.MovesSAN = append([]string(nil), game.MovesSAN...)
	cp.MovesUCI = append([]string(nil), game.MovesUCI...)
	m.games = append(m.games, &cp)
	m.bySession[cp.SessionID] = append(m.bySession[cp.SessionID], &cp)
	return nil
}

func (m *memrepo) BySession(_ context.Context, sessionID string) ([]*chessdto.ArchivedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*chessdto.ArchivedGame(nil), m.bySession[sessionID]...), nil
}

func (m *memrepo) Recent(_ context.Context, limit int) ([]*chessdto.ArchivedGame, error) {
	m.mu.RLock()
	items := append([]*chessdto.ArchivedGame(nil), m.games...)
	m.mu.RUnlock()
	sort.SliceStable(items, func(i, j int) bool { return items[i].EndedAt.After(items[j].EndedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Close() error { return nil }
