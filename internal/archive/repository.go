package archive

import (
	"context"
	"errors"

	"github.com/park285/cheese-frames/pkg/chessdto"
)

var ErrDuplicateGame = errors.New("archived game already exists")

// Repository keeps finished games. A session can finish several games across
// resets; (SessionID, EndedAt) identifies one.
type Repository interface {
	Save(ctx context.Context, game *chessdto.ArchivedGame) error
	BySession(ctx context.Context, sessionID string) ([]*chessdto.ArchivedGame, error)
	Recent(ctx context.Context, limit int) ([]*chessdto.ArchivedGame, error)
	Close() error
}
