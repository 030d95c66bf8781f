package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-frames/internal/archive"
	"github.com/park285/cheese-frames/internal/auth"
	"github.com/park285/cheese-frames/internal/render"
	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
	"github.com/park285/cheese-frames/internal/turn"
	"github.com/park285/cheese-frames/pkg/chessdto"
	"go.uber.org/zap"
)

// Orchestrator sequences store, authorization and the turn machine for every
// public action. All returned errors are *chessdto.DomainError.
type Orchestrator struct {
	store    *session.Store
	oracle   rules.Oracle
	renderer render.Renderer
	archive  archive.Repository
	logger   *zap.Logger
}

type Option func(*Orchestrator)

func WithRenderer(r render.Renderer) Option { return func(o *Orchestrator) { o.renderer = r } }

func WithArchive(r archive.Repository) Option { return func(o *Orchestrator) { o.archive = r } }

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(store *session.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		oracle: store.Oracle(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.renderer == nil {
		o.renderer = render.NewPNGRenderer(64)
	}
	if o.archive == nil {
		o.archive = archive.NewMemoryRepository()
	}
	return o
}

// MoveCommand is a move attempt from either channel.
type MoveCommand struct {
	SessionID  string
	Token      string
	IdentityID string
	From       string
	To         string
	Promotion  string
}

func (o *Orchestrator) CreateSession(ctx context.Context) (*chessdto.SessionView, error) {
	s := o.store.Create()
	o.logger.Info("session_create", zap.String("session_id", s.ID))
	return o.view(s), nil
}

func (o *Orchestrator) JoinSession(ctx context.Context, id, color, name string) (*chessdto.JoinResponse, error) {
	var (
		token string
		side  session.Side
	)
	s, err := o.store.Update(id, func(s *session.Session) error {
		if s.Status == session.StatusFinished {
			return turn.ErrGameNotActive
		}
		var err error
		token, side, err = auth.IssueToken(s, auth.ParseSideChoice(color), name, o.store.Now())
		if err != nil {
			return err
		}
		turn.Recompute(s)
		return nil
	})
	if err != nil {
		return nil, toDomainError(err)
	}
	o.logger.Info("session_join",
		zap.String("session_id", s.ID),
		zap.String("side", string(side)),
		zap.String("status", string(s.Status)),
	)
	return &chessdto.JoinResponse{SessionID: s.ID, Token: token, Color: string(side), State: o.view(s)}, nil
}

// StartSolo seats one token on both sides. An empty id creates a new session;
// an unknown id is created lazily. Any game in progress is discarded.
func (o *Orchestrator) StartSolo(ctx context.Context, id, name string) (*chessdto.SoloResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = o.store.Create().ID
	} else if _, err := o.store.GetOrCreate(id); err != nil {
		return nil, toDomainError(err)
	}
	var (
		token     string
		discarded int
		prior     session.Status
	)
	s, err := o.store.Update(id, func(s *session.Session) error {
		discarded, prior = len(s.History), s.Status
		var err error
		token, err = auth.IssueSoloToken(s, name, o.oracle, o.store.Now())
		return err
	})
	if err != nil {
		return nil, toDomainError(err)
	}
	if prior != session.StatusWaiting {
		o.logger.Warn("solo_reset_discarded_game",
			zap.String("session_id", id),
			zap.String("prior_status", string(prior)),
			zap.Int("discarded_moves", discarded),
		)
	}
	o.logger.Info("session_solo", zap.String("session_id", id))
	return &chessdto.SoloResponse{SessionID: id, Token: token, State: o.view(s)}, nil
}

func (o *Orchestrator) ApplyMove(ctx context.Context, cmd MoveCommand) (*chessdto.MoveSummary, error) {
	var res *turn.MoveResult
	s, err := o.store.Update(cmd.SessionID, func(s *session.Session) error {
		var err error
		res, err = turn.ApplyMove(s, o.oracle, turn.MoveRequest{
			Token:      cmd.Token,
			IdentityID: cmd.IdentityID,
			From:       cmd.From,
			To:         cmd.To,
			Promotion:  cmd.Promotion,
		}, o.store.Now())
		return err
	})
	if err != nil {
		o.logger.Debug("session_move_rejected",
			zap.String("session_id", cmd.SessionID),
			zap.String("from", cmd.From),
			zap.String("to", cmd.To),
			zap.Error(err),
		)
		return nil, toDomainError(err)
	}
	o.logger.Info("session_move",
		zap.String("session_id", s.ID),
		zap.String("side", string(res.Side)),
		zap.String("san", res.SAN),
		zap.Int("ply", len(res.History)),
		zap.String("status", string(res.Status)),
	)
	if s.Status == session.StatusFinished {
		o.archiveGame(ctx, s)
	}
	return &chessdto.MoveSummary{
		Side:        string(res.Side),
		SAN:         res.SAN,
		UCI:         res.UCI,
		From:        res.From,
		To:          res.To,
		Status:      string(res.Status),
		Turn:        string(res.Turn),
		MovesSAN:    res.History,
		Check:       res.Check,
		Checkmate:   res.Checkmate,
		Draw:        res.Draw,
		Finished:    res.Status == session.StatusFinished,
		Result:      res.Result,
		Termination: res.Termination,
		State:       o.view(s),
	}, nil
}

// Resign ends the game for the actor identified by token or identity.
func (o *Orchestrator) Resign(ctx context.Context, id, token, identityID string) (*chessdto.SessionView, error) {
	var loser session.Side
	s, err := o.store.Update(id, func(s *session.Session) error {
		sides, err := auth.SidesFor(s, token, identityID)
		if err != nil {
			return err
		}
		loser, err = turn.Resign(s, sides, o.store.Now())
		return err
	})
	if err != nil {
		return nil, toDomainError(err)
	}
	o.logger.Info("session_resign", zap.String("session_id", s.ID), zap.String("side", string(loser)))
	o.archiveGame(ctx, s)
	return o.view(s), nil
}

// NewGame resets a session to waiting with no seats. Sessions with token seats
// only reset for a seated token holder.
func (o *Orchestrator) NewGame(ctx context.Context, id, token, identityID string) (*chessdto.SessionView, error) {
	s, err := o.store.Update(id, func(s *session.Session) error {
		if auth.RequiresToken(s) {
			if _, err := auth.SidesFor(s, token, identityID); err != nil {
				return err
			}
		}
		turn.Reset(s, o.oracle, o.store.Now())
		return nil
	})
	if err != nil {
		return nil, toDomainError(err)
	}
	o.logger.Info("session_reset", zap.String("session_id", s.ID))
	return o.view(s), nil
}

func (o *Orchestrator) Inspect(ctx context.Context, id string) (*chessdto.SessionView, error) {
	s, ok := o.store.Get(id)
	if !ok {
		return nil, toDomainError(fmt.Errorf("%w: %s", session.ErrNotFound, id))
	}
	return o.view(s), nil
}

func (o *Orchestrator) ListSessions(ctx context.Context) []chessdto.SessionSummary {
	list := o.store.List()
	out := make([]chessdto.SessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, chessdto.SessionSummary{
			ID:        s.ID,
			Status:    string(s.Status),
			Turn:      string(s.Turn),
			MoveCount: s.Moves,
		})
	}
	return out
}

// History returns the current game as PGN.
func (o *Orchestrator) History(ctx context.Context, id string) (string, error) {
	s, ok := o.store.Get(id)
	if !ok {
		return "", toDomainError(fmt.Errorf("%w: %s", session.ErrNotFound, id))
	}
	return archive.BuildPGN(pgnGame(s)), nil
}

// ArchivedGames lists finished games recorded for a session.
func (o *Orchestrator) ArchivedGames(ctx context.Context, id string) ([]*chessdto.ArchivedGame, error) {
	games, err := o.archive.BySession(ctx, id)
	if err != nil {
		return nil, toDomainError(err)
	}
	return games, nil
}

func (o *Orchestrator) ValidTargets(ctx context.Context, id, square string) ([]string, error) {
	s, ok := o.store.Get(id)
	if !ok {
		return nil, toDomainError(fmt.Errorf("%w: %s", session.ErrNotFound, id))
	}
	targets, err := o.oracle.ValidTargets(s.Position, square)
	if err != nil {
		return nil, toDomainError(err)
	}
	return targets, nil
}

// BoardImage renders the session's board, highlighting selected and its targets.
func (o *Orchestrator) BoardImage(ctx context.Context, id, selected string) ([]byte, error) {
	s, ok := o.store.Get(id)
	if !ok {
		return nil, toDomainError(fmt.Errorf("%w: %s", session.ErrNotFound, id))
	}
	var highlights []string
	if sq := strings.ToLower(strings.TrimSpace(selected)); sq != "" {
		targets, err := o.oracle.ValidTargets(s.Position, sq)
		if err != nil {
			return nil, toDomainError(err)
		}
		highlights = append([]string{sq}, targets...)
	}
	var last *render.Move
	if s.LastMove != nil {
		last = &render.Move{From: s.LastMove.From, To: s.LastMove.To}
	}
	img, err := o.renderer.Render(ctx, s.Position, highlights, last)
	if err != nil {
		return nil, toDomainError(err)
	}
	return img, nil
}

func (o *Orchestrator) view(s *session.Session) *chessdto.SessionView {
	st := o.oracle.Status(s.Position)
	v := &chessdto.SessionView{
		ID:          s.ID,
		FEN:         o.oracle.Serialize(s.Position),
		Status:      string(s.Status),
		Turn:        string(s.Turn),
		MovesSAN:    append([]string{}, s.History...),
		MoveCount:   len(s.History),
		Players:     map[string]*chessdto.PlayerView{},
		Check:       st.Check,
		Checkmate:   st.Checkmate,
		Draw:        st.Draw,
		Result:      s.Result,
		Termination: s.Termination,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.LastMove != nil {
		v.LastMove = &chessdto.LastMove{From: s.LastMove.From, To: s.LastMove.To}
	}
	for _, side := range session.Sides {
		b := s.Player(side)
		if b == nil {
			v.Players[string(side)] = nil
			continue
		}
		v.Players[string(side)] = &chessdto.PlayerView{
			ID:          b.ID,
			DisplayName: b.DisplayName,
			Provenance:  string(b.Provenance),
			JoinedAt:    b.JoinedAt,
		}
	}
	return v
}

func (o *Orchestrator) archiveGame(ctx context.Context, s *session.Session) {
	g := pgnGame(s)
	started := s.CreatedAt
	for _, side := range session.Sides {
		if b := s.Player(side); b != nil && b.JoinedAt.After(started) {
			started = b.JoinedAt
		}
	}
	rec := &chessdto.ArchivedGame{
		SessionID:   s.ID,
		WhiteName:   g.White,
		BlackName:   g.Black,
		Result:      s.Result,
		Termination: s.Termination,
		MovesUCI:    append([]string(nil), s.HistoryUCI...),
		MovesSAN:    append([]string(nil), s.History...),
		PGN:         archive.BuildPGN(g),
		StartedAt:   started,
		EndedAt:     s.UpdatedAt,
		Duration:    s.UpdatedAt.Sub(started),
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.archive.Save(actx, rec); err != nil {
		o.logger.Warn("archive_warning", zap.String("session_id", s.ID), zap.Error(err))
	}
}

func pgnGame(s *session.Session) archive.Game {
	name := func(side session.Side) string {
		if b := s.Player(side); b != nil {
			return b.DisplayName
		}
		return ""
	}
	return archive.Game{
		White:       name(session.White),
		Black:       name(session.Black),
		Result:      s.Result,
		Termination: s.Termination,
		MovesSAN:    s.History,
		Date:        s.UpdatedAt,
	}
}
