package rules

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Position is an opaque, immutable board handle. The zero value is not usable;
// obtain positions from an Oracle.
type Position struct {
	game *nchess.Game
}

// FEN returns the serialized form, or "" for an empty handle.
func (p *Position) FEN() string {
	if p == nil || p.game == nil {
		return ""
	}
	return p.game.FEN()
}

// Board exposes the piece layout for rendering.
func (p *Position) Board() *nchess.Board {
	if p == nil || p.game == nil {
		return nil
	}
	return p.game.Position().Board()
}

// SideToMove is "white" or "black".
func (p *Position) SideToMove() string {
	if p == nil || p.game == nil {
		return ""
	}
	return colorName(p.game.Position().Turn())
}

// ColorAt is the color of the piece on square, or "" when it is empty or malformed.
func (p *Position) ColorAt(square string) string {
	board := p.Board()
	if board == nil {
		return ""
	}
	sq, err := ParseSquare(square)
	if err != nil {
		return ""
	}
	piece := board.Piece(sq)
	if piece == nchess.NoPiece {
		return ""
	}
	return colorName(piece.Color())
}

func (p *Position) status() Status {
	game := p.game
	turn := game.Position().Turn()
	st := Status{SideToMove: colorName(turn)}
	if moves := game.Moves(); len(moves) > 0 {
		st.Check = moves[len(moves)-1].HasTag(nchess.Check)
	} else {
		st.Check = kingAttacked(game.Position().Board(), turn)
	}
	switch game.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		if game.Method() == nchess.Checkmate {
			st.Checkmate = true
			st.Check = true
		}
	case nchess.Draw:
		st.Draw = true
	}
	if game.Method() != nchess.NoMethod {
		st.Method = strings.ToLower(game.Method().String())
	}
	return st
}

func colorName(c nchess.Color) string {
	if c == nchess.Black {
		return "black"
	}
	return "white"
}

var (
	knightSteps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// kingAttacked reports whether side's king stands on a square attacked by the
// other color. Positions loaded from FEN carry no move tags to read check from.
func kingAttacked(board *nchess.Board, side nchess.Color) bool {
	kf, kr := -1, -1
	for sq, pc := range board.SquareMap() {
		if pc.Type() == nchess.King && pc.Color() == side {
			kf, kr = int(sq.File()), int(sq.Rank())
			break
		}
	}
	if kf < 0 {
		return false
	}
	at := func(f, r int) nchess.Piece {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return nchess.NoPiece
		}
		return board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
	}
	enemy := func(pc nchess.Piece, types ...nchess.PieceType) bool {
		if pc == nchess.NoPiece || pc.Color() == side {
			return false
		}
		for _, t := range types {
			if pc.Type() == t {
				return true
			}
		}
		return false
	}

	dir := 1
	if side == nchess.Black {
		dir = -1
	}
	if enemy(at(kf-1, kr+dir), nchess.Pawn) || enemy(at(kf+1, kr+dir), nchess.Pawn) {
		return true
	}
	for _, d := range knightSteps {
		if enemy(at(kf+d[0], kr+d[1]), nchess.Knight) {
			return true
		}
	}
	for _, d := range kingSteps {
		if enemy(at(kf+d[0], kr+d[1]), nchess.King) {
			return true
		}
	}
	slide := func(rays [][2]int, types ...nchess.PieceType) bool {
		for _, d := range rays {
			for f, r := kf+d[0], kr+d[1]; f >= 0 && f <= 7 && r >= 0 && r <= 7; f, r = f+d[0], r+d[1] {
				pc := at(f, r)
				if pc == nchess.NoPiece {
					continue
				}
				if enemy(pc, types...) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(rookRays, nchess.Rook, nchess.Queen) || slide(bishopRays, nchess.Bishop, nchess.Queen)
}
