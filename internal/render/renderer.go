package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-frames/internal/rules"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Move marks the squares of the previous move.
type Move struct {
	From string
	To   string
}

// Renderer turns a position into an image. Implementations must not retain pos.
type Renderer interface {
	Render(ctx context.Context, pos *rules.Position, highlights []string, lastMove *Move) ([]byte, error)
}

type pngRenderer struct {
	squareSize int
	margin     int
}

// NewPNGRenderer builds a renderer with the given square size in pixels (minimum 24).
func NewPNGRenderer(squareSize int) Renderer {
	if squareSize < 24 {
		squareSize = 24
	}
	return &pngRenderer{squareSize: squareSize, margin: 20}
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	frameColor      = color.RGBA{28, 31, 46, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	highlightFill   = color.NRGBA{R: 120, G: 190, B: 255, A: 90}
	targetDot       = color.NRGBA{R: 24, G: 60, B: 110, A: 150}
	coordinateColor = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

func (r *pngRenderer) Render(ctx context.Context, pos *rules.Position, highlights []string, lastMove *Move) ([]byte, error) {
	board := pos.Board()
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	boardSize := r.squareSize * 8
	total := boardSize + r.margin*2
	origin := image.Point{X: r.margin, Y: r.margin}

	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	r.drawSquares(img, origin)
	if lastMove != nil {
		for _, s := range []string{lastMove.From, lastMove.To} {
			if sq, err := rules.ParseSquare(s); err == nil {
				r.overlay(img, sq, origin, lastMoveFill)
			}
		}
	}
	for _, s := range highlights {
		if sq, err := rules.ParseSquare(s); err == nil {
			r.overlay(img, sq, origin, highlightFill)
		}
	}
	if err := r.drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	// Dots go on empty highlighted squares only, so they never cover a piece.
	for _, s := range highlights {
		sq, err := rules.ParseSquare(s)
		if err != nil || board.Piece(sq) != nchess.NoPiece {
			continue
		}
		rect := r.squareRect(sq, origin)
		center := image.Pt(rect.Min.X+r.squareSize/2, rect.Min.Y+r.squareSize/2)
		drawDisc(img, center, r.squareSize/7, targetDot)
	}
	r.drawCoordinates(img, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pngRenderer) drawSquares(dst *image.RGBA, origin image.Point) {
	for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
		for file := nchess.FileA; file <= nchess.FileH; file++ {
			sq := nchess.NewSquare(file, rank)
			clr := lightSquare
			if (int(file)+int(rank))%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, r.squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *pngRenderer) drawPieces(dst *image.RGBA, board *nchess.Board, origin image.Point) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		glyph, err := pieceImage(piece, r.squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, r.squareRect(sq, origin), glyph, image.Point{}, imagedraw.Over)
	}
	return nil
}

func (r *pngRenderer) overlay(dst *image.RGBA, sq nchess.Square, origin image.Point, clr color.Color) {
	imagedraw.Draw(dst, r.squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func (r *pngRenderer) drawCoordinates(dst *image.RGBA, origin image.Point) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()
	bottom := origin.Y + r.squareSize*8

	for i := 0; i < 8; i++ {
		file := strings.ToLower(nchess.File(i).String())
		fileCenter := origin.X + i*r.squareSize + r.squareSize/2
		drawCenteredText(drawer, file, fileCenter, bottom+(r.margin+ascent)/2)

		rank := nchess.Rank(7 - i).String()
		rankCenter := origin.Y + i*r.squareSize + r.squareSize/2
		drawCenteredText(drawer, rank, origin.X-r.margin/2, rankCenter+ascent/2)
	}
}

func (r *pngRenderer) squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*r.squareSize
	y := origin.Y + row*r.squareSize
	return image.Rect(x, y, x+r.squareSize, y+r.squareSize)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	rr := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rr {
				continue
			}
			p := image.Pt(center.X+x, center.Y+y)
			if !p.In(img.Bounds()) {
				continue
			}
			imagedraw.Draw(img, image.Rect(p.X, p.Y, p.X+1, p.Y+1), image.NewUniform(clr), image.Point{}, imagedraw.Over)
		}
	}
}
