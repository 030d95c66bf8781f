package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-frames/internal/rules"
)

func TestRenderProducesPNG(t *testing.T) {
	e := rules.NewEngine()
	out, err := e.Apply(e.Initial(), "e2", "e4", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	r := NewPNGRenderer(40)
	data, err := r.Render(context.Background(), out.Position, []string{"g8", "f6", "h6"}, &Move{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds().Dx(); got != 40*8+40 {
		t.Fatalf("unexpected width %d", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	pos := rules.NewEngine().Initial()
	r := NewPNGRenderer(32)
	a, err := r.Render(context.Background(), pos, nil, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, _ := r.Render(context.Background(), pos, nil, nil)
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPNGRenderer(32).Render(ctx, rules.NewEngine().Initial(), nil, nil); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestEveryPieceHasGlyph(t *testing.T) {
	for _, c := range []nchess.Color{nchess.White, nchess.Black} {
		for _, pt := range []nchess.PieceType{nchess.King, nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight, nchess.Pawn} {
			if _, err := pieceImage(nchess.NewPiece(pt, c), 24); err != nil {
				t.Fatalf("glyph %v/%v: %v", c, pt, err)
			}
		}
	}
}
