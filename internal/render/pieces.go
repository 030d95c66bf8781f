package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece outlines on a 45x45 canvas. FILL and STROKE are substituted per color.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="14" r="5.5"/>
<path d="M16 37 C16 28 18 24 22.5 21 C27 24 29 28 29 37 Z"/>
<rect x="12" y="36" width="21" height="4" rx="1"/>`,
	nchess.Rook: `<path d="M11 14 L11 9 L15 9 L15 11 L20 11 L20 9 L25 9 L25 11 L30 11 L30 9 L34 9 L34 14 Z"/>
<rect x="14" y="14" width="17" height="19"/>
<rect x="10" y="33" width="25" height="6" rx="1"/>`,
	nchess.Knight: `<path d="M14 38 L31 38 C31 30 30 22 27 16 C25 12 21 9 17 10 L15 7 L13 11 C10 13 9 17 9 21 L13 23 L17 20 C18 24 15 28 14 38 Z"/>
<circle cx="15.5" cy="15" r="1.2" fill="STROKE"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="9" r="2.5"/>
<path d="M22.5 11 C16 15 15 22 17.5 28 L27.5 28 C30 22 29 15 22.5 11 Z"/>
<rect x="16" y="28" width="13" height="4"/>
<rect x="11" y="33" width="23" height="5" rx="1"/>`,
	nchess.Queen: `<path d="M9 14 L13 30 L32 30 L36 14 L29 25 L27 11 L22.5 24 L18 11 L16 25 Z"/>
<circle cx="9" cy="12" r="2"/><circle cx="18" cy="9" r="2"/><circle cx="27" cy="9" r="2"/><circle cx="36" cy="12" r="2"/>
<rect x="11" y="31" width="23" height="7" rx="1"/>`,
	nchess.King: `<rect x="21" y="4" width="3" height="10"/>
<rect x="17.5" y="7" width="10" height="3"/>
<path d="M10 22 C10 16 17 14 22.5 19 C28 14 35 16 35 22 C35 27 31 29 31 31 L14 31 C14 29 10 27 10 22 Z"/>
<rect x="12" y="32" width="21" height="6" rx="1"/>`,
}

type glyphKey struct {
	piece nchess.Piece
	size  int
}

var (
	glyphCache   = map[glyphKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

func pieceSVG(piece nchess.Piece) (string, error) {
	shape, ok := pieceShapes[piece.Type()]
	if !ok {
		return "", fmt.Errorf("no glyph for piece %v", piece)
	}
	fill, stroke := "#f8f8f8", "#1b1b1b"
	if piece.Color() == nchess.Black {
		fill, stroke = "#262626", "#e6e6e6"
	}
	shape = strings.ReplaceAll(shape, `fill="STROKE"`, `fill="`+stroke+`"`)
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`+
		`<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s</g></svg>`, fill, stroke, shape), nil
}

func pieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := glyphKey{piece: piece, size: size}

	glyphCacheMu.RLock()
	if img, ok := glyphCache[key]; ok {
		glyphCacheMu.RUnlock()
		return img, nil
	}
	glyphCacheMu.RUnlock()

	src, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = img
	glyphCacheMu.Unlock()
	return img, nil
}
