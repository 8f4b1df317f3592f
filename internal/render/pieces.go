package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece glyphs are inlined as SVG path data in a 45x45 viewbox, so the
// renderer works without an asset directory on disk.
const pieceViewBox = 45

var piecePaths = map[nchess.PieceType]string{
	nchess.Pawn:   "M22.5,9 C20,9 18,11 18,13.5 C18,15 18.8,16.3 20,17.2 C17,18.5 15,21.5 15,25 L17.5,25 C17.5,28 15.5,31 13.5,33 L31.5,33 C29.5,31 27.5,28 27.5,25 L30,25 C30,21.5 28,18.5 25,17.2 C26.2,16.3 27,15 27,13.5 C27,11 25,9 22.5,9 z M11,36 L34,36 L34,39.5 L11,39.5 z",
	nchess.Rook:   "M11,39.5 L34,39.5 L34,36 L11,36 z M13,34 L32,34 L30.5,31 L14.5,31 z M15,29 L30,29 L29,17 L16,17 z M14,15 L31,15 L32,12 L13,12 z M12,9 L12,12 L17,12 L17,10 L20,10 L20,12 L25,12 L25,10 L28,10 L28,12 L33,12 L33,9 z",
	nchess.Knight: "M11,39.5 L34,39.5 L34,36 L11,36 z M13,34 L32,34 L32,31 C32,24 29.5,20.5 25.5,18 L27,13 L23.5,14.5 L22,10 L20,14.5 C14.5,17.5 12.5,23 12.5,28.5 L16.5,28.5 C16.5,25 18,22 20.5,20.5 L19,25 L22,23.5 C24.5,25.5 26,28 26,31 L13,31 z",
	nchess.Bishop: "M11,39.5 L34,39.5 L34,36.5 L11,36.5 z M14,34.5 L31,34.5 L29.5,31 L15.5,31 z M17,29 L28,29 C30,25.5 30,21 26.5,17 L22.5,12 L18.5,17 C15,21 15,25.5 17,29 z M22.5,8 C21.2,8 20.2,9 20.2,10.3 C20.2,11.6 21.2,12.6 22.5,12.6 C23.8,12.6 24.8,11.6 24.8,10.3 C24.8,9 23.8,8 22.5,8 z",
	nchess.Queen:  "M11,39.5 L34,39.5 L34,36.5 L11,36.5 z M13.5,34.5 L31.5,34.5 L30,31 L15,31 z M15,29 L30,29 L33,14 L27.5,21 L25,11.5 L22.5,20 L20,11.5 L17.5,21 L12,14 z M12,10 a2,2 0 1,1 -0.1,0 z M22.5,8 a2,2 0 1,1 -0.1,0 z M33,10 a2,2 0 1,1 -0.1,0 z",
	nchess.King:   "M11,39.5 L34,39.5 L34,36.5 L11,36.5 z M13.5,34.5 L31.5,34.5 L30.5,31 L14.5,31 z M15,29 L30,29 C32.5,25.5 33,20.5 29.5,18.5 C27,17 24.5,18.5 22.5,21.5 C20.5,18.5 18,17 15.5,18.5 C12,20.5 12.5,25.5 15,29 z M21.5,8 L23.5,8 L23.5,10.5 L26,10.5 L26,12.5 L23.5,12.5 L23.5,16 L21.5,16 L21.5,12.5 L19,12.5 L19,10.5 L21.5,10.5 z",
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}

	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}

func pieceSVG(piece nchess.Piece) ([]byte, error) {
	path, ok := piecePaths[piece.Type()]
	if !ok {
		return nil, fmt.Errorf("no glyph for piece type %v", piece.Type())
	}
	fill, stroke := "#f8f8f8", "#303030"
	if piece.Color() == nchess.Black {
		fill, stroke = "#2f2f2f", "#0c0c0c"
	}
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d"><path d="%s" style="fill:%s;stroke:%s;stroke-width:1.2"/></svg>`,
		pieceViewBox, pieceViewBox, path, fill, stroke,
	)
	return []byte(svg), nil
}
