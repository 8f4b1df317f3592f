// Package render rasterizes a chess position into a PNG: board squares,
// SVG piece glyphs, last-move highlight, and a small header HUD.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

// HighlightFromUCI derives a highlight from a long-algebraic move string.
// Returns nil when the string is not a plausible move.
func HighlightFromUCI(uci string) *MoveHighlight {
	if len(uci) < 4 {
		return nil
	}
	from, ok1 := parseSquare(uci[0:2])
	to, ok2 := parseSquare(uci[2:4])
	if !ok1 || !ok2 {
		return nil
	}
	return &MoveHighlight{From: from, To: to}
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Header    string // e.g. "gpt-4o vs claude"
	TurnLabel string // e.g. "Move 14 · black to play"
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

// RenderFEN parses the position and renders it with the default renderer.
func RenderFEN(ctx context.Context, fen string, opts RenderOptions) ([]byte, error) {
	fenOpt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	g := nchess.NewGame(fenOpt)
	return NewSVGBoardRenderer().RenderPNG(ctx, g.Position().Board(), opts)
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}

	const (
		squareSize   = 72
		boardSquares = 8
		boardSize    = squareSize * boardSquares
		sideMargin   = 36
		topMargin    = 84
		bottomMargin = 36
		panelHeight  = 30
		panelRadius  = 10
		panelPadX    = 20
		gapToBoard   = 14
	)

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	boardOrigin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(
		boardOrigin.X,
		boardOrigin.Y,
		boardOrigin.X+boardSize,
		boardOrigin.Y+boardSize,
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, boardRect, panelRadius, panelHeight, panelPadX, gapToBoard)
	drawSquares(img, squareSize, boardOrigin)
	drawHighlight(img, board, opts.Highlight, squareSize, boardOrigin)
	if err := drawPieces(img, board, squareSize, boardOrigin); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, boardOrigin, sideMargin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor     = color.RGBA{22, 24, 34, 255}
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	whiteHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralHighlight    = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextColor        = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor     = color.NRGBA{R: 210, G: 214, B: 230, A: 255}
)

func hudFace() font.Face { return basicfont.Face7x13 }

func drawHUD(img *image.RGBA, opts RenderOptions, boardRect image.Rectangle, radius, panelHeight, padX, gapToBoard int) {
	face := hudFace()
	drawer := &font.Drawer{Dst: img, Face: face}

	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = "LLM Arena"
	}
	turn := strings.TrimSpace(opts.TurnLabel)

	bottom := boardRect.Min.Y - gapToBoard
	top := bottom - panelHeight

	headerWidth := drawer.MeasureString(header).Round() + padX*2
	headerRect := image.Rect(boardRect.Min.X, top, boardRect.Min.X+headerWidth, bottom)
	if headerRect.Max.X > boardRect.Max.X {
		headerRect.Max.X = boardRect.Max.X
		header = truncateWithEllipsis(face, header, headerRect.Dx()-padX*2)
	}
	drawRoundedPanel(img, headerRect, radius, hudPanelColor)
	drawCenteredString(drawer, headerRect, header, hudTextColor)

	if turn == "" {
		return
	}
	turnWidth := drawer.MeasureString(turn).Round() + padX*2
	turnRect := image.Rect(boardRect.Max.X-turnWidth, top, boardRect.Max.X, bottom)
	if turnRect.Min.X < headerRect.Max.X+12 {
		turnRect.Min.X = headerRect.Max.X + 12
		turn = truncateWithEllipsis(face, turn, turnRect.Dx()-padX*2)
	}
	drawRoundedPanel(img, turnRect, radius, hudPanelColor)
	drawCenteredString(drawer, turnRect, turn, hudTextColor)
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq := nchess.NewSquare(nchess.File(col), nchess.Rank(7-row))
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point) error {
	boardMap := board.SquareMap()
	for sq, piece := range boardMap {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		rect := squareRect(sq, squareSize, origin)
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// White's last move fills both squares; black's draws an arrow. Keeping
// the styles distinct makes alternating moves readable at a glance.
func drawHighlight(img *image.RGBA, board *nchess.Board, highlight *MoveHighlight, squareSize int, origin image.Point) {
	if highlight == nil {
		return
	}
	switch moverColor, ok := highlightMoverColor(board, highlight); {
	case ok && moverColor == nchess.Black:
		drawArrow(img, highlight.From, highlight.To, squareSize, origin, blackHighlightArrow)
	case ok && moverColor == nchess.White:
		drawSquareOverlay(img, highlight.From, squareSize, origin, whiteHighlightFill)
		drawSquareOverlay(img, highlight.To, squareSize, origin, whiteHighlightFill)
	default:
		drawArrow(img, highlight.From, highlight.To, squareSize, origin, neutralHighlight)
	}
}

func highlightMoverColor(board *nchess.Board, highlight *MoveHighlight) (nchess.Color, bool) {
	if board == nil || highlight == nil {
		return nchess.NoColor, false
	}
	if piece := board.Piece(highlight.To); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	if piece := board.Piece(highlight.From); piece != nchess.NoPiece {
		return piece.Color(), true
	}
	return nchess.NoColor, false
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, squareSize int, origin image.Point, clr color.Color) {
	rect := squareRect(sq, squareSize, origin)
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to nchess.Square, squareSize int, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	startRect := squareRect(from, squareSize, origin)
	endRect := squareRect(to, squareSize, origin)
	start := image.Pt(startRect.Min.X+squareSize/2, startRect.Min.Y+squareSize/2)
	end := image.Pt(endRect.Min.X+squareSize/2, endRect.Min.Y+squareSize/2)

	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	dirX := dx / length
	dirY := dy / length
	perpX := -dirY
	perpY := dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32

	baseX := float64(start.X) + dirX*baseLength
	baseY := float64(start.Y) + dirY*baseLength

	shaftStartLeft := pointF{X: float64(start.X) - perpX*halfWidth, Y: float64(start.Y) - perpY*halfWidth}
	shaftStartRight := pointF{X: float64(start.X) + perpX*halfWidth, Y: float64(start.Y) + perpY*halfWidth}
	shaftEndLeft := pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth}
	shaftEndRight := pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth}
	fillQuad(img, shaftStartLeft, shaftStartRight, shaftEndRight, shaftEndLeft, clr)

	headLeft := pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2}
	headRight := pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2}
	headTip := pointF{X: float64(end.X), Y: float64(end.Y)}
	fillTriangleF(img, headTip, headLeft, headRight, clr)
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int) {
	face := hudFace()
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()

	boardEndY := origin.Y + 8*squareSize
	for row := 0; row < 8; row++ {
		rank := nchess.Rank(7 - row)
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, baseline)
	}
	for col := 0; col < 8; col++ {
		file := nchess.File(col)
		centerX := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), centerX, boardEndY+ascent+6)
	}
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if radius < 0 {
		radius = 0
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	core := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	imagedraw.Draw(img, core, fill, image.Point{}, imagedraw.Over)
	left := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	imagedraw.Draw(img, left, fill, image.Point{}, imagedraw.Over)
	right := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	imagedraw.Draw(img, right, fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawDisc(img, center, radius, clr)
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
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
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	srcR := float64(sr) / 65535.0
	srcG := float64(sg) / 65535.0
	srcB := float64(sb) / 65535.0

	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0

	var dstR, dstG, dstB float64
	if dstA > 0 {
		inv := 1.0 / dstA
		dstR = float64(dst.R) / 255.0 * inv
		dstG = float64(dst.G) / 255.0 * inv
		dstB = float64(dst.B) / 255.0 * inv
	}

	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		img.SetRGBA(x, y, color.RGBA{})
		return
	}

	outR := (srcR*srcA + dstR*dstA*(1-srcA)) / outA
	outG := (srcG*srcA + dstG*dstA*(1-srcA)) / outA
	outB := (srcB*srcA + dstB*dstA*(1-srcA)) / outA

	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(outR * outA * 255.0),
		G: floatToUint8(outG * outA * 255.0),
		B: floatToUint8(outB * outA * 255.0),
		A: floatToUint8(outA * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func squareRect(sq nchess.Square, squareSize int, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}

type pointF struct {
	X float64
	Y float64
}
