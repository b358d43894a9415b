package render

import (
	"fmt"

	"github.com/Iron-Ham/ringplot/internal/config"
)

// Color is a 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// Hex formats c as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Rect is a filled rectangle in surface pixels.
type Rect struct {
	X, Y          int
	Width, Height int
	Color         Color
}

// Geometry lays ring positions out as a grid of blocks over a fixed surface.
type Geometry struct {
	Width       int
	Height      int
	BlockWidth  int
	BlockHeight int
}

// NewGeometry builds a Geometry from the screen configuration.
func NewGeometry(cfg config.ScreenConfig) Geometry {
	return Geometry{
		Width:       cfg.Width,
		Height:      cfg.Height,
		BlockWidth:  cfg.BlockWidth,
		BlockHeight: cfg.BlockHeight,
	}
}

// Columns is the number of whole blocks in one row.
func (g Geometry) Columns() int {
	if g.BlockWidth <= 0 {
		return 0
	}
	return g.Width / g.BlockWidth
}

// Rows is the number of block rows that start inside the surface, counting a
// partially visible last row.
func (g Geometry) Rows() int {
	if g.BlockHeight <= 0 {
		return 0
	}
	return (g.Height + g.BlockHeight - 1) / g.BlockHeight
}

// VisibleBlocks is the number of ring positions that land on the surface.
func (g Geometry) VisibleBlocks() int {
	return g.Columns() * g.Rows()
}

// RectFor maps ring position index holding value to its block.
//
//	x = (index mod columns) * BlockWidth
//	y = (index div columns) * BlockHeight
func (g Geometry) RectFor(index int, value int32) Rect {
	cols := g.Columns()
	if cols == 0 {
		return Rect{Width: g.BlockWidth, Height: g.BlockHeight, Color: ColorFor(value)}
	}
	return Rect{
		X:      (index % cols) * g.BlockWidth,
		Y:      (index / cols) * g.BlockHeight,
		Width:  g.BlockWidth,
		Height: g.BlockHeight,
		Color:  ColorFor(value),
	}
}

// Visible reports whether r overlaps the surface.
func (g Geometry) Visible(r Rect) bool {
	return r.X < g.Width && r.Y < g.Height && r.X+r.Width > 0 && r.Y+r.Height > 0
}

// ColorFor derives a block color from a sample. Red is the value, green half
// of it and blue a quarter, each reduced to its low eight bits. Division
// truncates toward zero, so negative samples wrap in two's complement:
// -1 maps to (255, 0, 0).
func ColorFor(v int32) Color {
	return Color{
		R: uint8(v),
		G: uint8(v / 2),
		B: uint8(v / 4),
	}
}
