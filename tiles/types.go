package tiles

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MapID identifies one map of the world: a continent and one of its floors.
type MapID struct {
	Continent, Floor int
}

func (id MapID) String() string {
	return fmt.Sprintf("%d-%d", id.Continent, id.Floor)
}

// ParseMapID parses the "continent-floor" form produced by MapID.String.
func ParseMapID(s string) (MapID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return MapID{}, fmt.Errorf("invalid map id %q", s)
	}
	c, err := strconv.Atoi(parts[0])
	if err != nil {
		return MapID{}, fmt.Errorf("invalid map id %q: %w", s, err)
	}
	f, err := strconv.Atoi(parts[1])
	if err != nil {
		return MapID{}, fmt.Errorf("invalid map id %q: %w", s, err)
	}
	return MapID{c, f}, nil
}

var ErrUnknownMap = errors.New("unknown map")

type Tile struct {
	X, Y, Z int
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// Parent returns the tile one zoom level above that covers this tile.
func (tile Tile) Parent() Tile {
	return Tile{floorDiv(tile.X, 2), floorDiv(tile.Y, 2), tile.Z - 1}
}

// Quadrant returns which quarter of its parent the tile occupies, 0 or 1 on
// each axis.
func (tile Tile) Quadrant() (qx, qy int) {
	return floorMod(tile.X, 2), floorMod(tile.Y, 2)
}

// Children returns the four tiles one zoom level below, in x0y0, x1y0, x0y1,
// x1y1 order.
func (tile Tile) Children() [4]Tile {
	x, y, z := tile.X*2, tile.Y*2, tile.Z+1
	return [4]Tile{{x, y, z}, {x + 1, y, z}, {x, y + 1, z}, {x + 1, y + 1, z}}
}

// Source describes which part of which image to draw for a tile. The crop
// rectangle is in the image's pixel space. Offset is only set for child
// sources and places the child inside the footprint of the requested tile.
type Source struct {
	URL                 string
	X, Y, Width, Height float64
	OffsetX, OffsetY    float64
}

// quadrant returns the quarter of s selected by (qx, qy).
func (s Source) quadrant(qx, qy int) Source {
	w := s.Width / 2
	h := s.Height / 2
	return Source{
		URL:    s.URL,
		X:      s.X + float64(qx)*w,
		Y:      s.Y + float64(qy)*h,
		Width:  w,
		Height: h,
	}
}

// Pyramid is the static description of one map's tile pyramid.
type Pyramid struct {
	Map        MapID
	Name       string
	MinZoom    int
	MaxZoom    int
	Width      int
	Height     int
	TileWidth  int
	TileHeight int
	known      map[Tile]struct{}
}

func NewPyramid(id MapID, name string, minZoom, maxZoom, width, height, tileWidth, tileHeight int) *Pyramid {
	return &Pyramid{
		Map:        id,
		Name:       name,
		MinZoom:    minZoom,
		MaxZoom:    maxZoom,
		Width:      width,
		Height:     height,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		known:      make(map[Tile]struct{}),
	}
}

// AddKnown marks a tile as present in the source tile set.
func (p *Pyramid) AddKnown(tile Tile) {
	p.known[tile] = struct{}{}
}

func (p *Pyramid) IsKnown(tile Tile) bool {
	_, ok := p.known[tile]
	return ok
}

// GridSize returns the number of tile columns and rows at a zoom level. Zoom
// levels beyond MaxZoom are allowed and describe synthesized tiles.
func (p *Pyramid) GridSize(zoom int) (cols, rows int) {
	scale := math.Ldexp(1, p.MaxZoom-zoom)
	cols = int(math.Ceil(float64(p.Width) / (float64(p.TileWidth) * scale)))
	rows = int(math.Ceil(float64(p.Height) / (float64(p.TileHeight) * scale)))
	return
}

func (p *Pyramid) InBounds(tile Tile) bool {
	if tile.X < 0 || tile.Y < 0 {
		return false
	}
	cols, rows := p.GridSize(tile.Z)
	return tile.X < cols && tile.Y < rows
}
