package renderer

import (
	"math"

	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
)

// TileScale is the number of world pixels per canvas pixel at zoom.
func TileScale(zoom float64, maxZoom int) float64 {
	return math.Exp2(float64(maxZoom) - zoom)
}

// TileZoom is the discrete tile level used to draw a continuous zoom.
func TileZoom(zoom float64, minZoom, maxZoom int) int {
	z := int(math.Ceil(zoom))
	if z < minZoom {
		return minZoom
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}

// RenderScale scales tile images of the discrete tile zoom to the requested
// continuous zoom.
func RenderScale(zoom float64, minZoom, maxZoom int) float64 {
	return math.Exp2(zoom - float64(TileZoom(zoom, minZoom, maxZoom)))
}

// PixelWorldSize is the number of world pixels covered by one tile image pixel.
func PixelWorldSize(zoom float64, minZoom, maxZoom int) float64 {
	return TileScale(zoom, maxZoom) * RenderScale(zoom, minZoom, maxZoom)
}

// TileGridDimensions returns the always odd number of tile columns and rows
// needed to cover a canvas, so that one tile sits under the center.
func TileGridDimensions(canvasWorldSize, worldTileSize vector.Vector2) (cols, rows int) {
	cols = int(math.Ceil(canvasWorldSize.X/worldTileSize.X/2))*2 + 1
	rows = int(math.Ceil(canvasWorldSize.Y/worldTileSize.Y/2))*2 + 1
	return
}

// Projection converts between world and canvas pixels for one viewport.
type Projection struct {
	Center  vector.Vector2
	Size    vector.Vector2
	Zoom    float64
	MinZoom int
	MaxZoom int
}

func NewProjection(info tiles.MapInfo, center, size vector.Vector2, zoom float64) Projection {
	return Projection{
		Center:  center,
		Size:    size,
		Zoom:    zoom,
		MinZoom: info.MinZoom,
		MaxZoom: info.MaxZoom,
	}
}

func (p Projection) TileScale() float64 {
	return TileScale(p.Zoom, p.MaxZoom)
}

func (p Projection) WorldToCanvas(world vector.Vector2) vector.Vector2 {
	return world.Sub(p.Center).Div(p.TileScale()).Add(p.Size.Div(2))
}

func (p Projection) CanvasToWorld(canvas vector.Vector2) vector.Vector2 {
	return canvas.Sub(p.Size.Div(2)).Mul(p.TileScale()).Add(p.Center)
}

// CanvasRect projects a world rectangle onto the canvas.
func (p Projection) CanvasRect(world vector.Rect) vector.Rect {
	return vector.Rect{Min: p.WorldToCanvas(world.Min), Max: p.WorldToCanvas(world.Max)}
}

// OnCanvas reports whether a canvas rectangle overlaps the visible canvas.
func (p Projection) OnCanvas(r vector.Rect) bool {
	return r.Intersects(vector.Rect{Max: p.Size})
}

// VisibleWorld is the world rectangle shown on the canvas.
func (p Projection) VisibleWorld() vector.Rect {
	return vector.Rect{Min: p.CanvasToWorld(vector.Vector2{}), Max: p.CanvasToWorld(p.Size)}
}

// tileGrid is the visible window of tiles at the discrete tile zoom,
// limited to the tiles of the pyramid.
type tileGrid struct {
	zoom          int
	tileScale     float64
	renderScale   float64
	worldTileSize vector.Vector2
	// Size of one tile on the canvas.
	canvasTileSize vector.Vector2
	center         vector.Vector2
	offset         vector.Vector2
	ixMin, ixMax   int
	iyMin, iyMax   int
}

func newTileGrid(p Projection, tileSize, mapSize vector.Vector2) tileGrid {
	g := tileGrid{
		zoom:        TileZoom(p.Zoom, p.MinZoom, p.MaxZoom),
		tileScale:   p.TileScale(),
		renderScale: RenderScale(p.Zoom, p.MinZoom, p.MaxZoom),
	}
	g.worldTileSize = tileSize.Mul(PixelWorldSize(p.Zoom, p.MinZoom, p.MaxZoom))
	g.canvasTileSize = tileSize.Mul(g.renderScale)
	canvasWorldSize := p.Size.Mul(g.tileScale)
	cols, rows := TileGridDimensions(canvasWorldSize, g.worldTileSize)

	g.center = p.Center.Scale(1/g.worldTileSize.X, 1/g.worldTileSize.Y)
	centerCanvas := canvasWorldSize.Div(2).Scale(1/g.worldTileSize.X, 1/g.worldTileSize.Y)
	g.offset = vector.Translation(g.center, centerCanvas)

	g.ixMin = -(cols / 2)
	g.ixMax = int(math.Ceil(float64(cols) / 2))
	g.iyMin = -(rows / 2)
	g.iyMax = int(math.Ceil(float64(rows) / 2))

	// Below the minimum zoom the window would grow without bound, but no
	// tile outside the pyramid's grid ever resolves.
	gridCols, gridRows := pyramidGridSize(mapSize, g.worldTileSize)
	cx, cy := int(math.Floor(g.center.X)), int(math.Floor(g.center.Y))
	g.ixMin = max(g.ixMin, -cx)
	g.ixMax = min(g.ixMax, gridCols-cx)
	g.iyMin = max(g.iyMin, -cy)
	g.iyMax = min(g.iyMax, gridRows-cy)
	return g
}

// pyramidGridSize is the number of tile columns and rows covering the map.
func pyramidGridSize(mapSize, worldTileSize vector.Vector2) (cols, rows int) {
	cols = int(math.Ceil(mapSize.X / worldTileSize.X))
	rows = int(math.Ceil(mapSize.Y / worldTileSize.Y))
	return
}

func (g tileGrid) tileX(ix int) int {
	return int(math.Floor(g.center.X)) + ix
}

func (g tileGrid) tileY(iy int) int {
	return int(math.Floor(g.center.Y)) + iy
}

// dest is the canvas rectangle of a tile.
func (g tileGrid) dest(tileX, tileY int) vector.Rect {
	topLeft := vector.New(
		g.canvasTileSize.X*(float64(tileX)+g.offset.X),
		g.canvasTileSize.Y*(float64(tileY)+g.offset.Y),
	)
	return vector.Rect{Min: topLeft, Max: topLeft.Add(g.canvasTileSize)}
}

// each visits every visible tile row by row.
func (g tileGrid) each(fn func(tileX, tileY int)) {
	for iy := g.iyMin; iy < g.iyMax; iy++ {
		for ix := g.ixMin; ix < g.ixMax; ix++ {
			fn(g.tileX(ix), g.tileY(iy))
		}
	}
}

// ring visits the tiles one step outside the visible window.
func (g tileGrid) ring(fn func(tileX, tileY int)) {
	for iy := g.iyMin; iy < g.iyMax; iy++ {
		fn(g.tileX(g.ixMin-1), g.tileY(iy))
		fn(g.tileX(g.ixMax), g.tileY(iy))
	}
	for ix := g.ixMin; ix < g.ixMax; ix++ {
		fn(g.tileX(ix), g.tileY(g.iyMin-1))
		fn(g.tileX(ix), g.tileY(g.iyMax))
	}
}
