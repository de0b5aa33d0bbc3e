package renderer

import (
	"image"
	"math"

	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
)

// CropTile scales the crop of src out of img into a new image of one tile.
// Synthesized tiles come out as the upscaled quadrant of their ancestor.
func CropTile(img image.Image, src tiles.Source, tileSize vector.Vector2) *image.RGBA {
	w, h := int(math.Ceil(tileSize.X)), int(math.Ceil(tileSize.Y))
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	blit(out, img, src, vector.Rect{Max: tileSize}, 0)
	return out
}
