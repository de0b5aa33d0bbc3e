package renderer

import (
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Label font size per zoom level.
const (
	regionFontScale = 8
	zoneFontScale   = 5
	areaFontScale   = 2
)

func labelFontSize(zoom, scale float64) float64 {
	return math.Max(1, zoom*scale)
}

// fontCache keeps one face per size. Sizes are rounded to quarter pixels so
// continuous zooming reuses faces. Faces are not safe for concurrent use;
// the renderer only touches them while holding its lock.
type fontCache struct {
	font  *opentype.Font
	faces map[float64]font.Face
}

func newFontCache() (*fontCache, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return &fontCache{font: f, faces: make(map[float64]font.Face)}, nil
}

func (c *fontCache) face(size float64) (font.Face, error) {
	size = math.Round(size*4) / 4
	if f, ok := c.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{Size: size, DPI: 72})
	if err != nil {
		return nil, err
	}
	c.faces[size] = f
	return f, nil
}
