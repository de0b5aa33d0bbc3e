package tiles

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// rawMap is the on-disk form of one pyramid. Tiles maps zoom -> x -> list of
// y for every source tile that exists.
type rawMap struct {
	Continent  int
	Floor      int
	Name       string
	MinZoom    int
	MaxZoom    int
	Width      int
	Height     int
	TileWidth  int
	TileHeight int
	Tiles      map[int]map[int][]int
}

// LoadManifest reads a JSON array of pyramid descriptions.
func LoadManifest(r io.Reader) ([]*Pyramid, error) {
	var raw []rawMap
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding tile manifest: %w", err)
	}
	pyramids := make([]*Pyramid, 0, len(raw))
	for _, m := range raw {
		if m.TileWidth <= 0 || m.TileHeight <= 0 {
			return nil, fmt.Errorf("map %d-%d: invalid tile size %dx%d", m.Continent, m.Floor, m.TileWidth, m.TileHeight)
		}
		if m.MinZoom > m.MaxZoom {
			return nil, fmt.Errorf("map %d-%d: min zoom %d above max zoom %d", m.Continent, m.Floor, m.MinZoom, m.MaxZoom)
		}
		p := NewPyramid(MapID{m.Continent, m.Floor}, m.Name, m.MinZoom, m.MaxZoom, m.Width, m.Height, m.TileWidth, m.TileHeight)
		for z, columns := range m.Tiles {
			for x, ys := range columns {
				for _, y := range ys {
					p.AddKnown(Tile{x, y, z})
				}
			}
		}
		pyramids = append(pyramids, p)
	}
	return pyramids, nil
}

func LoadManifestFile(path string) ([]*Pyramid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadManifest(file)
}
