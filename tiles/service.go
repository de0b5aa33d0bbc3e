package tiles

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/nielsole/go_worldmap/vector"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCDN = "https://cdn.jsdelivr.net/gh/CptWesley/Gw2InteractiveMapTiles@v2/tiles"
	DefaultExt = "webp"
)

// URLTemplate builds source tile URLs of the form
// {Base}/C{continent}_F{floor}_Z{zoom}_X{x}_Y{y}.{Ext}.
type URLTemplate struct {
	Base string
	Ext  string
}

func (u URLTemplate) URL(id MapID, tile Tile) string {
	return fmt.Sprintf("%s/C%d_F%d_Z%d_X%d_Y%d.%s", u.Base, id.Continent, id.Floor, tile.Z, tile.X, tile.Y, u.Ext)
}

// MapInfo is the public summary of a pyramid.
type MapInfo struct {
	ID       MapID
	Name     string
	MinZoom  int
	MaxZoom  int
	Size     vector.Vector2
	TileSize vector.Vector2
}

type level struct {
	cols, rows int
	sources    []Source
	ok         []bool
}

func (l *level) get(x, y int) (Source, bool) {
	if x < 0 || y < 0 || x >= l.cols || y >= l.rows {
		return Source{}, false
	}
	i := x*l.rows + y
	return l.sources[i], l.ok[i]
}

type lookup struct {
	pyramid *Pyramid
	levels  []level
}

// Service resolves tile coordinates to image crops. The per-map lookup table
// is built on first use and kept for the lifetime of the service.
type Service struct {
	urls   URLTemplate
	logger logrus.FieldLogger

	mu       sync.Mutex
	pyramids map[MapID]*Pyramid
	lookups  map[MapID]*lookup
}

func NewService(urls URLTemplate, pyramids ...*Pyramid) *Service {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	s := &Service{
		urls:     urls,
		logger:   silent,
		pyramids: make(map[MapID]*Pyramid),
		lookups:  make(map[MapID]*lookup),
	}
	for _, p := range pyramids {
		s.pyramids[p.Map] = p
	}
	return s
}

func (s *Service) SetLogger(l logrus.FieldLogger) {
	s.logger = l
}

func (s *Service) URL(id MapID, tile Tile) string {
	return s.urls.URL(id, tile)
}

// Maps returns the ids of every registered map ordered by continent and
// floor.
func (s *Service) Maps() []MapID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]MapID, 0, len(s.pyramids))
	for id := range s.pyramids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Continent != ids[j].Continent {
			return ids[i].Continent < ids[j].Continent
		}
		return ids[i].Floor < ids[j].Floor
	})
	return ids
}

func (s *Service) MapInfo(id MapID) (MapInfo, error) {
	s.mu.Lock()
	p, ok := s.pyramids[id]
	s.mu.Unlock()
	if !ok {
		return MapInfo{}, fmt.Errorf("%w: %s", ErrUnknownMap, id)
	}
	return MapInfo{
		ID:       id,
		Name:     p.Name,
		MinZoom:  p.MinZoom,
		MaxZoom:  p.MaxZoom,
		Size:     vector.New(float64(p.Width), float64(p.Height)),
		TileSize: vector.New(float64(p.TileWidth), float64(p.TileHeight)),
	}, nil
}

func (s *Service) getLookup(id MapID) *lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lookups[id]; ok {
		return l
	}
	p, ok := s.pyramids[id]
	if !ok {
		return nil
	}
	l := s.build(p)
	s.lookups[id] = l
	return l
}

// build fills the lookup table zoom by zoom. Known tiles map to their own
// image; every other tile takes a quadrant of its parent's source.
func (s *Service) build(p *Pyramid) *lookup {
	l := &lookup{pyramid: p, levels: make([]level, p.MaxZoom-p.MinZoom+1)}
	for z := p.MinZoom; z <= p.MaxZoom; z++ {
		cols, rows := p.GridSize(z)
		lv := level{cols: cols, rows: rows, sources: make([]Source, cols*rows), ok: make([]bool, cols*rows)}
		for x := 0; x < cols; x++ {
			for y := 0; y < rows; y++ {
				tile := Tile{x, y, z}
				i := x*rows + y
				if p.IsKnown(tile) {
					lv.sources[i] = Source{
						URL:    s.urls.URL(p.Map, tile),
						Width:  float64(p.TileWidth),
						Height: float64(p.TileHeight),
					}
					lv.ok[i] = true
					continue
				}
				if z == p.MinZoom {
					s.logger.WithFields(logrus.Fields{"map": p.Map, "tile": tile}).Warn("tile missing at minimum zoom")
					continue
				}
				parentTile := tile.Parent()
				parent, ok := l.levels[z-1-p.MinZoom].get(parentTile.X, parentTile.Y)
				if !ok {
					continue
				}
				qx, qy := tile.Quadrant()
				lv.sources[i] = parent.quadrant(qx, qy)
				lv.ok[i] = true
			}
		}
		l.levels[z-p.MinZoom] = lv
	}
	s.logger.WithFields(logrus.Fields{"map": p.Map, "known": len(p.known)}).Debug("built tile lookup")
	return l
}

// TileSource resolves a tile. Tiles outside the grid, below the minimum zoom
// or on an unknown map are reported as missing. Zoom levels above the
// pyramid's maximum are synthesized from the deepest level.
func (s *Service) TileSource(id MapID, zoom, x, y int) (Source, bool) {
	l := s.getLookup(id)
	if l == nil {
		return Source{}, false
	}
	return l.resolve(Tile{x, y, zoom})
}

func (l *lookup) resolve(tile Tile) (Source, bool) {
	p := l.pyramid
	if tile.Z < p.MinZoom || !p.InBounds(tile) {
		return Source{}, false
	}
	if tile.Z <= p.MaxZoom {
		return l.levels[tile.Z-p.MinZoom].get(tile.X, tile.Y)
	}
	parent, ok := l.resolve(tile.Parent())
	if !ok {
		return Source{}, false
	}
	qx, qy := tile.Quadrant()
	return parent.quadrant(qx, qy), true
}

// TileSourceFromParent returns the crop of the parent tile's source that
// covers the requested tile.
func (s *Service) TileSourceFromParent(id MapID, zoom, x, y int) (Source, bool) {
	tile := Tile{x, y, zoom}
	parentTile := tile.Parent()
	parent, ok := s.TileSource(id, parentTile.Z, parentTile.X, parentTile.Y)
	if !ok {
		return Source{}, false
	}
	qx, qy := tile.Quadrant()
	return parent.quadrant(qx, qy), true
}

// TileSourcesFromChildren returns the sources of the up to four child tiles,
// each offset to its position inside the requested tile. Missing children
// are skipped.
func (s *Service) TileSourcesFromChildren(id MapID, zoom, x, y int) []Source {
	result := make([]Source, 0, 4)
	for i, child := range (Tile{x, y, zoom}).Children() {
		src, ok := s.TileSource(id, child.Z, child.X, child.Y)
		if !ok {
			continue
		}
		src.OffsetX = float64(i%2) * src.Width
		src.OffsetY = float64(i/2) * src.Height
		result = append(result, src)
	}
	return result
}
