package worlddata

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
)

var (
	// ErrFeatureNotFound is returned for ids that are not part of a map.
	// It points at broken references in the data and is never transient.
	ErrFeatureNotFound = errors.New("feature not found")
	ErrMapNotFound     = errors.New("map not found")
)

// Map is the immutable feature tree of one map.
type Map struct {
	ID          tiles.MapID
	Name        string
	TextureSize vector.Vector2
	Regions     []*Region

	index map[Ref]Feature
}

// NewMap links the tree, fills in missing bounds, rects and label positions
// and indexes every feature. Bounds default to the rect and rects to the
// bounding box of the bounds; labels default to the centroid.
func NewMap(id tiles.MapID, name string, textureSize vector.Vector2, regions []*Region) (*Map, error) {
	m := &Map{
		ID:          id,
		Name:        name,
		TextureSize: textureSize,
		Regions:     regions,
		index:       make(map[Ref]Feature),
	}
	for _, region := range regions {
		region.Bounds, region.Rect = normalizeShape(region.Bounds, region.Rect)
		if region.LabelPos == (vector.Vector2{}) {
			region.LabelPos = region.Bounds.Centroid()
		}
		if err := m.add(region); err != nil {
			return nil, err
		}
		for _, zone := range region.Zones {
			zone.region = region
			if zone.Expansion == "" {
				zone.Expansion = region.Expansion
			}
			zone.Bounds, zone.Rect = normalizeShape(zone.Bounds, zone.Rect)
			if zone.LabelPos == (vector.Vector2{}) {
				zone.LabelPos = zone.Bounds.Centroid()
			}
			if err := m.add(zone); err != nil {
				return nil, err
			}
			for _, area := range zone.Areas {
				area.zone = zone
				area.Bounds, area.Rect = normalizeShape(area.Bounds, area.Rect)
				if area.LabelPos == (vector.Vector2{}) {
					area.LabelPos = area.Bounds.Centroid()
				}
				if err := m.add(area); err != nil {
					return nil, err
				}
			}
			for i, c := range zone.Challenges {
				c.key = fmt.Sprintf("%s/%d", zone.ID, i)
			}
			for _, p := range zone.Points() {
				if err := m.add(p); err != nil {
					return nil, err
				}
			}
		}
	}
	return m, nil
}

func normalizeShape(bounds vector.Polygon, rect vector.Rect) (vector.Polygon, vector.Rect) {
	if len(bounds) < 3 && rect != (vector.Rect{}) {
		bounds = rect.Polygon()
	}
	if rect == (vector.Rect{}) {
		rect = bounds.Bounds()
	}
	return bounds, rect
}

func (m *Map) add(f Feature) error {
	ref := f.Ref()
	if _, ok := m.index[ref]; ok {
		return fmt.Errorf("map %s: duplicate %s", m.ID, ref)
	}
	m.index[ref] = f
	return nil
}

// Feature returns the feature with the given reference.
func (m *Map) Feature(ref Ref) (Feature, error) {
	f, ok := m.index[ref]
	if !ok {
		return nil, fmt.Errorf("map %s: %s: %w", m.ID, ref, ErrFeatureNotFound)
	}
	return f, nil
}

func (m *Map) Region(id string) (*Region, error) {
	f, err := m.Feature(Ref{KindRegion, id})
	if err != nil {
		return nil, err
	}
	return f.(*Region), nil
}

func (m *Map) Zone(id string) (*Zone, error) {
	f, err := m.Feature(Ref{KindZone, id})
	if err != nil {
		return nil, err
	}
	return f.(*Zone), nil
}

func (m *Map) Area(id string) (*Area, error) {
	f, err := m.Feature(Ref{KindArea, id})
	if err != nil {
		return nil, err
	}
	return f.(*Area), nil
}

// Location is the result of a containment query. Nil levels did not match.
type Location struct {
	Map    *Map
	Region *Region
	Zone   *Zone
	Area   *Area
}

func (l Location) Found() bool {
	return l.Region != nil
}

// Locate finds the region, zone and area containing pos. Positions outside
// the texture match nothing. Within each level the first containing feature
// in data order wins.
func (m *Map) Locate(pos vector.Vector2) Location {
	loc := Location{Map: m}
	if pos.X < 0 || pos.Y < 0 || pos.X >= m.TextureSize.X || pos.Y >= m.TextureSize.Y {
		return loc
	}
	for _, region := range m.Regions {
		if !region.Bounds.Contains(pos) {
			continue
		}
		loc.Region = region
		for _, zone := range region.Zones {
			if !zone.Bounds.Contains(pos) {
				continue
			}
			loc.Zone = zone
			for _, area := range zone.Areas {
				if area.Bounds.Contains(pos) {
					loc.Area = area
					break
				}
			}
			return loc
		}
		return loc
	}
	return loc
}

// World holds the feature trees of every loaded map.
type World struct {
	mu   sync.RWMutex
	maps map[tiles.MapID]*Map
}

func NewWorld(maps ...*Map) *World {
	w := &World{maps: make(map[tiles.MapID]*Map)}
	for _, m := range maps {
		w.maps[m.ID] = m
	}
	return w
}

// Add registers a map, replacing one with the same id.
func (w *World) Add(m *Map) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maps[m.ID] = m
}

func (w *World) Maps() []tiles.MapID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]tiles.MapID, 0, len(w.maps))
	for id := range w.maps {
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

func (w *World) Map(id tiles.MapID) (*Map, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.maps[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrMapNotFound)
	}
	return m, nil
}

func (w *World) Feature(id tiles.MapID, ref Ref) (Feature, error) {
	m, err := w.Map(id)
	if err != nil {
		return nil, err
	}
	return m.Feature(ref)
}

func (w *World) Region(id tiles.MapID, regionID string) (*Region, error) {
	m, err := w.Map(id)
	if err != nil {
		return nil, err
	}
	return m.Region(regionID)
}

func (w *World) Zone(id tiles.MapID, zoneID string) (*Zone, error) {
	m, err := w.Map(id)
	if err != nil {
		return nil, err
	}
	return m.Zone(zoneID)
}

func (w *World) Area(id tiles.MapID, areaID string) (*Area, error) {
	m, err := w.Map(id)
	if err != nil {
		return nil, err
	}
	return m.Area(areaID)
}

func (w *World) Locate(id tiles.MapID, pos vector.Vector2) (Location, error) {
	m, err := w.Map(id)
	if err != nil {
		return Location{}, err
	}
	return m.Locate(pos), nil
}
