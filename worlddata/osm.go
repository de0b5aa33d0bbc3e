package worlddata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

// Hand-authored maps can be drawn in any OSM editor. Lon is the world x
// coordinate and Lat the world y coordinate. Features carry the tags
//
//	worldmap=region|zone|area          on closed ways
//	worldmap=poi|task|challenge|adventure|mastery  on nodes
//	ref=<id> name=<name>
//	region=<id> on zones, zone=<id> on areas and points
//
// plus expansion, min_level, max_level, level, poi_type, objective,
// description, mastery_region and label_x/label_y where they apply.
const kindTag = "worldmap"

func nodeVector(lon, lat float64) vector.Vector2 {
	return vector.New(lon, lat)
}

func tagInt(tags osm.Tags, key string) int {
	v, _ := strconv.Atoi(tags.Find(key))
	return v
}

func tagLabel(tags osm.Tags) vector.Vector2 {
	x, errX := strconv.ParseFloat(tags.Find("label_x"), 64)
	y, errY := strconv.ParseFloat(tags.Find("label_y"), 64)
	if errX != nil || errY != nil {
		return vector.Vector2{}
	}
	return vector.New(x, y)
}

type osmBuilder struct {
	nodes map[osm.NodeID]vector.Vector2
	ways  []*osm.Way
	// points are collected until their zone is known.
	points []*osm.Node
}

// LoadOSM builds the feature tree of one map from an OSM scanner.
func LoadOSM(scanner osm.Scanner, id tiles.MapID, name string, textureSize vector.Vector2) (*Map, error) {
	b := osmBuilder{nodes: make(map[osm.NodeID]vector.Vector2)}
	for scanner.Scan() {
		switch v := scanner.Object().(type) {
		case *osm.Node:
			b.nodes[v.ID] = nodeVector(v.Lon, v.Lat)
			if v.Tags.Find(kindTag) != "" {
				b.points = append(b.points, v)
			}
		case *osm.Way:
			if v.Tags.Find(kindTag) != "" {
				b.ways = append(b.ways, v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning osm data: %w", err)
	}
	return b.build(id, name, textureSize)
}

// LoadOSMFile picks the PBF decoder for .pbf files and the XML one otherwise.
func LoadOSMFile(ctx context.Context, path string, id tiles.MapID, name string, textureSize vector.Vector2) (*Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var scanner osm.Scanner
	if filepath.Ext(path) == ".pbf" {
		scanner = osmpbf.New(ctx, file, runtime.GOMAXPROCS(-1))
	} else {
		scanner = osmxml.New(ctx, file)
	}
	defer scanner.Close()
	return LoadOSM(scanner, id, name, textureSize)
}

func (b *osmBuilder) wayPolygon(w *osm.Way) vector.Polygon {
	p := make(vector.Polygon, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		pos, ok := b.nodes[n.ID]
		if !ok {
			// Way nodes annotated with their location.
			pos = nodeVector(n.Lon, n.Lat)
		}
		p = append(p, pos)
	}
	// Closed ways repeat the first node.
	if len(p) > 1 && p[0] == p[len(p)-1] {
		p = p[:len(p)-1]
	}
	return p
}

func (b *osmBuilder) build(id tiles.MapID, name string, textureSize vector.Vector2) (*Map, error) {
	var regions []*Region
	regionByID := make(map[string]*Region)
	zoneByID := make(map[string]*Zone)

	// Regions first, then zones and areas, so parents always exist.
	for _, pass := range []Kind{KindRegion, KindZone, KindArea} {
		for _, w := range b.ways {
			if Kind(w.Tags.Find(kindTag)) != pass {
				continue
			}
			ref := w.Tags.Find("ref")
			if ref == "" {
				return nil, fmt.Errorf("way %d: %s without ref", w.ID, pass)
			}
			bounds := b.wayPolygon(w)
			switch pass {
			case KindRegion:
				region := &Region{
					ID:        ref,
					Name:      w.Tags.Find("name"),
					Expansion: w.Tags.Find("expansion"),
					LabelPos:  tagLabel(w.Tags),
					Bounds:    bounds,
				}
				regions = append(regions, region)
				regionByID[ref] = region
			case KindZone:
				parent, ok := regionByID[w.Tags.Find("region")]
				if !ok {
					return nil, fmt.Errorf("zone %s: region %q: %w", ref, w.Tags.Find("region"), ErrFeatureNotFound)
				}
				zone := &Zone{
					ID:        ref,
					Name:      w.Tags.Find("name"),
					MinLevel:  tagInt(w.Tags, "min_level"),
					MaxLevel:  tagInt(w.Tags, "max_level"),
					Expansion: w.Tags.Find("expansion"),
					LabelPos:  tagLabel(w.Tags),
					Bounds:    bounds,
				}
				parent.Zones = append(parent.Zones, zone)
				zoneByID[ref] = zone
			case KindArea:
				parent, ok := zoneByID[w.Tags.Find("zone")]
				if !ok {
					return nil, fmt.Errorf("area %s: zone %q: %w", ref, w.Tags.Find("zone"), ErrFeatureNotFound)
				}
				parent.Areas = append(parent.Areas, &Area{
					ID:       ref,
					Name:     w.Tags.Find("name"),
					Level:    tagInt(w.Tags, "level"),
					LabelPos: tagLabel(w.Tags),
					Bounds:   bounds,
				})
			}
		}
	}

	for _, n := range b.points {
		kind := Kind(n.Tags.Find(kindTag))
		ref := n.Tags.Find("ref")
		zone, ok := zoneByID[n.Tags.Find("zone")]
		if !ok {
			return nil, fmt.Errorf("%s %s: zone %q: %w", kind, ref, n.Tags.Find("zone"), ErrFeatureNotFound)
		}
		pos := nodeVector(n.Lon, n.Lat)
		switch kind {
		case KindPointOfInterest:
			zone.PointsOfInterest = append(zone.PointsOfInterest, &PointOfInterest{
				ID: ref, Name: n.Tags.Find("name"), Type: POIType(n.Tags.Find("poi_type")), Coord: pos,
			})
		case KindTask:
			zone.Tasks = append(zone.Tasks, &Task{
				ID: ref, Objective: n.Tags.Find("objective"), Level: tagInt(n.Tags, "level"), Coord: pos,
			})
		case KindChallenge:
			zone.Challenges = append(zone.Challenges, &Challenge{ID: ref, Coord: pos})
		case KindAdventure:
			zone.Adventures = append(zone.Adventures, &Adventure{
				ID: ref, Name: n.Tags.Find("name"), Description: n.Tags.Find("description"), Coord: pos,
			})
		case KindMasteryPoint:
			zone.MasteryPoints = append(zone.MasteryPoints, &MasteryPoint{
				ID: ref, Region: MasteryRegion(n.Tags.Find("mastery_region")), Coord: pos,
			})
		default:
			return nil, fmt.Errorf("node %d: unknown %s=%s", n.ID, kindTag, kind)
		}
	}
	return NewMap(id, name, textureSize, regions)
}
