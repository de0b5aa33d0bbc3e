package worlddata

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
	"github.com/paulmach/osm/osmxml"
)

const worldJSON = `{
  "maps": [{
    "continent": 1, "floor": 1, "name": "Tyria",
    "texture_dims": [1000, 1000],
    "regions": [{
      "id": 4, "name": "Ascalon", "expansion": "base",
      "continent_rect": [[0, 0], [500, 500]],
      "zones": [{
        "id": "19", "name": "Plains of Ashford",
        "label_coord": [120, 130],
        "bounds": [[0, 0], [200, 0], [200, 200], [0, 200]],
        "sectors": [
          {"id": 1, "name": "Ashford", "rect": [[0, 0], [100, 100]]},
          {"id": 2, "name": "Devastation", "bounds": [[100, 0], [200, 0], [200, 100], [100, 100]]}
        ],
        "points_of_interest": [
          {"id": 10, "name": "Ashford Waypoint", "type": "waypoint", "coord": [50, 50]},
          {"id": 11, "name": "Unlock", "type": "unlock", "coord": [60, 60]}
        ],
        "tasks": [{"id": 7, "objective": "Help", "level": 3, "coord": [70, 70]}],
        "skill_challenges": [{"id": "0-1", "coord": [80, 80]}, {"coord": [90, 90]}],
        "adventures": [{"id": "a", "name": "Race", "coord": [10, 10]}],
        "mastery_points": [{"id": 3, "region": "Tyria", "coord": [20, 20]}]
      }]
    }]
  }]
}`

func loadTestMap(t *testing.T) *Map {
	t.Helper()
	maps, err := LoadJSON(strings.NewReader(worldJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(maps) != 1 {
		t.Fatalf("expected 1 map, got %d", len(maps))
	}
	return maps[0]
}

func TestLoadJSON(t *testing.T) {
	m := loadTestMap(t)
	if m.ID != (tiles.MapID{Continent: 1, Floor: 1}) {
		t.Errorf("unexpected map id %v", m.ID)
	}
	region, err := m.Region("4")
	if err != nil {
		t.Fatal(err)
	}
	if len(region.Bounds) != 4 {
		t.Errorf("region bounds should default to its rect, got %v", region.Bounds)
	}
	if region.LabelPos != vector.New(250, 250) {
		t.Errorf("region label should default to the centroid, got %v", region.LabelPos)
	}
	zone, err := m.Zone("19")
	if err != nil {
		t.Fatal(err)
	}
	if zone.Region() != region || zone.Expansion != "base" {
		t.Errorf("zone should inherit region and expansion")
	}
	if zone.Rect != (vector.Rect{Min: vector.New(0, 0), Max: vector.New(200, 200)}) {
		t.Errorf("zone rect should be derived from bounds, got %v", zone.Rect)
	}
	if zone.LabelPos != vector.New(120, 130) {
		t.Errorf("explicit label should be kept, got %v", zone.LabelPos)
	}
	if got := len(zone.Points()); got != 7 {
		t.Errorf("zone should have 7 points, but has %d", got)
	}
	area, err := m.Area("2")
	if err != nil {
		t.Fatal(err)
	}
	if area.Zone() != zone {
		t.Errorf("area should link back to its zone")
	}
}

func TestChallengeRefs(t *testing.T) {
	zone, err := loadTestMap(t).Zone("19")
	if err != nil {
		t.Fatal(err)
	}
	core, expansion := zone.Challenges[0], zone.Challenges[1]
	if !core.Core() || expansion.Core() {
		t.Errorf("only ids starting with 0 are core challenges")
	}
	if got := expansion.Ref().Key(); got != "challenge#19/1" {
		t.Errorf("challenge without id should get a positional key, got %v", got)
	}
	if got := core.Ref().Key(); got != "challenge#0-1" {
		t.Errorf("unexpected key %v", got)
	}
}

func TestFeatureNotFound(t *testing.T) {
	w := NewWorld(loadTestMap(t))
	id := tiles.MapID{Continent: 1, Floor: 1}
	if _, err := w.Zone(id, "999"); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("missing zone should be ErrFeatureNotFound, got %v", err)
	}
	if _, err := w.Feature(id, Ref{KindTask, "8"}); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("missing task should be ErrFeatureNotFound, got %v", err)
	}
	if _, err := w.Region(tiles.MapID{Continent: 2, Floor: 1}, "4"); !errors.Is(err, ErrMapNotFound) {
		t.Errorf("unknown map should be ErrMapNotFound, got %v", err)
	}
	f, err := w.Feature(id, Ref{KindPointOfInterest, "10"})
	if err != nil {
		t.Fatal(err)
	}
	if f.DisplayName() != "Ashford Waypoint" {
		t.Errorf("unexpected feature %v", f.DisplayName())
	}
}

func TestDuplicateIDs(t *testing.T) {
	regions := []*Region{
		{ID: "1", Rect: vector.Rect{Max: vector.New(1, 1)}},
		{ID: "1", Rect: vector.Rect{Max: vector.New(1, 1)}},
	}
	if _, err := NewMap(tiles.MapID{}, "", vector.New(1, 1), regions); err == nil {
		t.Errorf("duplicate region ids should fail")
	}
}

func TestLocate(t *testing.T) {
	m := loadTestMap(t)
	cases := []struct {
		pos                vector.Vector2
		region, zone, area string
	}{
		{vector.New(50, 50), "4", "19", "1"},
		{vector.New(150, 50), "4", "19", "2"},
		// Shared edge of both areas: the first area in data order wins.
		{vector.New(100, 50), "4", "19", "1"},
		{vector.New(150, 150), "4", "19", ""},
		{vector.New(400, 400), "4", "", ""},
		{vector.New(800, 800), "", "", ""},
		{vector.New(-1, 5), "", "", ""},
		{vector.New(5000, 5000), "", "", ""},
	}
	for _, c := range cases {
		loc := m.Locate(c.pos)
		var region, zone, area string
		if loc.Region != nil {
			region = loc.Region.ID
		}
		if loc.Zone != nil {
			zone = loc.Zone.ID
		}
		if loc.Area != nil {
			area = loc.Area.ID
		}
		if region != c.region || zone != c.zone || area != c.area {
			t.Errorf("Locate(%v) should be %q/%q/%q, but is %q/%q/%q", c.pos, c.region, c.zone, c.area, region, zone, area)
		}
	}
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("zone:19")
	if err != nil {
		t.Fatal(err)
	}
	if ref != (Ref{KindZone, "19"}) || ref.String() != "zone:19" {
		t.Errorf("unexpected ref %v", ref)
	}
	for _, bad := range []string{"zone", "zone:", "planet:1"} {
		if _, err := ParseRef(bad); err == nil {
			t.Errorf("ParseRef(%q) should fail", bad)
		}
	}
}

func TestExpansionByID(t *testing.T) {
	e, ok := ExpansionByID("pof")
	if !ok || e.Color != "#cc2a06" {
		t.Errorf("unexpected expansion %v", e)
	}
	if e, ok := ExpansionByID("nope"); ok || e.ID != "base" {
		t.Errorf("unknown expansions should fall back to base")
	}
}

const worldOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0" lon="0"/>
  <node id="2" lat="0" lon="100"/>
  <node id="3" lat="100" lon="100"/>
  <node id="4" lat="100" lon="0"/>
  <node id="5" lat="0" lon="50"/>
  <node id="6" lat="50" lon="50"/>
  <node id="7" lat="50" lon="0"/>
  <node id="20" lat="25" lon="25">
    <tag k="worldmap" v="poi"/>
    <tag k="ref" v="100"/>
    <tag k="zone" v="z1"/>
    <tag k="poi_type" v="vista"/>
  </node>
  <node id="21" lat="30" lon="30">
    <tag k="worldmap" v="mastery"/>
    <tag k="ref" v="m1"/>
    <tag k="zone" v="z1"/>
    <tag k="mastery_region" v="Desert"/>
  </node>
  <way id="10">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="4"/><nd ref="1"/>
    <tag k="worldmap" v="region"/>
    <tag k="ref" v="r1"/>
    <tag k="name" v="Crystal Desert"/>
    <tag k="expansion" v="pof"/>
  </way>
  <way id="11">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="4"/><nd ref="1"/>
    <tag k="worldmap" v="zone"/>
    <tag k="ref" v="z1"/>
    <tag k="region" v="r1"/>
    <tag k="name" v="Crystal Oasis"/>
    <tag k="label_x" v="10"/>
    <tag k="label_y" v="20"/>
  </way>
  <way id="12">
    <nd ref="1"/><nd ref="5"/><nd ref="6"/><nd ref="7"/><nd ref="1"/>
    <tag k="worldmap" v="area"/>
    <tag k="ref" v="a1"/>
    <tag k="zone" v="z1"/>
    <tag k="name" v="Amnoon"/>
  </way>
</osm>`

func TestLoadOSM(t *testing.T) {
	scanner := osmxml.New(context.Background(), strings.NewReader(worldOSM))
	defer scanner.Close()
	id := tiles.MapID{Continent: 1, Floor: 1}
	m, err := LoadOSM(scanner, id, "Tyria", vector.New(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	zone, err := m.Zone("z1")
	if err != nil {
		t.Fatal(err)
	}
	if len(zone.Bounds) != 4 {
		t.Errorf("closed way should drop its repeated node, got %v", zone.Bounds)
	}
	if zone.Expansion != "pof" {
		t.Errorf("zone should inherit the region expansion, got %q", zone.Expansion)
	}
	if zone.LabelPos != vector.New(10, 20) {
		t.Errorf("label tags should be used, got %v", zone.LabelPos)
	}
	if len(zone.PointsOfInterest) != 1 || zone.PointsOfInterest[0].Type != POIVista {
		t.Errorf("unexpected points of interest %v", zone.PointsOfInterest)
	}
	if len(zone.MasteryPoints) != 1 || zone.MasteryPoints[0].Region != MasteryDesert {
		t.Errorf("unexpected mastery points %v", zone.MasteryPoints)
	}
	loc := m.Locate(vector.New(25, 25))
	if loc.Area == nil || loc.Area.Name != "Amnoon" {
		t.Errorf("point should be located in Amnoon, got %+v", loc)
	}
}

func TestLoadOSMMissingParent(t *testing.T) {
	data := `<osm version="0.6">
  <node id="1" lat="0" lon="0"><tag k="worldmap" v="task"/><tag k="ref" v="1"/><tag k="zone" v="x"/></node>
</osm>`
	scanner := osmxml.New(context.Background(), strings.NewReader(data))
	defer scanner.Close()
	_, err := LoadOSM(scanner, tiles.MapID{}, "", vector.New(1, 1))
	if !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("point with unknown zone should fail with ErrFeatureNotFound, got %v", err)
	}
}
