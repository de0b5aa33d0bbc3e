// Package worlddata holds the static geographic tree of every map: regions
// containing zones containing areas, plus the point features of each zone.
package worlddata

import (
	"fmt"
	"strings"

	"github.com/nielsole/go_worldmap/completion"
	"github.com/nielsole/go_worldmap/vector"
)

type Kind string

const (
	KindRegion          Kind = "region"
	KindZone            Kind = "zone"
	KindArea            Kind = "area"
	KindPointOfInterest Kind = "poi"
	KindTask            Kind = "task"
	KindChallenge       Kind = "challenge"
	KindAdventure       Kind = "adventure"
	KindMasteryPoint    Kind = "mastery"
)

var kinds = []Kind{
	KindRegion, KindZone, KindArea,
	KindPointOfInterest, KindTask, KindChallenge, KindAdventure, KindMasteryPoint,
}

func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Ref identifies a feature within one map.
type Ref struct {
	Kind Kind
	ID   string
}

// Key is the completion key of the feature.
func (r Ref) Key() string {
	return completion.Key(string(r.Kind), r.ID)
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}

// ParseRef parses the "kind:id" form produced by Ref.String.
func ParseRef(s string) (Ref, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Ref{}, fmt.Errorf("invalid feature reference %q", s)
	}
	ref := Ref{Kind: Kind(kind), ID: id}
	if !ref.Kind.Valid() {
		return Ref{}, fmt.Errorf("unknown feature kind %q", kind)
	}
	return ref, nil
}

// Feature is one of *Region, *Zone, *Area, *PointOfInterest, *Task,
// *Challenge, *Adventure or *MasteryPoint.
type Feature interface {
	Ref() Ref
	DisplayName() string
	// Position is the label anchor of polygons and the coordinate of points.
	Position() vector.Vector2
}

type Region struct {
	ID        string
	Name      string
	Expansion string
	LabelPos  vector.Vector2
	Bounds    vector.Polygon
	Rect      vector.Rect
	Zones     []*Zone
}

func (r *Region) Ref() Ref                 { return Ref{KindRegion, r.ID} }
func (r *Region) DisplayName() string      { return r.Name }
func (r *Region) Position() vector.Vector2 { return r.LabelPos }

type Zone struct {
	ID        string
	Name      string
	MinLevel  int
	MaxLevel  int
	Expansion string
	LabelPos  vector.Vector2
	Bounds    vector.Polygon
	Rect      vector.Rect
	Areas     []*Area

	PointsOfInterest []*PointOfInterest
	Tasks            []*Task
	Challenges       []*Challenge
	Adventures       []*Adventure
	MasteryPoints    []*MasteryPoint

	region *Region
}

func (z *Zone) Ref() Ref                 { return Ref{KindZone, z.ID} }
func (z *Zone) DisplayName() string      { return z.Name }
func (z *Zone) Position() vector.Vector2 { return z.LabelPos }
func (z *Zone) Region() *Region          { return z.region }

// Points returns every point feature of the zone in drawing order.
func (z *Zone) Points() []Feature {
	n := len(z.PointsOfInterest) + len(z.Tasks) + len(z.Challenges) + len(z.Adventures) + len(z.MasteryPoints)
	result := make([]Feature, 0, n)
	for _, p := range z.PointsOfInterest {
		result = append(result, p)
	}
	for _, t := range z.Tasks {
		result = append(result, t)
	}
	for _, c := range z.Challenges {
		result = append(result, c)
	}
	for _, a := range z.Adventures {
		result = append(result, a)
	}
	for _, m := range z.MasteryPoints {
		result = append(result, m)
	}
	return result
}

type Area struct {
	ID       string
	Name     string
	Level    int
	LabelPos vector.Vector2
	Bounds   vector.Polygon
	Rect     vector.Rect

	zone *Zone
}

func (a *Area) Ref() Ref                 { return Ref{KindArea, a.ID} }
func (a *Area) DisplayName() string      { return a.Name }
func (a *Area) Position() vector.Vector2 { return a.LabelPos }
func (a *Area) Zone() *Zone              { return a.zone }

type POIType string

const (
	POILandmark POIType = "landmark"
	POIWaypoint POIType = "waypoint"
	POIVista    POIType = "vista"
	POIUnlock   POIType = "unlock"
)

type PointOfInterest struct {
	ID    string
	Name  string
	Type  POIType
	Coord vector.Vector2
}

func (p *PointOfInterest) Ref() Ref                 { return Ref{KindPointOfInterest, p.ID} }
func (p *PointOfInterest) DisplayName() string      { return p.Name }
func (p *PointOfInterest) Position() vector.Vector2 { return p.Coord }

type Task struct {
	ID        string
	Objective string
	Level     int
	Coord     vector.Vector2
	Bounds    vector.Polygon
}

func (t *Task) Ref() Ref                 { return Ref{KindTask, t.ID} }
func (t *Task) DisplayName() string      { return t.Objective }
func (t *Task) Position() vector.Vector2 { return t.Coord }

// Challenge is a hero challenge. Core game ids start with "0"; an empty id
// belongs to an expansion challenge.
type Challenge struct {
	ID    string
	Coord vector.Vector2

	key string
}

func (c *Challenge) Ref() Ref {
	if c.ID == "" {
		return Ref{KindChallenge, c.key}
	}
	return Ref{KindChallenge, c.ID}
}
func (c *Challenge) DisplayName() string      { return "Hero Challenge" }
func (c *Challenge) Position() vector.Vector2 { return c.Coord }

func (c *Challenge) Core() bool {
	return strings.HasPrefix(c.ID, "0")
}

type Adventure struct {
	ID          string
	Name        string
	Description string
	Coord       vector.Vector2
}

func (a *Adventure) Ref() Ref                 { return Ref{KindAdventure, a.ID} }
func (a *Adventure) DisplayName() string      { return a.Name }
func (a *Adventure) Position() vector.Vector2 { return a.Coord }

type MasteryRegion string

const (
	MasteryTyria   MasteryRegion = "Tyria"
	MasteryMaguuma MasteryRegion = "Maguuma"
	MasteryDesert  MasteryRegion = "Desert"
	MasteryTundra  MasteryRegion = "Tundra"
	MasteryUnknown MasteryRegion = "Unknown"
)

type MasteryPoint struct {
	ID     string
	Region MasteryRegion
	Coord  vector.Vector2
}

func (m *MasteryPoint) Ref() Ref                 { return Ref{KindMasteryPoint, m.ID} }
func (m *MasteryPoint) DisplayName() string      { return "Mastery Point" }
func (m *MasteryPoint) Position() vector.Vector2 { return m.Coord }
