package worlddata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
)

// flexID accepts both numeric and string ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = flexID(n.String())
	return nil
}

type coord [2]float64

func (c coord) vector() vector.Vector2 {
	return vector.New(c[0], c[1])
}

func polygon(cs []coord) vector.Polygon {
	if len(cs) == 0 {
		return nil
	}
	p := make(vector.Polygon, len(cs))
	for i, c := range cs {
		p[i] = c.vector()
	}
	return p
}

func rect(cs []coord) vector.Rect {
	if len(cs) != 2 {
		return vector.Rect{}
	}
	return vector.Rect{Min: cs[0].vector(), Max: cs[1].vector()}
}

type rawFile struct {
	Maps []rawMap `json:"maps"`
}

type rawMap struct {
	Continent   int         `json:"continent"`
	Floor       int         `json:"floor"`
	Name        string      `json:"name"`
	TextureDims coord       `json:"texture_dims"`
	Regions     []rawRegion `json:"regions"`
}

type rawRegion struct {
	ID            flexID    `json:"id"`
	Name          string    `json:"name"`
	Expansion     string    `json:"expansion"`
	LabelCoord    *coord    `json:"label_coord"`
	ContinentRect []coord   `json:"continent_rect"`
	Bounds        []coord   `json:"bounds"`
	Zones         []rawZone `json:"zones"`
}

type rawZone struct {
	ID               flexID         `json:"id"`
	Name             string         `json:"name"`
	MinLevel         int            `json:"min_level"`
	MaxLevel         int            `json:"max_level"`
	Expansion        string         `json:"expansion"`
	LabelCoord       *coord         `json:"label_coord"`
	ContinentRect    []coord        `json:"continent_rect"`
	Bounds           []coord        `json:"bounds"`
	Sectors          []rawArea      `json:"sectors"`
	PointsOfInterest []rawPOI       `json:"points_of_interest"`
	Tasks            []rawTask      `json:"tasks"`
	SkillChallenges  []rawChallenge `json:"skill_challenges"`
	Adventures       []rawAdventure `json:"adventures"`
	MasteryPoints    []rawMastery   `json:"mastery_points"`
}

type rawArea struct {
	ID         flexID  `json:"id"`
	Name       string  `json:"name"`
	Level      int     `json:"level"`
	LabelCoord *coord  `json:"label_coord"`
	Rect       []coord `json:"rect"`
	Bounds     []coord `json:"bounds"`
}

type rawPOI struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Coord coord  `json:"coord"`
}

type rawTask struct {
	ID        flexID  `json:"id"`
	Objective string  `json:"objective"`
	Level     int     `json:"level"`
	Coord     coord   `json:"coord"`
	Bounds    []coord `json:"bounds"`
}

type rawChallenge struct {
	ID    flexID `json:"id"`
	Coord coord  `json:"coord"`
}

type rawAdventure struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Coord       coord  `json:"coord"`
}

type rawMastery struct {
	ID     flexID `json:"id"`
	Region string `json:"region"`
	Coord  coord  `json:"coord"`
}

func labelPos(c *coord) vector.Vector2 {
	if c == nil {
		return vector.Vector2{}
	}
	return c.vector()
}

func (raw rawZone) zone() *Zone {
	zone := &Zone{
		ID:        string(raw.ID),
		Name:      raw.Name,
		MinLevel:  raw.MinLevel,
		MaxLevel:  raw.MaxLevel,
		Expansion: raw.Expansion,
		LabelPos:  labelPos(raw.LabelCoord),
		Bounds:    polygon(raw.Bounds),
		Rect:      rect(raw.ContinentRect),
	}
	for _, a := range raw.Sectors {
		zone.Areas = append(zone.Areas, &Area{
			ID:       string(a.ID),
			Name:     a.Name,
			Level:    a.Level,
			LabelPos: labelPos(a.LabelCoord),
			Bounds:   polygon(a.Bounds),
			Rect:     rect(a.Rect),
		})
	}
	for _, p := range raw.PointsOfInterest {
		zone.PointsOfInterest = append(zone.PointsOfInterest, &PointOfInterest{
			ID: string(p.ID), Name: p.Name, Type: POIType(p.Type), Coord: p.Coord.vector(),
		})
	}
	for _, t := range raw.Tasks {
		zone.Tasks = append(zone.Tasks, &Task{
			ID: string(t.ID), Objective: t.Objective, Level: t.Level, Coord: t.Coord.vector(), Bounds: polygon(t.Bounds),
		})
	}
	for _, c := range raw.SkillChallenges {
		zone.Challenges = append(zone.Challenges, &Challenge{ID: string(c.ID), Coord: c.Coord.vector()})
	}
	for _, a := range raw.Adventures {
		zone.Adventures = append(zone.Adventures, &Adventure{
			ID: string(a.ID), Name: a.Name, Description: a.Description, Coord: a.Coord.vector(),
		})
	}
	for _, m := range raw.MasteryPoints {
		zone.MasteryPoints = append(zone.MasteryPoints, &MasteryPoint{
			ID: string(m.ID), Region: MasteryRegion(m.Region), Coord: m.Coord.vector(),
		})
	}
	return zone
}

// LoadJSON reads the feature trees of all maps in a world data document.
func LoadJSON(r io.Reader) ([]*Map, error) {
	var file rawFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding world data: %w", err)
	}
	maps := make([]*Map, 0, len(file.Maps))
	for _, raw := range file.Maps {
		regions := make([]*Region, 0, len(raw.Regions))
		for _, rr := range raw.Regions {
			region := &Region{
				ID:        string(rr.ID),
				Name:      rr.Name,
				Expansion: rr.Expansion,
				LabelPos:  labelPos(rr.LabelCoord),
				Bounds:    polygon(rr.Bounds),
				Rect:      rect(rr.ContinentRect),
			}
			for _, rz := range rr.Zones {
				region.Zones = append(region.Zones, rz.zone())
			}
			regions = append(regions, region)
		}
		id := tiles.MapID{Continent: raw.Continent, Floor: raw.Floor}
		m, err := NewMap(id, raw.Name, raw.TextureDims.vector(), regions)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}

func LoadJSONFile(path string) ([]*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadJSON(f)
}
