// Package settings holds the user-tunable knobs that decide which overlay
// features are drawn at which zoom level.
package settings

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// ZoomRange is a half-open zoom interval [Min, Max).
type ZoomRange struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

func (r ZoomRange) Hidden(zoom float64) bool {
	return zoom < r.Min || zoom >= r.Max
}

func (r ZoomRange) Visible(zoom float64) bool {
	return !r.Hidden(zoom)
}

// Completion toggles the two completion states of one point type.
type Completion struct {
	ShowComplete   bool `mapstructure:"complete" json:"complete"`
	ShowIncomplete bool `mapstructure:"incomplete" json:"incomplete"`
}

func (c Completion) Show(complete bool) bool {
	if complete {
		return c.ShowComplete
	}
	return c.ShowIncomplete
}

type Settings struct {
	IconSize float64   `mapstructure:"icon_size" json:"iconSize"`
	Icons    ZoomRange `mapstructure:"icons" json:"icons"`

	RegionBorder ZoomRange `mapstructure:"region_border" json:"regionBorder"`
	RegionText   ZoomRange `mapstructure:"region_text" json:"regionText"`
	ZoneBorder   ZoomRange `mapstructure:"zone_border" json:"zoneBorder"`
	ZoneText     ZoomRange `mapstructure:"zone_text" json:"zoneText"`
	AreaBorder   ZoomRange `mapstructure:"area_border" json:"areaBorder"`
	AreaText     ZoomRange `mapstructure:"area_text" json:"areaText"`

	PointsOfInterest Completion `mapstructure:"points_of_interest" json:"pointsOfInterest"`
	Tasks            Completion `mapstructure:"tasks" json:"tasks"`
	Challenges       Completion `mapstructure:"challenges" json:"challenges"`
	Adventures       Completion `mapstructure:"adventures" json:"adventures"`
	MasteryPoints    Completion `mapstructure:"mastery_points" json:"masteryPoints"`

	// Expansions maps an expansion id to whether its regions and zones are
	// shown. Missing ids are shown.
	Expansions map[string]bool `mapstructure:"expansions" json:"expansions"`
}

var showAll = Completion{ShowComplete: true, ShowIncomplete: true}

func Defaults() Settings {
	return Settings{
		IconSize: 24,
		Icons:    ZoomRange{5.5, 10},

		RegionBorder: ZoomRange{0, 3},
		RegionText:   ZoomRange{0, 3},
		ZoneBorder:   ZoomRange{3, 10},
		ZoneText:     ZoomRange{3, 5},
		AreaBorder:   ZoomRange{5, 10},
		AreaText:     ZoomRange{5, 6},

		PointsOfInterest: showAll,
		Tasks:            showAll,
		Challenges:       showAll,
		Adventures:       showAll,
		MasteryPoints:    showAll,

		Expansions: map[string]bool{
			"base": true,
			"lw2":  true,
			"hot":  true,
			"lw3":  true,
			"pof":  true,
			"lw4":  true,
			"lw5":  true,
			"eod":  true,
		},
	}
}

// EnabledExpansions returns the set of expansion ids that are switched on.
func (s Settings) EnabledExpansions() map[string]struct{} {
	result := make(map[string]struct{}, len(s.Expansions))
	for id, on := range s.Expansions {
		if on {
			result[id] = struct{}{}
		}
	}
	return result
}

// ExpansionEnabled reports whether features of an expansion are shown.
// Unknown expansions are shown.
func (s Settings) ExpansionEnabled(id string) bool {
	on, ok := s.Expansions[id]
	return !ok || on
}

// Source provides the current settings. Implementations are read once at the
// start of every render.
type Source interface {
	Settings() Settings
}

// Static always returns the same settings.
type Static Settings

func (s Static) Settings() Settings {
	return Settings(s)
}

// ViperSource serves a snapshot of the "settings" subtree of a viper
// instance, decoded on top of the defaults. Viper is not safe for concurrent
// use, so renders never read it: the snapshot is taken at construction and
// again on every Reload, which belongs in the viper.OnConfigChange callback.
type ViperSource struct {
	v   *viper.Viper
	key string

	mu   sync.RWMutex
	last Settings
}

func NewViperSource(v *viper.Viper, key string) *ViperSource {
	s := &ViperSource{v: v, key: key, last: Defaults()}
	s.Reload()
	return s
}

// Reload decodes the subtree again. On error the previous snapshot stays.
// It must not run concurrently with writes to the viper instance.
func (s *ViperSource) Reload() error {
	decoded, err := Decode(s.v, s.key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.last = decoded
	s.mu.Unlock()
	return nil
}

func (s *ViperSource) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Decode reads the subtree at key into a copy of the defaults.
func Decode(v *viper.Viper, key string) (Settings, error) {
	result := Defaults()
	if !v.IsSet(key) {
		return result, nil
	}
	if err := v.UnmarshalKey(key, &result); err != nil {
		return Defaults(), fmt.Errorf("decoding %s: %w", key, err)
	}
	return result, nil
}
