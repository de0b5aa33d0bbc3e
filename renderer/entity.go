package renderer

import (
	"encoding/json"

	"github.com/nielsole/go_worldmap/vector"
	"github.com/nielsole/go_worldmap/worlddata"
)

// SelectableEntity is the screen space hit box of one drawn label or icon.
type SelectableEntity struct {
	ScreenPosition vector.Vector2
	ScreenSize     vector.Vector2
	Feature        worlddata.Feature
}

func (e SelectableEntity) Box() vector.Rect {
	return vector.Rect{Min: e.ScreenPosition, Max: e.ScreenPosition.Add(e.ScreenSize)}
}

func (e SelectableEntity) MarshalJSON() ([]byte, error) {
	ref := e.Feature.Ref()
	return json.Marshal(struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
		Kind   string  `json:"kind"`
		ID     string  `json:"id"`
		Name   string  `json:"name"`
	}{
		e.ScreenPosition.X, e.ScreenPosition.Y,
		e.ScreenSize.X, e.ScreenSize.Y,
		string(ref.Kind), ref.ID, e.Feature.DisplayName(),
	})
}

// HitTest returns the entity under a canvas point. Entities drawn later are
// on top and win.
func HitTest(entities []SelectableEntity, point vector.Vector2) (SelectableEntity, bool) {
	for i := len(entities) - 1; i >= 0; i-- {
		if entities[i].Box().Contains(point) {
			return entities[i], true
		}
	}
	return SelectableEntity{}, false
}
