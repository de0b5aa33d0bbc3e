package renderer

import (
	"image"
	"image/color"
	"math"

	"github.com/nielsole/go_worldmap/vector"
	"github.com/nielsole/go_worldmap/worlddata"
)

const (
	regionBorderWidth = 5
	zoneBorderWidth   = 3
	areaBorderWidth   = 1
	areaBorderColor   = "#ffffff"

	highlightPadding = 4
	highlightArm     = 8
	highlightWidth   = 2
)

// outlineOffsets draw the black text outline around labels.
var outlineOffsets = []vector.Vector2{
	{X: -2, Y: -2}, {X: 0, Y: -2}, {X: 2, Y: -2},
	{X: -2, Y: 0}, {X: 2, Y: 0},
	{X: -2, Y: 2}, {X: 0, Y: 2}, {X: 2, Y: 2},
}

func expansionColor(id string) string {
	e, _ := worlddata.ExpansionByID(id)
	return e.Color
}

func (p *pass) isSelected(f worlddata.Feature) bool {
	return p.selected != nil && f.Ref() == p.selected.Ref()
}

// holdsSelection reports whether the selected feature is zone or lies in it.
func (p *pass) holdsSelection(zone *worlddata.Zone) bool {
	switch s := p.selected.(type) {
	case nil:
		return false
	case *worlddata.Region:
		return false
	case *worlddata.Zone:
		return s == zone
	case *worlddata.Area:
		return s.Zone() == zone
	}
	for _, pt := range zone.Points() {
		if p.isSelected(pt) {
			return true
		}
	}
	return false
}

// drawOverlay draws regions, then their zones, then the areas and points of
// each zone. A selected feature is drawn even where zoom, completion or
// expansion settings would hide it.
func (p *pass) drawOverlay() {
	if p.world == nil {
		return
	}
	for _, region := range p.world.Regions {
		p.drawRegion(region)
	}
	p.drawHighlight()
}

// drawRegion draws the region's own border and label only when its rect is
// on the canvas. Its zones are checked one by one.
func (p *pass) drawRegion(region *worlddata.Region) {
	if p.proj.OnCanvas(p.proj.CanvasRect(region.Rect)) {
		zoom := p.ctx.Zoom
		enabled := p.settings.ExpansionEnabled(region.Expansion)
		if enabled && p.settings.RegionBorder.Visible(zoom) {
			p.strokePolygon(region.Bounds, expansionColor(region.Expansion), regionBorderWidth)
		}
		if (enabled && p.settings.RegionText.Visible(zoom)) || p.isSelected(region) {
			p.drawLabel(region, regionFontScale)
		}
	}
	for _, zone := range region.Zones {
		p.drawZone(zone)
	}
}

func (p *pass) drawZone(zone *worlddata.Zone) {
	if !p.proj.OnCanvas(p.proj.CanvasRect(zone.Rect)) {
		return
	}
	enabled := p.settings.ExpansionEnabled(zone.Expansion)
	if !enabled && !p.holdsSelection(zone) {
		return
	}
	zoom := p.ctx.Zoom
	if enabled && p.settings.ZoneBorder.Visible(zoom) {
		p.strokePolygon(zone.Bounds, expansionColor(zone.Expansion), zoneBorderWidth)
	}
	if (enabled && p.settings.ZoneText.Visible(zoom)) || p.isSelected(zone) {
		p.drawLabel(zone, zoneFontScale)
	}
	for _, area := range zone.Areas {
		p.drawArea(area, enabled)
	}
	p.drawPoints(zone, enabled)
}

func (p *pass) drawArea(area *worlddata.Area, enabled bool) {
	if !p.proj.OnCanvas(p.proj.CanvasRect(area.Rect)) {
		return
	}
	zoom := p.ctx.Zoom
	if enabled && p.settings.AreaBorder.Visible(zoom) {
		p.strokePolygon(area.Bounds, areaBorderColor, areaBorderWidth)
	}
	if (enabled && p.settings.AreaText.Visible(zoom)) || p.isSelected(area) {
		p.drawLabel(area, areaFontScale)
	}
}

func (p *pass) drawPoints(zone *worlddata.Zone, enabled bool) {
	iconsVisible := enabled && p.settings.Icons.Visible(p.ctx.Zoom)
	for _, pt := range zone.Points() {
		name, ok := iconName(pt)
		if !ok {
			continue
		}
		complete := p.done.Has(pt.Ref().Key())
		if !p.isSelected(pt) && !(iconsVisible && completionToggle(p.settings, pt).Show(complete)) {
			continue
		}
		url := p.r.icons[name].URL(complete)
		if url == "" {
			continue
		}
		p.drawIcon(pt, url)
	}
}

func (p *pass) drawIcon(f worlddata.Feature, url string) {
	size := p.settings.IconSize
	center := p.proj.WorldToCanvas(f.Position())
	topLeft := center.Sub(vector.New(size/2, size/2))
	box := vector.Rect{Min: topLeft, Max: topLeft.Add(vector.New(size, size))}
	if !p.proj.OnCanvas(box) {
		return
	}
	dc := p.frame.overlay
	p.r.whenReady(p.frame, url, func(img image.Image) {
		b := img.Bounds()
		if b.Empty() {
			return
		}
		dc.Push()
		dc.Translate(box.Min.X, box.Min.Y)
		dc.Scale(size/float64(b.Dx()), size/float64(b.Dy()))
		dc.DrawImage(img, -b.Min.X, -b.Min.Y)
		dc.Pop()
	})
	p.entities = append(p.entities, SelectableEntity{
		ScreenPosition: box.Min,
		ScreenSize:     box.Size(),
		Feature:        f,
	})
}

// drawLabel writes the name of f centered on its label position, white with
// a black outline.
func (p *pass) drawLabel(f worlddata.Feature, scale float64) {
	text := f.DisplayName()
	if text == "" {
		return
	}
	size := labelFontSize(p.ctx.Zoom, scale)
	face, err := p.r.fonts.face(size)
	if err != nil {
		p.r.log.WithError(err).Warn("loading label font face")
		return
	}
	pos := p.proj.WorldToCanvas(f.Position())
	baseline := pos.Y + size/4

	dc := p.frame.overlay
	dc.Push()
	dc.SetFontFace(face)
	dc.SetColor(color.Black)
	for _, o := range outlineOffsets {
		dc.DrawStringAnchored(text, pos.X+o.X, baseline+o.Y, 0.5, 0)
	}
	dc.SetColor(color.White)
	dc.DrawStringAnchored(text, pos.X, baseline, 0.5, 0)
	w, h := dc.MeasureString(text)
	dc.Pop()

	p.entities = append(p.entities, SelectableEntity{
		ScreenPosition: vector.New(pos.X-w/2, baseline-h),
		ScreenSize:     vector.New(w, h),
		Feature:        f,
	})
}

func (p *pass) strokePolygon(poly vector.Polygon, hex string, width float64) {
	if len(poly) < 2 {
		return
	}
	dc := p.frame.overlay
	dc.Push()
	dc.SetHexColor(hex)
	dc.SetLineWidth(width)
	start := p.proj.WorldToCanvas(poly[0])
	dc.MoveTo(start.X, start.Y)
	for _, v := range poly[1:] {
		pt := p.proj.WorldToCanvas(v)
		dc.LineTo(pt.X, pt.Y)
	}
	dc.ClosePath()
	dc.Stroke()
	dc.Pop()
}

// drawHighlight brackets the corners of the selected feature's hit box.
func (p *pass) drawHighlight() {
	if p.selected == nil {
		return
	}
	var box vector.Rect
	found := false
	for i := len(p.entities) - 1; i >= 0; i-- {
		if p.isSelected(p.entities[i].Feature) {
			box = p.entities[i].Box()
			found = true
			break
		}
	}
	if !found {
		return
	}
	pad := vector.New(highlightPadding, highlightPadding)
	lo, hi := box.Min.Sub(pad), box.Max.Add(pad)
	arm := math.Min(highlightArm, math.Min(hi.X-lo.X, hi.Y-lo.Y)/2)

	dc := p.frame.overlay
	dc.Push()
	dc.SetColor(color.White)
	dc.SetLineWidth(highlightWidth)
	corners := []struct{ x, y, dx, dy float64 }{
		{lo.X, lo.Y, 1, 1},
		{hi.X, lo.Y, -1, 1},
		{lo.X, hi.Y, 1, -1},
		{hi.X, hi.Y, -1, -1},
	}
	for _, c := range corners {
		dc.MoveTo(c.x+c.dx*arm, c.y)
		dc.LineTo(c.x, c.y)
		dc.LineTo(c.x, c.y+c.dy*arm)
		dc.Stroke()
	}
	dc.Pop()
}
