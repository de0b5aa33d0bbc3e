// Package renderer draws a map viewport: tile imagery underneath, borders,
// labels and point icons on top. Images that arrive after a newer render has
// started are dropped.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"git.sr.ht/~sbinet/gg"
	"github.com/nielsole/go_worldmap/completion"
	"github.com/nielsole/go_worldmap/imagecache"
	"github.com/nielsole/go_worldmap/settings"
	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
	"github.com/nielsole/go_worldmap/worlddata"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Background fills the tile layer where no tile has been drawn (#0d0024).
var Background = color.RGBA{R: 0x0d, G: 0x00, B: 0x24, A: 0xff}

type TileSource interface {
	MapInfo(id tiles.MapID) (tiles.MapInfo, error)
	TileSource(id tiles.MapID, zoom, x, y int) (tiles.Source, bool)
	TileSourceFromParent(id tiles.MapID, zoom, x, y int) (tiles.Source, bool)
	TileSourcesFromChildren(id tiles.MapID, zoom, x, y int) []tiles.Source
}

type ImageSource interface {
	Request(url string) *imagecache.Handle
	IsCached(url string) bool
}

type WorldSource interface {
	Map(id tiles.MapID) (*worlddata.Map, error)
}

type noCompletion struct{}

func (noCompletion) Completed(string) completion.Set { return nil }

type Option func(*Renderer)

func WithSettings(s settings.Source) Option {
	return func(r *Renderer) { r.settings = s }
}

func WithCompletion(c completion.Source) Option {
	return func(r *Renderer) { r.completion = c }
}

// WithIcons replaces entries of the icon catalogue.
func WithIcons(icons map[string]IconURLs) Option {
	return func(r *Renderer) {
		for name, urls := range icons {
			r.icons[name] = urls
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Renderer) { r.log = l }
}

// Context is the viewport of one render call.
type Context struct {
	Map    tiles.MapID
	Center vector.Vector2
	Zoom   float64
	// Size of the canvas in pixels. Zero means the size of the target.
	Size        vector.Vector2
	Selected    *worlddata.Ref
	CharacterID string
}

type Result struct {
	TileScale     float64            `json:"tileScale"`
	WorldTileSize vector.Vector2     `json:"worldTileSize"`
	RenderScale   float64            `json:"renderScale"`
	MinZoom       int                `json:"minZoom"`
	MaxZoom       int                `json:"maxZoom"`
	VisibleWorld  vector.Rect        `json:"visibleWorld"`
	Entities      []SelectableEntity `json:"entities"`
}

// frame holds the layers of one render call. Late images draw into the
// layers of the frame that requested them.
type frame struct {
	generation uint64
	tiles      *image.RGBA
	overlay    *gg.Context
	pending    sync.WaitGroup
}

// Renderer draws onto one target canvas. All drawing happens under its lock,
// so late image arrivals never interleave with a render pass.
type Renderer struct {
	target     *gg.Context
	tiles      TileSource
	images     ImageSource
	world      WorldSource
	settings   settings.Source
	completion completion.Source
	icons      map[string]IconURLs
	log        logrus.FieldLogger

	mu         sync.Mutex
	generation uint64
	frame      *frame
	fonts      *fontCache
}

func New(target *gg.Context, tileSource TileSource, images ImageSource, world WorldSource, opts ...Option) (*Renderer, error) {
	fonts, err := newFontCache()
	if err != nil {
		return nil, fmt.Errorf("loading label font: %w", err)
	}
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	r := &Renderer{
		target:     target,
		tiles:      tileSource,
		images:     images,
		world:      world,
		settings:   settings.Static(settings.Defaults()),
		completion: noCompletion{},
		icons:      DefaultIcons(),
		log:        silent,
		fonts:      fonts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// pass is the state of one render call.
type pass struct {
	r        *Renderer
	frame    *frame
	ctx      Context
	info     tiles.MapInfo
	proj     Projection
	grid     tileGrid
	settings settings.Settings
	done     completion.Set
	world    *worlddata.Map
	selected worlddata.Feature
	entities []SelectableEntity
}

// Render draws the viewport onto the target. Images that are not loaded yet
// are drawn when they arrive, unless another render has started since.
// Errors are returned for unknown maps and unknown selected features only.
func (r *Renderer) Render(rc Context) (Result, error) {
	info, err := r.tiles.MapInfo(rc.Map)
	if err != nil {
		return Result{}, err
	}
	if rc.Size == (vector.Vector2{}) {
		rc.Size = vector.New(float64(r.target.Width()), float64(r.target.Height()))
	}
	width, height := int(math.Ceil(rc.Size.X)), int(math.Ceil(rc.Size.Y))
	if width <= 0 || height <= 0 {
		return Result{}, fmt.Errorf("invalid canvas size %v", rc.Size)
	}

	p := &pass{
		r:        r,
		ctx:      rc,
		info:     info,
		settings: r.settings.Settings(),
		done:     r.completion.Completed(rc.CharacterID),
	}
	if r.world != nil {
		p.world, err = r.world.Map(rc.Map)
		if err != nil && !errors.Is(err, worlddata.ErrMapNotFound) {
			return Result{}, err
		}
	}
	if rc.Selected != nil {
		if p.world == nil {
			return Result{}, fmt.Errorf("selected %s on map %s: %w", rc.Selected, rc.Map, worlddata.ErrFeatureNotFound)
		}
		p.selected, err = p.world.Feature(*rc.Selected)
		if err != nil {
			return Result{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	p.frame = &frame{
		generation: r.generation,
		tiles:      image.NewRGBA(image.Rect(0, 0, width, height)),
		overlay:    gg.NewContext(width, height),
	}
	r.frame = p.frame
	p.proj = NewProjection(info, rc.Center, rc.Size, rc.Zoom)
	p.grid = newTileGrid(p.proj, info.TileSize, info.Size)

	r.log.WithFields(logrus.Fields{
		"map":        rc.Map.String(),
		"zoom":       rc.Zoom,
		"generation": r.generation,
	}).Debug("render")

	p.drawTiles()
	p.prefetch()
	p.drawOverlay()
	r.composite(p.frame)

	return Result{
		TileScale:     p.grid.tileScale,
		WorldTileSize: p.grid.worldTileSize,
		RenderScale:   p.grid.renderScale,
		MinZoom:       info.MinZoom,
		MaxZoom:       info.MaxZoom,
		VisibleWorld:  p.proj.VisibleWorld(),
		Entities:      p.entities,
	}, nil
}

// whenReady draws url now if it is loaded and otherwise once it arrives,
// provided no newer render has started by then.
func (r *Renderer) whenReady(f *frame, url string, draw func(image.Image)) {
	h := r.images.Request(url)
	if img, ok := h.Value(); ok {
		draw(img)
		return
	}
	f.pending.Add(1)
	h.OnSettled(func(h *imagecache.Handle) {
		defer f.pending.Done()
		img, ok := h.Value()
		if !ok {
			r.log.WithError(h.Err()).WithField("url", url).Debug("image unavailable")
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.generation != f.generation {
			return
		}
		draw(img)
		r.composite(f)
	})
}

// composite copies the tile layer and then the overlay onto the target.
func (r *Renderer) composite(f *frame) {
	r.target.DrawImage(f.tiles, 0, 0)
	r.target.DrawImage(f.overlay.Image(), 0, 0)
}

// Flush waits until every image requested by the latest render has arrived
// or failed, or until ctx ends.
func (r *Renderer) Flush(ctx context.Context) error {
	r.mu.Lock()
	f := r.frame
	r.mu.Unlock()
	if f == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		f.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EncodePNG writes the current target canvas.
func (r *Renderer) EncodePNG(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target.EncodePNG(w)
}

func (p *pass) drawTiles() {
	layer := p.frame.tiles
	xdraw.Draw(layer, layer.Bounds(), image.NewUniform(Background), image.Point{}, xdraw.Src)

	// The first pass bleeds one pixel to hide seams, the second redraws the
	// exact tile so semi transparent edges are not doubled.
	for _, buffer := range []float64{1, 0} {
		buffer := buffer
		p.grid.each(func(x, y int) {
			src, ok := p.r.tiles.TileSource(p.ctx.Map, p.grid.zoom, x, y)
			if !ok {
				return
			}
			dst := p.grid.dest(x, y)
			p.r.whenReady(p.frame, src.URL, func(img image.Image) {
				blit(layer, img, src, dst, buffer)
			})
		})
	}
}

// blit draws the crop of src into dst, grown by buffer pixels.
func blit(layer *image.RGBA, img image.Image, src tiles.Source, dst vector.Rect, buffer float64) {
	if src.Width <= 0 || src.Height <= 0 {
		return
	}
	half := buffer / 2
	dx, dy := dst.Min.X-half, dst.Min.Y-half
	dw, dh := dst.Size().X+buffer, dst.Size().Y+buffer

	b := img.Bounds()
	sx, sy := float64(b.Min.X)+src.X, float64(b.Min.Y)+src.Y
	crop := image.Rect(
		int(math.Floor(sx)), int(math.Floor(sy)),
		int(math.Ceil(sx+src.Width)), int(math.Ceil(sy+src.Height)),
	).Intersect(b)
	clip := image.Rect(
		int(math.Floor(dx)), int(math.Floor(dy)),
		int(math.Ceil(dx+dw)), int(math.Ceil(dy+dh)),
	).Intersect(layer.Bounds())
	if crop.Empty() || clip.Empty() {
		return
	}

	kx, ky := dw/src.Width, dh/src.Height
	m := f64.Aff3{kx, 0, dx - sx*kx, 0, ky, dy - sy*ky}
	xdraw.BiLinear.Transform(layer.SubImage(clip).(*image.RGBA), m, img, crop, xdraw.Over, nil)
}

// prefetch warms the cache with the neighbouring zoom levels of every
// visible tile and with one ring of tiles around the window.
func (p *pass) prefetch() {
	warm := func(src tiles.Source, ok bool) {
		if ok && !p.r.images.IsCached(src.URL) {
			p.r.images.Request(src.URL)
		}
	}
	id, zoom := p.ctx.Map, p.grid.zoom
	p.grid.each(func(x, y int) {
		warm(p.r.tiles.TileSourceFromParent(id, zoom, x, y))
		for _, src := range p.r.tiles.TileSourcesFromChildren(id, zoom, x, y) {
			warm(src, true)
		}
	})
	p.grid.ring(func(x, y int) {
		warm(p.r.tiles.TileSource(id, zoom, x, y))
	})
}
