package renderer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/nielsole/go_worldmap/completion"
	"github.com/nielsole/go_worldmap/imagecache"
	"github.com/nielsole/go_worldmap/settings"
	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/vector"
	"github.com/nielsole/go_worldmap/worlddata"
)

var (
	testMap = tiles.MapID{Continent: 1, Floor: 1}
	red     = color.RGBA{R: 0xff, A: 0xff}
	rootURL = "mem:///C1_F1_Z0_X0_Y0.png"
)

// gatedFetcher blocks every fetch until the test releases its URL. A nil
// image rejects the handle.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan image.Image
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan image.Image)}
}

func (f *gatedFetcher) gate(url string) chan image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[url]
	if !ok {
		g = make(chan image.Image, 1)
		f.gates[url] = g
	}
	return g
}

func (f *gatedFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	select {
	case img := <-f.gate(url):
		if img == nil {
			return nil, errors.New("not found")
		}
		return img, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *gatedFetcher) release(url string, img image.Image) {
	f.gate(url) <- img
}

func solid(c color.Color, size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// testPyramid has one known tile at zoom 0 and one at zoom 1.
func testPyramid() *tiles.Service {
	p := tiles.NewPyramid(testMap, "Test", 0, 1, 512, 512, 256, 256)
	p.AddKnown(tiles.Tile{X: 0, Y: 0, Z: 0})
	p.AddKnown(tiles.Tile{X: 0, Y: 0, Z: 1})
	return tiles.NewService(tiles.URLTemplate{Base: "mem://", Ext: "png"}, p)
}

func testWorld(t *testing.T, expansion string) *worlddata.World {
	t.Helper()
	zone := &worlddata.Zone{
		ID:        "19",
		Name:      "Plains",
		Expansion: expansion,
		Rect:      vector.Rect{Min: vector.New(0, 0), Max: vector.New(512, 512)},
		Areas: []*worlddata.Area{{
			ID:   "5",
			Name: "Ashford",
			Rect: vector.Rect{Min: vector.New(0, 0), Max: vector.New(512, 512)},
		}},
		PointsOfInterest: []*worlddata.PointOfInterest{{
			ID: "10", Name: "Waypoint", Type: worlddata.POIWaypoint, Coord: vector.New(256, 256),
		}},
	}
	region := &worlddata.Region{
		ID:    "4",
		Name:  "Ascalon",
		Rect:  vector.Rect{Min: vector.New(0, 0), Max: vector.New(512, 512)},
		Zones: []*worlddata.Zone{zone},
	}
	m, err := worlddata.NewMap(testMap, "Test", vector.New(512, 512), []*worlddata.Region{region})
	if err != nil {
		t.Fatal(err)
	}
	return worlddata.NewWorld(m)
}

type fixture struct {
	fetcher  *gatedFetcher
	cache    *imagecache.Cache
	target   *gg.Context
	renderer *Renderer
}

func newFixture(t *testing.T, world WorldSource, opts ...Option) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f := &fixture{fetcher: newGatedFetcher(), target: gg.NewContext(64, 64)}
	f.cache = imagecache.New(f.fetcher, imagecache.WithContext(ctx))
	r, err := New(f.target, testPyramid(), f.cache, world, opts...)
	if err != nil {
		t.Fatal(err)
	}
	f.renderer = r
	return f
}

func (f *fixture) pixel(x, y int) color.RGBA {
	return f.target.Image().(*image.RGBA).RGBAAt(x, y)
}

func flush(t *testing.T, r *Renderer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func rootView() Context {
	return Context{Map: testMap, Center: vector.New(256, 256), Zoom: 0, Size: vector.New(64, 64)}
}

func TestRenderResolvedTile(t *testing.T) {
	f := newFixture(t, nil)
	h := f.cache.Request(rootURL)
	f.fetcher.release(rootURL, solid(red, 256))
	<-h.Done()

	result, err := f.renderer.Render(rootView())
	if err != nil {
		t.Fatal(err)
	}
	if got := f.pixel(32, 32); got != red {
		t.Errorf("resolved tile should be drawn immediately, but pixel is %v", got)
	}
	if result.TileScale != 2 || result.RenderScale != 1 {
		t.Errorf("unexpected scales %v / %v", result.TileScale, result.RenderScale)
	}
	if result.WorldTileSize != vector.New(512, 512) {
		t.Errorf("WorldTileSize should be 512x512, but is %v", result.WorldTileSize)
	}
	if result.MinZoom != 0 || result.MaxZoom != 1 {
		t.Errorf("unexpected zoom range %v-%v", result.MinZoom, result.MaxZoom)
	}
	visible := vector.Rect{Min: vector.New(192, 192), Max: vector.New(320, 320)}
	if result.VisibleWorld != visible {
		t.Errorf("VisibleWorld should be %v, but is %v", visible, result.VisibleWorld)
	}
}

func TestRenderLateTile(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.renderer.Render(rootView()); err != nil {
		t.Fatal(err)
	}
	if got := f.pixel(32, 32); got != Background {
		t.Errorf("pending tile should leave the background, but pixel is %v", got)
	}
	f.fetcher.release(rootURL, solid(red, 256))
	flush(t, f.renderer)
	if got := f.pixel(32, 32); got != red {
		t.Errorf("late tile should be drawn on arrival, but pixel is %v", got)
	}
}

func TestStaleTileIsDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.renderer.Render(rootView()); err != nil {
		t.Fatal(err)
	}
	// A newer render has started.
	f.renderer.mu.Lock()
	f.renderer.generation++
	f.renderer.mu.Unlock()

	f.fetcher.release(rootURL, solid(red, 256))
	flush(t, f.renderer)
	if got := f.pixel(32, 32); got != Background {
		t.Errorf("stale callback should not paint, but pixel is %v", got)
	}
}

func TestRejectedTileStaysUnpainted(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.renderer.Render(rootView()); err != nil {
		t.Fatal(err)
	}
	f.fetcher.release(rootURL, nil)
	flush(t, f.renderer)
	if got := f.pixel(32, 32); got != Background {
		t.Errorf("failed tile should stay unpainted, but pixel is %v", got)
	}

	// The next render fetches it again.
	if _, err := f.renderer.Render(rootView()); err != nil {
		t.Fatal(err)
	}
	f.fetcher.release(rootURL, solid(red, 256))
	flush(t, f.renderer)
	if got := f.pixel(32, 32); got != red {
		t.Errorf("retried tile should be drawn, but pixel is %v", got)
	}
}

func TestRenderPrefetchesNeighbours(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.renderer.Render(rootView()); err != nil {
		t.Fatal(err)
	}
	child := "mem:///C1_F1_Z1_X0_Y0.png"
	if !f.cache.IsCached(child) {
		t.Errorf("child tile %s should have been prefetched", child)
	}
}

func TestRenderFarBelowMinZoom(t *testing.T) {
	f := newFixture(t, testWorld(t, ""))
	done := make(chan error, 1)
	go func() {
		_, err := f.renderer.Render(Context{Map: testMap, Center: vector.New(256, 256), Zoom: -30, Size: vector.New(512, 512)})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("render at zoom -30 should finish quickly")
	}
	if !f.cache.IsCached(rootURL) {
		t.Errorf("the root tile should still be requested")
	}
}

func TestRenderUnknownMap(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.renderer.Render(Context{Map: tiles.MapID{Continent: 9, Floor: 9}, Size: vector.New(64, 64)})
	if !errors.Is(err, tiles.ErrUnknownMap) {
		t.Errorf("unknown map should fail with ErrUnknownMap, got %v", err)
	}
}

func iconView() Context {
	return Context{Map: testMap, Center: vector.New(256, 256), Zoom: 6, Size: vector.New(64, 64)}
}

func kinds(entities []SelectableEntity) map[worlddata.Kind]int {
	result := make(map[worlddata.Kind]int)
	for _, e := range entities {
		result[e.Feature.Ref().Kind]++
	}
	return result
}

func TestOverlayEntities(t *testing.T) {
	f := newFixture(t, testWorld(t, "base"))
	result, err := f.renderer.Render(iconView())
	if err != nil {
		t.Fatal(err)
	}
	// At zoom 6 only icons are visible: text ranges end at 3, 5 and 6.
	got := kinds(result.Entities)
	if got[worlddata.KindPointOfInterest] != 1 || len(got) != 1 {
		t.Fatalf("only the waypoint should be selectable, got %v", got)
	}
	icon := result.Entities[0]
	if icon.Box() != (vector.Rect{Min: vector.New(20, 20), Max: vector.New(44, 44)}) {
		t.Errorf("icon box should be centered on the canvas, but is %v", icon.Box())
	}
	if _, ok := HitTest(result.Entities, vector.New(32, 32)); !ok {
		t.Errorf("hit test at the icon should match")
	}
	if _, ok := HitTest(result.Entities, vector.New(2, 2)); ok {
		t.Errorf("hit test away from the icon should not match")
	}
}

func TestZonesOfOffCanvasRegionAreDrawn(t *testing.T) {
	zone := &worlddata.Zone{
		ID:   "19",
		Name: "Plains",
		Rect: vector.Rect{Min: vector.New(0, 0), Max: vector.New(512, 512)},
		PointsOfInterest: []*worlddata.PointOfInterest{{
			ID: "10", Name: "Waypoint", Type: worlddata.POIWaypoint, Coord: vector.New(256, 256),
		}},
	}
	// Without a rect or bounds the region collapses onto the world origin.
	region := &worlddata.Region{ID: "4", Name: "Ascalon", Zones: []*worlddata.Zone{zone}}
	m, err := worlddata.NewMap(testMap, "Test", vector.New(512, 512), []*worlddata.Region{region})
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, worlddata.NewWorld(m))
	result, err := f.renderer.Render(iconView())
	if err != nil {
		t.Fatal(err)
	}
	if got := kinds(result.Entities); got[worlddata.KindPointOfInterest] != 1 {
		t.Errorf("the waypoint of an on-canvas zone should be drawn, got %v", got)
	}
}

func TestSelectedZoneLabelIsForced(t *testing.T) {
	f := newFixture(t, testWorld(t, "base"))
	view := iconView()
	view.Selected = &worlddata.Ref{Kind: worlddata.KindZone, ID: "19"}
	result, err := f.renderer.Render(view)
	if err != nil {
		t.Fatal(err)
	}
	if kinds(result.Entities)[worlddata.KindZone] != 1 {
		t.Errorf("selected zone label should be drawn outside its zoom range, got %v", kinds(result.Entities))
	}
	// Icons are drawn after labels and win the hit test.
	hit, ok := HitTest(result.Entities, vector.New(32, 32))
	if !ok || hit.Feature.Ref().Kind != worlddata.KindPointOfInterest {
		t.Errorf("icon should be on top, got %v", hit.Feature)
	}
}

func TestCompletionToggles(t *testing.T) {
	s := settings.Defaults()
	s.PointsOfInterest.ShowComplete = false
	store := completion.NewStore()
	store.Mark("alice", completion.Key("poi", "10"))

	f := newFixture(t, testWorld(t, "base"), WithSettings(settings.Static(s)), WithCompletion(store))
	view := iconView()
	view.CharacterID = "alice"
	result, err := f.renderer.Render(view)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 0 {
		t.Errorf("completed waypoint should be hidden, got %v", kinds(result.Entities))
	}

	view.CharacterID = "bob"
	result, err = f.renderer.Render(view)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 1 {
		t.Errorf("incomplete waypoint should be shown, got %v", kinds(result.Entities))
	}

	view.CharacterID = "alice"
	view.Selected = &worlddata.Ref{Kind: worlddata.KindPointOfInterest, ID: "10"}
	result, err = f.renderer.Render(view)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 1 {
		t.Errorf("selected waypoint should bypass the completion toggle, got %v", kinds(result.Entities))
	}
}

func TestDisabledExpansion(t *testing.T) {
	s := settings.Defaults()
	s.Expansions["hot"] = false
	f := newFixture(t, testWorld(t, "hot"), WithSettings(settings.Static(s)))
	result, err := f.renderer.Render(iconView())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 0 {
		t.Errorf("zones of disabled expansions should not be drawn, got %v", kinds(result.Entities))
	}

	view := iconView()
	view.Selected = &worlddata.Ref{Kind: worlddata.KindPointOfInterest, ID: "10"}
	result, err = f.renderer.Render(view)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entities) != 1 {
		t.Errorf("selected point should be drawn in a disabled expansion, got %v", kinds(result.Entities))
	}
}

func TestSelectedFeatureNotFound(t *testing.T) {
	f := newFixture(t, testWorld(t, "base"))
	view := iconView()
	view.Selected = &worlddata.Ref{Kind: worlddata.KindTask, ID: "404"}
	if _, err := f.renderer.Render(view); !errors.Is(err, worlddata.ErrFeatureNotFound) {
		t.Errorf("unknown selection should fail with ErrFeatureNotFound, got %v", err)
	}
}

func TestIconNames(t *testing.T) {
	cases := []struct {
		feature worlddata.Feature
		icon    string
		ok      bool
	}{
		{&worlddata.PointOfInterest{Type: worlddata.POIVista}, IconVista, true},
		{&worlddata.PointOfInterest{Type: worlddata.POILandmark}, IconPointOfInterest, true},
		{&worlddata.PointOfInterest{Type: worlddata.POIUnlock}, "", false},
		{&worlddata.Task{}, IconHeart, true},
		{&worlddata.Challenge{ID: "0-12"}, IconHeroChallenge, true},
		{&worlddata.Challenge{ID: "1-3"}, IconHeroChallengeExpansion, true},
		{&worlddata.Challenge{}, IconHeroChallengeExpansion, true},
		{&worlddata.Adventure{}, IconAdventure, true},
		{&worlddata.MasteryPoint{Region: worlddata.MasteryMaguuma}, IconMasteryHot, true},
		{&worlddata.MasteryPoint{Region: worlddata.MasteryTundra}, IconMasteryIs, true},
		{&worlddata.MasteryPoint{Region: worlddata.MasteryUnknown}, IconMasteryEod, true},
		{&worlddata.Zone{}, "", false},
	}
	for _, c := range cases {
		icon, ok := iconName(c.feature)
		if icon != c.icon || ok != c.ok {
			t.Errorf("iconName(%T) should be %q/%v, but is %q/%v", c.feature, c.icon, c.ok, icon, ok)
		}
	}
}

func TestLabelFontSize(t *testing.T) {
	if got := labelFontSize(0.1, zoneFontScale); got != 1 {
		t.Errorf("font size should not drop below 1, but is %v", got)
	}
	if got := labelFontSize(2, regionFontScale); got != 16 {
		t.Errorf("region font at zoom 2 should be 16, but is %v", got)
	}
}
