package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"slices"
	"strconv"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/nielsole/go_worldmap/completion"
	"github.com/nielsole/go_worldmap/imagecache"
	"github.com/nielsole/go_worldmap/renderer"
	"github.com/nielsole/go_worldmap/settings"
	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/utils"
	"github.com/nielsole/go_worldmap/vector"
	"github.com/nielsole/go_worldmap/worlddata"
	"github.com/sirupsen/logrus"
)

const (
	defaultCanvasSize = 512
	maxCanvasSize     = 4096
)

type server struct {
	tiles      *tiles.Service
	images     *imagecache.Cache
	world      *worlddata.World
	settings   settings.Source
	completion completion.Source
	// store is the in-memory completion data, mirrored from redis when
	// redis is set.
	store *completion.Store
	// icons override entries of the default icon catalogue.
	icons map[string]renderer.IconURLs
	// redis is nil unless completion data is kept in redis.
	redis   *completion.RedisStore
	timeout time.Duration
	log     logrus.FieldLogger
}

func (s *server) register(mux *http.ServeMux) {
	mux.HandleFunc("/tile/", s.counted("tile", s.handleTile))
	mux.HandleFunc("/render.png", s.counted("render.png", func(w http.ResponseWriter, r *http.Request) {
		s.handleRender(w, r, false)
	}))
	mux.HandleFunc("/render.json", s.counted("render.json", func(w http.ResponseWriter, r *http.Request) {
		s.handleRender(w, r, true)
	}))
	mux.HandleFunc("/locate", s.counted("locate", s.handleLocate))
	mux.HandleFunc("/maps", s.counted("maps", s.handleMaps))
	mux.HandleFunc("/completion", s.counted("completion", s.handleCompletion,
		http.MethodGet, http.MethodPut, http.MethodDelete))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// counted rejects methods other than the allowed ones, GET by default, and
// counts responses by status code.
func (s *server) counted(name string, h http.HandlerFunc, methods ...string) http.HandlerFunc {
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(methods, r.Method) {
			w.WriteHeader(http.StatusMethodNotAllowed)
			requestsTotal.WithLabelValues(name, strconv.Itoa(http.StatusMethodNotAllowed)).Inc()
			return
		}
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		requestsTotal.WithLabelValues(name, strconv.Itoa(rec.code)).Inc()
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tiles.ErrUnknownMap),
		errors.Is(err, worlddata.ErrMapNotFound),
		errors.Is(err, worlddata.ErrFeatureNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// handleTile serves one tile of the pyramid, cut out of the image that
// backs it. Tiles above the pyramid's maximum zoom are upscaled crops.
func (s *server) handleTile(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ParsePath(r.URL.Path)
	if err != nil {
		badRequest(w, err)
		return
	}
	id := tiles.MapID{Continent: p.Continent, Floor: p.Floor}
	info, err := s.tiles.MapInfo(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	src, ok := s.tiles.TileSource(id, p.Z, p.X, p.Y)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	img, err := s.images.Request(src.URL).Wait(ctx)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("loading %s: %w", src.URL, err))
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, renderer.CropTile(img, src, info.TileSize)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Add("Content-Type", "image/png")
	w.Header().Add("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

type viewport struct {
	rc     renderer.Context
	width  int
	height int
}

// parseViewport reads map, x, y, zoom, w, h, selected and character. The
// center defaults to the middle of the map and zoom to its minimum.
func (s *server) parseViewport(r *http.Request) (viewport, tiles.MapInfo, error) {
	q := r.URL.Query()
	id, err := tiles.ParseMapID(q.Get("map"))
	if err != nil {
		return viewport{}, tiles.MapInfo{}, err
	}
	info, err := s.tiles.MapInfo(id)
	if err != nil {
		return viewport{}, tiles.MapInfo{}, err
	}
	vp := viewport{rc: renderer.Context{Map: id, CharacterID: q.Get("character")}}
	if vp.rc.Center.X, err = utils.FloatParam(q, "x", info.Size.X/2); err != nil {
		return viewport{}, info, err
	}
	if vp.rc.Center.Y, err = utils.FloatParam(q, "y", info.Size.Y/2); err != nil {
		return viewport{}, info, err
	}
	if vp.rc.Zoom, err = utils.FloatParam(q, "zoom", float64(info.MinZoom)); err != nil {
		return viewport{}, info, err
	}
	if vp.width, err = utils.IntParam(q, "w", defaultCanvasSize, maxCanvasSize); err != nil {
		return viewport{}, info, err
	}
	if vp.height, err = utils.IntParam(q, "h", defaultCanvasSize, maxCanvasSize); err != nil {
		return viewport{}, info, err
	}
	if sel := q.Get("selected"); sel != "" {
		ref, err := worlddata.ParseRef(sel)
		if err != nil {
			return viewport{}, info, err
		}
		vp.rc.Selected = &ref
	}
	return vp, info, nil
}

// handleRender draws a snapshot of a viewport. It waits for outstanding
// images up to the fetch timeout and then serves whatever arrived.
func (s *server) handleRender(w http.ResponseWriter, r *http.Request, asJSON bool) {
	start := time.Now()
	vp, _, err := s.parseViewport(r)
	if err != nil {
		if errors.Is(err, tiles.ErrUnknownMap) {
			s.writeError(w, r, err)
		} else {
			badRequest(w, err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	s.refreshCompletion(ctx, vp.rc.CharacterID)

	target := gg.NewContext(vp.width, vp.height)
	rend, err := renderer.New(target, s.tiles, s.images, s.world,
		renderer.WithSettings(s.settings),
		renderer.WithCompletion(s.completion),
		renderer.WithIcons(s.icons),
		renderer.WithLogger(s.log),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := rend.Render(vp.rc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := rend.Flush(ctx); err != nil {
		s.log.WithError(err).WithField("map", vp.rc.Map.String()).Warn("serving render with missing images")
	}
	renderDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	if asJSON {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
		return
	}
	var buf bytes.Buffer
	if err := rend.EncodePNG(&buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Add("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

type namedFeature struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type locateResponse struct {
	Map    string        `json:"map"`
	Found  bool          `json:"found"`
	Region *namedFeature `json:"region"`
	Zone   *namedFeature `json:"zone"`
	Area   *namedFeature `json:"area"`
}

func named(f worlddata.Feature) *namedFeature {
	return &namedFeature{ID: f.Ref().ID, Name: f.DisplayName()}
}

func (s *server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := tiles.ParseMapID(q.Get("map"))
	if err != nil {
		badRequest(w, err)
		return
	}
	var pos vector.Vector2
	if pos.X, err = utils.FloatParam(q, "x", 0); err != nil {
		badRequest(w, err)
		return
	}
	if pos.Y, err = utils.FloatParam(q, "y", 0); err != nil {
		badRequest(w, err)
		return
	}
	loc, err := s.world.Locate(id, pos)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := locateResponse{Map: id.String(), Found: loc.Found()}
	if loc.Region != nil {
		resp.Region = named(loc.Region)
	}
	if loc.Zone != nil {
		resp.Zone = named(loc.Zone)
	}
	if loc.Area != nil {
		resp.Area = named(loc.Area)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type mapSummary struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	MinZoom   int            `json:"minZoom"`
	MaxZoom   int            `json:"maxZoom"`
	Size      vector.Vector2 `json:"size"`
	TileSize  vector.Vector2 `json:"tileSize"`
	WorldData bool           `json:"worldData"`
}

// handleMaps lists the tile pyramids and whether world data was loaded for
// them.
func (s *server) handleMaps(w http.ResponseWriter, r *http.Request) {
	withData := make(map[tiles.MapID]bool)
	for _, id := range s.world.Maps() {
		withData[id] = true
	}
	ids := s.tiles.Maps()
	summaries := make([]mapSummary, 0, len(ids))
	for _, id := range ids {
		info, err := s.tiles.MapInfo(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		summaries = append(summaries, mapSummary{
			ID:        id.String(),
			Name:      info.Name,
			MinZoom:   info.MinZoom,
			MaxZoom:   info.MaxZoom,
			Size:      info.Size,
			TileSize:  info.TileSize,
			WorldData: withData[id],
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// refreshCompletion reloads a character's completion from redis. On failure
// the last loaded data is used.
func (s *server) refreshCompletion(ctx context.Context, characterID string) {
	if s.redis == nil || characterID == "" {
		return
	}
	if _, err := s.redis.Refresh(ctx, characterID); err != nil {
		completionRefreshFailures.Inc()
		s.log.WithError(err).WithField("character", characterID).Warn("using cached completion")
	}
}

type completionResponse struct {
	Character string   `json:"character"`
	Completed []string `json:"completed"`
}

// handleCompletion lists a character's completed features on GET, and marks
// (PUT) or unmarks (DELETE) the feature given as feature=kind:id.
func (s *server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	character := q.Get("character")
	if character == "" {
		badRequest(w, errors.New("character is required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if r.Method == http.MethodGet {
		s.refreshCompletion(ctx, character)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionResponse{
			Character: character,
			Completed: s.completion.Completed(character).Keys(),
		})
		return
	}

	ref, err := worlddata.ParseRef(q.Get("feature"))
	if err != nil {
		badRequest(w, err)
		return
	}
	key := ref.Key()
	switch {
	case s.redis != nil && r.Method == http.MethodPut:
		err = s.redis.Mark(ctx, character, key)
	case s.redis != nil:
		err = s.redis.Unmark(ctx, character, key)
	case r.Method == http.MethodPut:
		s.store.Mark(character, key)
	default:
		s.store.Unmark(character, key)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
