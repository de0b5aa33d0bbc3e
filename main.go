package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nielsole/go_worldmap/completion"
	"github.com/nielsole/go_worldmap/imagecache"
	"github.com/nielsole/go_worldmap/renderer"
	"github.com/nielsole/go_worldmap/settings"
	"github.com/nielsole/go_worldmap/tiles"
	"github.com/nielsole/go_worldmap/worlddata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// loadWorld reads the JSON and OSM world data named in the config. Maps
// without world data render tiles only.
func loadWorld(ctx context.Context, v *viper.Viper, svc *tiles.Service) (*worlddata.World, error) {
	world := worlddata.NewWorld()
	if path := v.GetString("world.data"); path != "" {
		maps, err := worlddata.LoadJSONFile(path)
		if err != nil {
			return nil, err
		}
		for _, m := range maps {
			world.Add(m)
		}
		logInfof("loaded %d maps of world data from %s", len(maps), path)
	}
	if path := v.GetString("world.osm"); path != "" {
		id, err := tiles.ParseMapID(v.GetString("world.osm_map"))
		if err != nil {
			return nil, err
		}
		info, err := svc.MapInfo(id)
		if err != nil {
			return nil, err
		}
		m, err := worlddata.LoadOSMFile(ctx, path, id, orDefault(v.GetString("world.osm_name"), info.Name), info.Size)
		if err != nil {
			return nil, err
		}
		world.Add(m)
		logInfof("loaded world data of map %s from %s", id, path)
	}
	return world, nil
}

func newServer(ctx context.Context, v *viper.Viper, reg prometheus.Registerer) (*server, error) {
	pyramids, err := tiles.LoadManifestFile(v.GetString("tiles.manifest"))
	if err != nil {
		return nil, err
	}
	svc := tiles.NewService(tiles.URLTemplate{
		Base: orDefault(v.GetString("tiles.cdn"), tiles.DefaultCDN),
		Ext:  orDefault(v.GetString("tiles.ext"), tiles.DefaultExt),
	}, pyramids...)
	svc.SetLogger(logger.WithField("component", "tiles"))

	world, err := loadWorld(ctx, v, svc)
	if err != nil {
		return nil, err
	}

	cache := imagecache.New(
		imagecache.NewHTTPFetcher(nil, v.GetInt("fetch.concurrency")),
		imagecache.WithWaterMarks(v.GetInt("cache.high"), v.GetInt("cache.low")),
		imagecache.WithLogger(logger.WithField("component", "imagecache")),
		imagecache.WithMetrics(imagecache.NewMetrics(reg)),
		imagecache.WithContext(ctx),
	)

	var icons map[string]renderer.IconURLs
	if err := v.UnmarshalKey("icons", &icons); err != nil {
		return nil, fmt.Errorf("decoding icons: %w", err)
	}

	settingsSource := settings.NewViperSource(v, "settings")
	store := completion.NewStore()
	s := &server{
		tiles:      svc,
		images:     cache,
		world:      world,
		settings:   settingsSource,
		completion: store,
		store:      store,
		icons:      icons,
		timeout:    v.GetDuration("fetch.timeout"),
		log:        logger.WithField("component", "server"),
	}
	if addr := v.GetString("redis.addr"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logWarningf("redis ping %s: %v", addr, err)
		}
		cancel()
		s.redis = completion.NewRedisStore(client, nil)
		s.store = s.redis.Local()
		s.completion = s.redis
	} else {
		logDebugf("redis disabled, completion is kept in memory")
	}
	// No reads of v after this point.
	watchSettings(v, settingsSource)
	return s, nil
}

func main() {
	v, err := loadConfig(os.Args[1:])
	if err != nil {
		logFatalf("%v", err)
	}
	if err := configureLogging(v); err != nil {
		logFatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	staticDir := v.GetString("static")
	listen := v.GetString("listen")

	registerMetrics(prometheus.DefaultRegisterer)
	s, err := newServer(ctx, v, prometheus.DefaultRegisterer)
	if err != nil {
		logFatalf("%v", err)
	}

	mux := http.NewServeMux()
	s.register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.FileServer(http.Dir(staticDir)).ServeHTTP(w, r)
	})

	srv := &http.Server{Addr: listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logErrorf("shutdown: %v", err)
		}
	}()
	logInfof("Listening on %s", listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logFatalf("%v", err)
	}
}
