package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/nielsole/go_worldmap/settings"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("worldmap", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file (default ./config.yaml if present)")
	fs.String("listen", ":8080", "Listening address")
	fs.String("static", "./static/", "Path to static file directory")
	fs.String("tiles.manifest", "./data/tiles.json", "Path to the tile pyramid manifest")
	fs.String("tiles.cdn", "", "Base URL of the source tile images")
	fs.String("tiles.ext", "", "File extension of the source tile images")
	fs.String("world.data", "", "Path to world data in JSON form")
	fs.String("world.osm", "", "Path to world data in OSM XML or PBF form")
	fs.String("world.osm_map", "1-1", "Map id (continent-floor) of the OSM world data")
	fs.String("world.osm_name", "", "Map name of the OSM world data")
	fs.Int("cache.high", 5000, "Image cache size that triggers eviction")
	fs.Int("cache.low", 4000, "Image cache size eviction trims back to")
	fs.Int("fetch.concurrency", 8, "Maximum parallel image downloads")
	fs.Duration("fetch.timeout", 10*time.Second, "Time to wait for images when serving a request")
	fs.String("redis.addr", "", "Redis address for completion data, disabled when empty")
	fs.String("redis.password", "", "Redis password")
	fs.Int("redis.db", 0, "Redis database")
	fs.String("log.level", "info", "Log level")
	fs.String("log.format", "text", "Log format, text or json")
	fs.String("log.file", "", "Also write logs to this rotated file")
	fs.Int("log.max_size_mb", 100, "Size of a log file before it is rotated")
	fs.Int("log.max_backups", 5, "Rotated log files to keep")
	fs.Int("log.max_age_days", 28, "Days to keep rotated log files")
	return fs
}

// loadConfig layers flags over WORLDMAP_ environment variables over the
// config file. A .env file in the working directory is read into the
// environment first.
func loadConfig(args []string) (*viper.Viper, error) {
	_ = godotenv.Load(".env")

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("WORLDMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if v.GetInt("cache.low") > v.GetInt("cache.high") {
		return nil, fmt.Errorf("cache.low (%d) must not exceed cache.high (%d)", v.GetInt("cache.low"), v.GetInt("cache.high"))
	}
	if v.GetInt("fetch.concurrency") <= 0 {
		return nil, errors.New("fetch.concurrency must be positive")
	}
	return v, nil
}

// watchSettings reloads src whenever the config file changes. Viper calls
// the hook on its watcher goroutine right after rereading the file, so that
// goroutine is the only one touching v from here on.
func watchSettings(v *viper.Viper, src *settings.ViperSource) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := src.Reload(); err != nil {
			logWarningf("config %s changed, keeping previous settings: %v", e.Name, err)
			return
		}
		logInfof("config %s changed, settings reloaded", e.Name)
	})
	v.WatchConfig()
}
