package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger = logrus.New()

// configureLogging applies the log.* keys to the root logger.
func configureLogging(v *viper.Viper) error {
	level, err := logrus.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	logger.SetLevel(level)

	switch v.GetString("log.format") {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log.format must be text or json, but is %q", v.GetString("log.format"))
	}

	var out io.Writer = os.Stderr
	if path := v.GetString("log.file"); path != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAge:     v.GetInt("log.max_age_days"),
			Compress:   true,
		})
	}
	logger.SetOutput(out)
	return nil
}

func logDebugf(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

func logErrorf(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

func logFatalf(format string, v ...interface{}) {
	logger.Fatalf(format, v...)
}

func logInfof(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func logWarningf(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}
