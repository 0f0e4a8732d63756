// Package logging configures the process-wide structured logger. It
// follows the teacher's shared/pkg/logger package closely: a single
// package-level logrus.Logger, JSON output outside development, and a
// handful of WithX helpers that attach the context fields this system
// actually cares about (run id, config fingerprint, gameweek) instead of
// the teacher's DFS-specific ones (sport, tournament id).
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root *logrus.Logger

// Init configures the global logger. level is parsed with
// logrus.ParseLevel; an empty level defaults to "debug" in development and
// "info" otherwise, same as the teacher.
func Init(level string, development bool) *logrus.Logger {
	log := logrus.New()

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
		if level == "" {
			if development {
				level = "debug"
			} else {
				level = "info"
			}
		}
	}

	if parsed, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", level).Warn("invalid LOG_LEVEL, defaulting to info")
	}

	if !development || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)
	root = log
	return log
}

// Root returns the global logger, initialising a sane default if Init was
// never called (mirrors the teacher's GetLogger).
func Root() *logrus.Logger {
	if root == nil {
		return Init("info", false)
	}
	return root
}

// WithRun returns a logger entry scoped to a solve run.
func WithRun(runID string) *logrus.Entry {
	return Root().WithField("run_id", runID)
}

// WithConfig returns a logger entry carrying a config fingerprint.
func WithConfig(fingerprint string) *logrus.Entry {
	return Root().WithField("config_fingerprint", fingerprint)
}

// WithGameweek returns a logger entry carrying run, config, and gameweek
// context together — the combination every model/solver log line wants.
func WithGameweek(runID, fingerprint string, gw int) *logrus.Entry {
	return Root().WithFields(logrus.Fields{
		"run_id":              runID,
		"config_fingerprint":  fingerprint,
		"gameweek":            gw,
	})
}
