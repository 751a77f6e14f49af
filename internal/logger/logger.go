// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w. Debug enables debug-level output,
// which includes the watcher's transient oracle failures.
func New(debug bool, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
