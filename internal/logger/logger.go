// Package logger builds the logrus logger used by the goSession binaries.
package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w in the given format ("json" or "text")
// at the given level. Every entry carries system=gosession.
func New(w io.Writer, format, level string) (*logrus.Entry, error) {
	log := logrus.New()
	log.SetOutput(w)

	switch format {
	case FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case FormatText:
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	return log.WithField("system", "gosession"), nil
}
