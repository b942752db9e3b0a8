package logger

import (
	"github.com/sirupsen/logrus"
)

// New returns a configured application logger. Unknown levels fall back
// to info rather than failing startup.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return l
}
