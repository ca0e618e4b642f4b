package logging

import (
	"io"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// New creates a logger with the project's standard formatter. An
// unparseable level falls back to info.
func New(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if out != nil {
		log.SetOutput(out)
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(parsed)
	}

	return log
}
