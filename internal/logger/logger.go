package logger

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/abcplay-go/internal/config"
)

// Fields represents structured log fields
type Fields = logrus.Fields

// Setup applies the configured level and format to the standard logger.
func Setup(cfg *config.Config, out io.Writer) error {
	return configure(logrus.StandardLogger(), cfg, out)
}

// New returns a logger configured like Setup, leaving the standard logger alone.
func New(cfg *config.Config, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	if err := configure(l, cfg, out); err != nil {
		return nil, err
	}
	return l, nil
}

func configure(l *logrus.Logger, cfg *config.Config, out io.Writer) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", cfg.LogFormat)
	}
	if out != nil {
		l.SetOutput(out)
	}
	return nil
}

// WithFields starts an entry on the standard logger.
func WithFields(fields Fields) *logrus.Entry {
	return logrus.WithFields(fields)
}

// Error logs err with fields at error level.
func Error(msg string, err error, fields Fields) {
	logrus.WithFields(fields).WithError(err).Error(msg)
}
