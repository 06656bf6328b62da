package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type logOptions struct {
	verbose bool
	quiet   bool
	format  string
}

func newLogger(w io.Writer, opts logOptions) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	switch {
	case opts.verbose:
		logger.SetLevel(logrus.DebugLevel)
	case opts.quiet:
		logger.SetLevel(logrus.ErrorLevel)
	}

	switch opts.format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", opts.format)
	}
	return logger, nil
}
