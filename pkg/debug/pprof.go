// Package debug provides instrumentation and profiling tools for foldjson.
package debug

import (
	"context"
	"net"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPprofAddr is used when no address is given.
const DefaultPprofAddr = "localhost:6060"

// StartPprofServer serves net/http/pprof on addr and returns the bound
// address and a stop function that shuts the server down.
func StartPprofServer(addr string, logger *logrus.Logger) (string, func(), error) {
	if addr == "" {
		addr = DefaultPprofAddr
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrap(err, "pprof server failed")
	}

	server := &http.Server{
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bound := ln.Addr().String()
	go func() {
		logger.WithField("addr", bound).Info("pprof server starting")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("pprof server stopped")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Debug("pprof server shutdown")
		}
	}

	return bound, stop, nil
}
