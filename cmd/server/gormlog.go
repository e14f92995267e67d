package main

import (
	"fmt"
	"log/slog"
)

// slogWriter adapts gorm's logger.Writer interface (a single Printf
// method) onto the structured slog logger the rest of the service uses.
type slogWriter struct {
	logger *slog.Logger
}

func newSlogWriter(logger *slog.Logger) *slogWriter {
	return &slogWriter{logger: logger}
}

func (w *slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(fmt.Sprintf(format, args...))
}
