package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter writes a registry to a .prom file for the node_exporter textfile
// collector.
type Exporter struct {
	path     string
	gatherer prometheus.Gatherer
	interval time.Duration
	log      *slog.Logger
}

// NewExporter creates an Exporter that rewrites path every interval.
func NewExporter(path string, g prometheus.Gatherer, interval time.Duration, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{path: path, gatherer: g, interval: interval, log: log}
}

// Flush writes the current values. WriteToTextfile renames a temporary file
// into place, so the collector never reads a partial file.
func (e *Exporter) Flush() error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(e.path, e.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := e.Flush(); err != nil {
				e.log.Warn("final metrics flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := e.Flush(); err != nil {
				e.log.Warn("metrics flush failed", "error", err)
			}
		}
	}
}
