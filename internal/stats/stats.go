package stats

import (
	"context"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

// Source contributes fields to every report.
type Source func() logrus.Fields

// Reporter logs runtime and stream statistics at a fixed interval.
type Reporter struct {
	interval time.Duration
	sources  []Source
	logger   *logrus.Entry
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger replaces the standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Reporter) {
		r.logger = l.WithField("component", "stats")
	}
}

// WithSource adds fields computed at every report.
func WithSource(s Source) Option {
	return func(r *Reporter) {
		r.sources = append(r.sources, s)
	}
}

func NewReporter(interval time.Duration, opts ...Option) *Reporter {
	r := &Reporter{
		interval: interval,
		sources:  []Source{Runtime},
		logger:   logrus.WithField("component", "stats"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start reports once, then every interval until ctx is done.
func (r *Reporter) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.report() // Log initial stats

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	fields := logrus.Fields{}
	for _, src := range r.sources {
		for k, v := range src() {
			fields[k] = v
		}
	}
	r.logger.WithFields(fields).Info("Application stats")
}

// Runtime reports memory, garbage collector and concurrency figures.
func Runtime() logrus.Fields {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return logrus.Fields{
		"alloc_mb":      bToMb(m.Alloc),
		"sys_mb":        bToMb(m.Sys),
		"heap_inuse_mb": bToMb(m.HeapInuse),
		"num_gc":        m.NumGC,
		"gc_pause_ms":   m.PauseTotalNs / 1e6,
		"goroutines":    runtime.NumGoroutine(),
		"threads":       pprof.Lookup("threadcreate").Count(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
