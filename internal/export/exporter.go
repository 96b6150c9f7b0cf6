package export

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source produces the flattened records to export, typically by fetching a
// collection and calling Flatten.
type Source func(ctx context.Context) ([]map[string]any, error)

// Exporter encodes one entity type and fans the payload out to its
// destinations.
type Exporter struct {
	Entity       string
	Format       Format
	Source       Source
	Destinations []Destination
	Logger       *zap.Logger
}

// Result summarizes one export run.
type Result struct {
	Header Header
	Bytes  int
	Failed int
}

// Run exports once. Destination failures are logged and counted; the
// returned error is the first one, after every destination has been tried.
func (x *Exporter) Run(ctx context.Context) (Result, error) {
	logger := x.logger()

	records, err := x.Source(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export %s: %w", x.Entity, err)
	}

	var buf bytes.Buffer
	h, err := Write(&buf, x.Format, x.Entity, records)
	if err != nil {
		return Result{}, fmt.Errorf("export %s: %w", x.Entity, err)
	}
	res := Result{Header: h, Bytes: buf.Len()}

	var first error
	for i, dest := range x.Destinations {
		if err := dest.Write(ctx, buf.Bytes()); err != nil {
			res.Failed++
			logger.Error("export destination write failed",
				zap.Int("destination", i),
				zap.Stringer("target", describe(dest)),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}

	logger.Info("export completed",
		zap.String("export_id", h.ID),
		zap.String("entity", x.Entity),
		zap.Int("records", h.Count),
		zap.Int("destinations", len(x.Destinations)),
		zap.Int("bytes", res.Bytes))
	return res, first
}

func (x *Exporter) logger() *zap.Logger {
	if x.Logger == nil {
		return zap.NewNop()
	}
	return x.Logger
}

type stringer string

func (s stringer) String() string { return string(s) }

func describe(d Destination) fmt.Stringer {
	if s, ok := d.(fmt.Stringer); ok {
		return s
	}
	return stringer(fmt.Sprintf("%T", d))
}

// Scheduler runs an Exporter periodically.
type Scheduler struct {
	exporter *Exporter
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(x *Exporter, interval time.Duration) *Scheduler {
	return &Scheduler{exporter: x, interval: interval}
}

// Start runs an export immediately, then on each tick until Stop or until
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.exporter.Run(ctx); err != nil && ctx.Err() == nil {
		s.exporter.logger().Error("scheduled export failed", zap.Error(err))
	}
}
