package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"aqdash/internal/modules/airquality/types"
)

type Importer interface {
	Import(ctx context.Context, source string) (types.ImportSummary, error)
}

// Refresher re-imports a dataset source on a cron schedule.
type Refresher struct {
	cron     *cron.Cron
	importer Importer
	source   string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRefresher schedules imports of source using a standard five-field cron
// spec. A run that is still in progress when the next one is due is skipped.
func NewRefresher(importer Importer, source, spec string, timeout time.Duration, logger *slog.Logger) (*Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	cl := cronLogger{logger: logger}
	r := &Refresher{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		importer: importer,
		source:   source,
		timeout:  timeout,
		logger:   logger,
	}
	if _, err := r.cron.AddFunc(spec, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("scheduled dataset refresh failed", "source", r.source, "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	return r, nil
}

// RunOnce imports the source immediately.
func (r *Refresher) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.importer.Import(ctx, r.source)
	return err
}

func (r *Refresher) Start() {
	r.cron.Start()
	for _, e := range r.cron.Entries() {
		r.logger.Info("dataset refresh scheduled", "source", r.source, "next", e.Next)
	}
}

// Stop halts the schedule and waits for a running import to finish or ctx to end.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		r.logger.Warn("dataset refresh still running at shutdown", "source", r.source)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
