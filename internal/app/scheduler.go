package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bft-labs/streamkeeper/pkg/log"
)

// Scheduler fires a job at a fixed interval. A firing that arrives while the
// previous run is still going is skipped, so runs never overlap.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler running job every interval. Intervals
// below one second are rounded up to one second.
func NewScheduler(interval time.Duration, job func(), logger log.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(cron.Every(interval), cron.FuncJob(job))
	return &Scheduler{cron: c}
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts firing. The returned context is done once a run in flight has
// finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.logger.Warn("tick skipped, previous tick still running")
		return
	}
	l.logger.Debug("scheduler "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("scheduler "+msg, append(kvFields(keysAndValues), log.Err(err))...)
}

func kvFields(kv []interface{}) []log.Field {
	fields := make([]log.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, log.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
