package session

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs fn repeatedly until the returned stop function is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func(), err error)
}

// CronScheduler schedules with robfig/cron. Intervals are rounded to whole
// seconds with a minimum of one second.
type CronScheduler struct {
	Log *zap.Logger
}

func (s CronScheduler) Every(interval time.Duration, fn func()) (func(), error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	logger := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	c.Start()
	return func() { c.Stop() }, nil
}
