package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/config"
)

type envKey struct{}

// localEnv keeps everything program needs in a single place.
type localEnv struct {
	cfg     *config.Config
	cfgFile string
	log     *zap.Logger

	start         time.Time
	restoreStdLog func()
}

func envFromContext(ctx context.Context) *localEnv {
	if env, ok := ctx.Value(envKey{}).(*localEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &localEnv{start: time.Now(), log: zap.NewNop()})
}

func (e *localEnv) uptime() time.Duration {
	return time.Since(e.start)
}

func (e *localEnv) redirectStdLog() {
	e.restoreStdLog = zap.RedirectStdLog(e.log)
}

func (e *localEnv) restoreStdLogs() {
	_ = e.log.Sync()
	if e.restoreStdLog != nil {
		e.restoreStdLog()
		e.restoreStdLog = nil
	}
}
