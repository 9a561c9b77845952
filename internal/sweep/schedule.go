// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sweep

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Schedule runs job on the standard cron spec until ctx is cancelled. A
// tick that fires while the previous job is still running is skipped.
// Schedule waits for a running job to return before it returns.
func Schedule(ctx context.Context, spec string, logger zerolog.Logger, job func(context.Context)) error {
	cl := cronLogger{logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl)))

	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	logger.Info().Str("spec", spec).Msg("sweep scheduled")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info().Msg("scheduler stopped")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
