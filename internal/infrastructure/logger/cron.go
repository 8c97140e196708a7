package logger

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronLogger adapts zap to cron.Logger so scheduler internals log through the
// application logger.
type CronLogger struct {
	sugar *zap.SugaredLogger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger creates a cron logger. Cron's chatty schedule/wake messages go to debug.
func NewCronLogger(l *zap.Logger) *CronLogger {
	return &CronLogger{sugar: l.Named("cron").Sugar()}
}

// Info implements cron.Logger
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Error implements cron.Logger
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
