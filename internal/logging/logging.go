// Package logging builds the process logger and adapts it for gorm.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	gormlogger "gorm.io/gorm/logger"
)

// New returns a timestamped logger writing to w at the named level.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	}), nil
}

// SlowQueryThreshold is the duration above which gorm reports a query.
const SlowQueryThreshold = 200 * time.Millisecond

type gormWriter struct {
	logger *log.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.logger.Warnf(format, args...)
}

// Gorm forwards gorm's slow query and error reports to logger.
func Gorm(logger *log.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{logger: logger.WithPrefix("gorm")}, gormlogger.Config{
		SlowThreshold:             SlowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
