package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// GormLogger adapts a zerolog.Logger to GORM's logger.Interface.
// Statements are logged at trace level, slow statements and failures at warn.
type GormLogger struct {
	logger        zerolog.Logger
	slowThreshold time.Duration
}

func NewGormLogger(logger zerolog.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{logger: logger, slowThreshold: slowThreshold}
}

// LogMode returns the adapter itself; the level is owned by the zerolog logger.
func (g *GormLogger) LogMode(_ gorm_logger.LogLevel) gorm_logger.Interface {
	return g
}

func (g *GormLogger) Info(_ context.Context, msg string, data ...any) {
	g.logger.Debug().Msg(fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	g.logger.Warn().Msg(fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Error(_ context.Context, msg string, data ...any) {
	g.logger.Error().Msg(fmt.Sprintf(msg, data...))
}

func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		g.logger.Warn().Err(err).Str("sql", sql).Int64("rows_affected", rows).Dur("elapsed", elapsed).Msg("query error")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold:
		g.logger.Warn().Str("sql", sql).Int64("rows_affected", rows).Dur("elapsed", elapsed).Msg("slow query")
	default:
		g.logger.Trace().Str("sql", sql).Int64("rows_affected", rows).Dur("elapsed", elapsed).Msg("sql query")
	}
}
