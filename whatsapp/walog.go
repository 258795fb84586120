package whatsapp

import (
	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// zeroLogger bridges whatsmeow's internal logging onto zerolog.
type zeroLogger struct {
	log zerolog.Logger
}

// NewWALogger returns a waLog.Logger writing to the given zerolog logger
// under the given module name.
func NewWALogger(log zerolog.Logger, module string) waLog.Logger {
	return &zeroLogger{log: log.With().Str("module", module).Logger()}
}

func (l *zeroLogger) Warnf(msg string, args ...interface{}) {
	l.log.Warn().Msgf(msg, args...)
}

func (l *zeroLogger) Errorf(msg string, args ...interface{}) {
	l.log.Error().Msgf(msg, args...)
}

func (l *zeroLogger) Infof(msg string, args ...interface{}) {
	l.log.Info().Msgf(msg, args...)
}

func (l *zeroLogger) Debugf(msg string, args ...interface{}) {
	l.log.Debug().Msgf(msg, args...)
}

func (l *zeroLogger) Sub(module string) waLog.Logger {
	return &zeroLogger{log: l.log.With().Str("sub", module).Logger()}
}
