package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// badgerLogger redirects badger's printf style logging to slog, so nothing
// reaches stderr while the terminal UI owns it. Badger's info chatter is
// demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func NewBadgerLogger(log *slog.Logger) badger.Logger {
	return &badgerLogger{logger: log.With("component", "badger")}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(clean(format, args))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(clean(format, args))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Debug(clean(format, args))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(clean(format, args))
}

// clean drops the trailing newline badger adds to most lines.
func clean(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
