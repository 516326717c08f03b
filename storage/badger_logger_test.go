package storage

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBadgerLogger(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger := NewBadgerLogger(log)

	// When badger logs at every level
	logger.Infof("Replaying file id: %d\n", 3)
	logger.Warningf("Truncate needed for %s\n", "000001.vlog")

	// Then only the warning passes, without its newline
	out := buf.String()
	req.NotContains(out, "Replaying")
	req.Contains(out, `msg="Truncate needed for 000001.vlog"`)
	req.Contains(out, "component=badger")
}
