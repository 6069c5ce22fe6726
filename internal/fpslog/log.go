// Package fpslog provides the process-wide structured logger.
//
// The teacher logs ad hoc with log/slog (see pkg/ntag424/auth.go). The
// rest of the retrieval pack settles on zerolog for anything server-shaped
// (go-rtpengine, xg2g), so this package wraps zerolog.Logger instead of
// reaching for slog again.
package fpslog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Configure installs the process-wide logger at the given level, writing
// to w. Call once during startup before any request processing begins.
func Configure(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Logger returns the current process-wide logger.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &log
}

// WithRequest returns a logger with the batch correlation id attached,
// so every log line written through it can be grepped together by batch.
func WithRequest(requestID string) zerolog.Logger {
	return Logger().With().Str("request_id", requestID).Logger()
}
