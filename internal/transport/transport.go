package transport

import (
	"context"
	"errors"
)

// ErrNotFound marks a remote path that does not exist yet. The tailer treats
// it as non-fatal: the game server may not have created the file.
var ErrNotFound = errors.New("remote file not found")

// Transport fetches remote log file sizes and byte ranges.
type Transport interface {
	// Stat returns the current size of the remote file in bytes.
	Stat(ctx context.Context, path string) (int64, error)

	// FetchRange returns the half-open byte range [start, end) of the
	// remote file.
	FetchRange(ctx context.Context, path string, start, end int64) ([]byte, error)
}
