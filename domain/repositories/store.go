package repositories

import "context"

// Stable persistence keys. Values are JSON payloads.
const (
	KeyPlaylistQueue = "playlist-queue"
	KeyUserProfile   = "user-profile"
	KeySettings      = "settings"
	KeyAPIKeys       = "api-keys"
)

// StateStore is the best-effort key/value persistence layer. It is a
// cache, not a store of record: load failures surface as absent state.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
