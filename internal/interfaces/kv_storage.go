package interfaces

import "time"

// KeyValueStorage is a small persistent KV store used for API keys, cached
// payloads, and operational state.
type KeyValueStorage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	SetWithTTL(key, value string, ttl time.Duration) error
	Delete(key string) error
	Exists(key string) (bool, error)
}
