package store

import "sync"

var (
	sharedMu   sync.Mutex
	sharedOnce *sync.Once
	shared     *SQLiteStore
	sharedErr  error
)

func init() {
	sharedOnce = new(sync.Once)
}

// Shared returns the process-wide store handle, opening it on first use.
// Concurrent first callers share a single initialization attempt and its
// outcome; later callers reuse the cached handle.
func Shared(dsn string) (*SQLiteStore, error) {
	sharedMu.Lock()
	once := sharedOnce
	sharedMu.Unlock()

	once.Do(func() {
		s, err := NewSQLiteStore(dsn)
		sharedMu.Lock()
		shared, sharedErr = s, err
		sharedMu.Unlock()
	})

	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared, sharedErr
}

// ResetShared closes and forgets the shared handle. Test harness use only.
func ResetShared() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		_ = shared.Close()
	}
	shared, sharedErr = nil, nil
	sharedOnce = new(sync.Once)
}
