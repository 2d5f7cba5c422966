package store

// Keys used by the rest of the application. The profile value is a JSON
// snapshot; the token values are opaque strings.
const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
	KeyProfile = "profile"
)

// Store is durable key-value storage for the credential pair and the
// profile snapshot. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it is present
	Get(key string) (string, bool)

	// Set stores value under key, overwriting any previous value
	Set(key, value string) error

	// Clear removes key. Clearing an absent key is a no-op.
	Clear(key string) error

	// OnExternalChange registers a callback fired when another process
	// mutates the store. Callbacks run after the in-memory view has been
	// resynchronized; writes made through this instance do not fire.
	OnExternalChange(fn func())
}
