package core

// ReadStore is the read half of the persistent key-value substrate.
// Get returns ErrNotFound when the key is absent. Iterate visits keys with the
// given prefix in ascending byte order; key and value are only valid during fn.
type ReadStore interface {
	Get(key []byte) ([]byte, error)
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// KVStore is a ReadStore that also accepts writes. Atomicity across a call is the
// host's responsibility.
type KVStore interface {
	ReadStore
	Set(key, value []byte) error
}

// AddrValidator checks identity syntax. The engine never parses addresses itself.
type AddrValidator interface {
	Validate(addr string) (Addr, error)
}
