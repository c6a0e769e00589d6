// Package backend provides the seam between a proxy and the memcached
// backend(s) it relays to: a key→backend lookup hook (currently a stub, per
// spec.md §4.6/§9) and a per-client connection pool (spec.md §5/§9's
// preferred fix for the single-shared-backend-connection hazard).
package backend

// Picker resolves which backend address a given key should be routed to.
// Today there is no sharding/failover logic — see SingleBackend — but the
// framers and connection driver never assume a single backend directly;
// they always go through a Picker, so routing logic can be added later
// without touching them.
type Picker interface {
	// PickForKey returns the backend address to use for key.
	PickForKey(key []byte) (addr string)
}

// SingleBackend is a Picker that ignores the key and always returns the one
// configured backend address. It is the default, and today the only,
// implementation: the placeholder behavior spec.md requires of the
// "ProxyRepository" stub.
type SingleBackend struct {
	Addr string
}

// PickForKey implements Picker.
func (s SingleBackend) PickForKey(_ []byte) string {
	return s.Addr
}
