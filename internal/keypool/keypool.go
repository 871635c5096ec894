// Package keypool implements spec.md §3 / §4.J's key pool: a monotonically
// increasing integer-key allocator that reissues returned keys before
// minting fresh ones, so the reactor's poller-key tables stay small across
// a long-running process instead of growing with total connection count.
//
// Grounded 1:1 on original_source/src/key_pool.rs's KeyPool
// (take_key/return_key), translated from a HashSet<usize> into a Go
// map[int]struct{} since Go has no set type.
package keypool

// Key identifies a socket registered with the reactor's readiness poller.
type Key int

// Pool issues and reclaims Keys.
type Pool struct {
	available map[Key]struct{}
	next      Key
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{available: make(map[Key]struct{})}
}

// Take returns a previously-Returned key if one is available, otherwise
// mints a new one. Keys start at 1; 0 is reserved so callers can use it as
// a "no key assigned" sentinel.
func (p *Pool) Take() Key {
	for k := range p.available {
		delete(p.available, k)
		return k
	}
	p.next++
	return p.next
}

// Return releases k back to the pool for future reuse by Take.
func (p *Pool) Return(k Key) {
	p.available[k] = struct{}{}
}
