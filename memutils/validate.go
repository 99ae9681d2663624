package memutils

// Validatable is anything DebugValidate can check. Pools implement it by walking their
// pages and slot lists; a pool whose lock is already held passes a wrapper that skips
// locking.
type Validatable interface {
	Validate() error
}
