package handle

// Disposable is the host-side wrapper around exactly one foreign handle.
// It is created by [Registry.New] and released at most once; a second
// Dispose is a no-op.
type Disposable struct {
	reg  *Registry
	id   token
	kind Kind
}

// Kind returns the kind the handle was registered with.
func (d *Disposable) Kind() Kind { return d.kind }

// Value returns the raw foreign handle, or a [*UseAfterDisposeError] if the
// Disposable (or any ancestor) has been disposed. Callers must fetch the
// value per operation rather than caching it, so staleness is caught.
func (d *Disposable) Value() (uint64, error) {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	n := d.reg.nodes[d.id]
	if n == nil || n.disposed {
		return 0, &UseAfterDisposeError{Kind: d.kind}
	}
	return n.raw, nil
}

// Alive reports whether the handle is still valid.
func (d *Disposable) Alive() bool {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	n := d.reg.nodes[d.id]
	return n != nil && !n.disposed
}

// Dispose releases the handle: live children first, most recently created
// first, then the handle itself. Disposing an already-disposed handle
// returns nil.
func (d *Disposable) Dispose() error {
	d.reg.mu.Lock()
	defer d.reg.mu.Unlock()
	return d.reg.disposeLocked(d.id)
}
