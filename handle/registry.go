package handle

import (
	"errors"
	"sync"
)

// ReleaseFunc releases one foreign handle of the given kind. It is called
// exactly once per live handle, under the registry lock, after all children
// of the handle have been released.
type ReleaseFunc func(kind Kind, raw uint64) error

// token indexes a node in the registry arena. Zero is never issued and
// doubles as "no parent".
type token uint64

// node is one arena entry. Children are stored in creation order; disposal
// walks them in reverse.
type node struct {
	kind     Kind
	raw      uint64
	parent   token
	children []token
	disposed bool
}

// Registry is the arena of live handles for one engine session.
//
// A single mutex guards the whole arena. Cascade disposal runs entirely
// under that lock, which makes re-entrant disposal (a child disposed while
// its parent's cascade is in flight) safe: every step checks liveness
// before acting.
type Registry struct {
	mu      sync.Mutex
	release ReleaseFunc
	nodes   map[token]*node
	next    token
}

// NewRegistry creates an empty registry. release must not be nil; it is how
// the registry hands handles back to the foreign engine.
func NewRegistry(release ReleaseFunc) *Registry {
	if release == nil {
		panic("handle: nil ReleaseFunc")
	}
	return &Registry{
		release: release,
		nodes:   make(map[token]*node),
	}
}

// New registers a freshly created foreign handle and returns its Disposable.
// parent may be nil for root objects (documents). Registering a child under
// a disposed parent fails: the foreign engine has already torn the parent
// down, so the raw handle cannot be valid.
func (r *Registry) New(kind Kind, raw uint64, parent *Disposable) (*Disposable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var parentID token
	if parent != nil {
		p := r.nodes[parent.id]
		if p == nil || p.disposed {
			return nil, &UseAfterDisposeError{Kind: parent.kind, Hint: "cannot create " + kind.String() + " under a disposed parent"}
		}
		parentID = parent.id
	}

	r.next++
	id := r.next
	r.nodes[id] = &node{kind: kind, raw: raw, parent: parentID}
	if parentID != 0 {
		r.nodes[parentID].children = append(r.nodes[parentID].children, id)
	}
	return &Disposable{reg: r, id: id, kind: kind}, nil
}

// Live reports how many handles are currently registered and not disposed.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// ReleaseAll disposes every remaining root handle (and therefore, by
// cascade, every handle). Used at session shutdown so teardown order stays
// explicit: children before parents, newest first.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var roots []token
	for id, n := range r.nodes {
		if n.parent == 0 {
			roots = append(roots, id)
		}
	}
	// Newest root first, matching the per-node cascade order.
	var errs []error
	for len(roots) > 0 {
		newest := 0
		for i := range roots {
			if roots[i] > roots[newest] {
				newest = i
			}
		}
		if err := r.disposeLocked(roots[newest]); err != nil {
			errs = append(errs, err)
		}
		roots = append(roots[:newest], roots[newest+1:]...)
	}
	return errors.Join(errs...)
}

// disposeLocked marks the node dead, cascades over live children in reverse
// creation order, releases the foreign handle, then detaches from the
// parent. Disposed or unknown tokens are a no-op, which is what makes both
// idempotent teardown and re-entrant cascades safe.
func (r *Registry) disposeLocked(id token) error {
	n := r.nodes[id]
	if n == nil || n.disposed {
		return nil
	}
	n.disposed = true

	var errs []error
	for i := len(n.children) - 1; i >= 0; i-- {
		if err := r.disposeLocked(n.children[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.release(n.kind, n.raw); err != nil {
		errs = append(errs, err)
	}

	if p := r.nodes[n.parent]; p != nil && !p.disposed {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	delete(r.nodes, id)
	return errors.Join(errs...)
}
