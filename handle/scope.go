package handle

import "errors"

// Scope collects Disposables that should not outlive a function call.
type Scope struct {
	tracked []*Disposable
}

// Track adds d to the scope and returns it unchanged, so acquisition and
// tracking read as one expression. Tracking nil is a no-op.
func (s *Scope) Track(d *Disposable) *Disposable {
	if d != nil {
		s.tracked = append(s.tracked, d)
	}
	return d
}

// release disposes tracked handles in reverse tracking order. Dispose is
// idempotent, so handles already swept up by a parent cascade are fine.
func (s *Scope) release() error {
	var errs []error
	for i := len(s.tracked) - 1; i >= 0; i-- {
		if err := s.tracked[i].Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	s.tracked = nil
	return errors.Join(errs...)
}

// WithScope runs fn with a fresh Scope and guarantees that everything
// tracked in it is disposed on every exit path: normal return, error
// return, or panic. If fn succeeds but a release fails, the release error
// is returned; an error from fn always wins over release errors.
func WithScope[T any](fn func(*Scope) (T, error)) (result T, err error) {
	s := &Scope{}
	defer func() {
		relErr := s.release()
		if err == nil {
			err = relErr
		}
	}()
	return fn(s)
}
