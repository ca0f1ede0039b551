//go:build !(darwin || freebsd || linux)

package native

import "errors"

// openLibrary is the stub loader for platforms without dlopen support.
// The sandboxed backend is the supported route there.
func openLibrary(string) (*library, error) {
	return nil, errors.New("native engine loading is not supported on this platform")
}
