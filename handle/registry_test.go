package handle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// releaseRecorder captures the order in which raw handles reach the
// foreign release call.
type releaseRecorder struct {
	order []uint64
	fail  map[uint64]error
}

func (rr *releaseRecorder) release(_ Kind, raw uint64) error {
	rr.order = append(rr.order, raw)
	if err, ok := rr.fail[raw]; ok {
		return err
	}
	return nil
}

func TestDisposeReleasesHandle(t *testing.T) {
	rr := &releaseRecorder{}
	reg := NewRegistry(rr.release)

	d, err := reg.New(KindDocument, 42, nil)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Live())

	raw, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), raw)

	require.NoError(t, d.Dispose())
	assert.Equal(t, []uint64{42}, rr.order)
	assert.Equal(t, 0, reg.Live())
}

func TestDoubleDisposeIsNoOp(t *testing.T) {
	rr := &releaseRecorder{}
	reg := NewRegistry(rr.release)

	d, err := reg.New(KindPage, 7, nil)
	require.NoError(t, err)

	require.NoError(t, d.Dispose())
	require.NoError(t, d.Dispose())
	require.NoError(t, d.Dispose())
	assert.Equal(t, []uint64{7}, rr.order, "release must run exactly once")
}

func TestValueAfterDispose(t *testing.T) {
	reg := NewRegistry(func(Kind, uint64) error { return nil })

	d, err := reg.New(KindTextPage, 9, nil)
	require.NoError(t, err)
	require.NoError(t, d.Dispose())

	_, err = d.Value()
	var uad *UseAfterDisposeError
	require.ErrorAs(t, err, &uad)
	assert.Equal(t, KindTextPage, uad.Kind)
	assert.Contains(t, uad.Error(), "text page handle used after dispose")
	assert.False(t, d.Alive())
}

func TestCascadeDisposesChildrenLIFO(t *testing.T) {
	rr := &releaseRecorder{}
	reg := NewRegistry(rr.release)

	doc, err := reg.New(KindDocument, 1, nil)
	require.NoError(t, err)
	pageA, err := reg.New(KindPage, 2, doc)
	require.NoError(t, err)
	pageB, err := reg.New(KindPage, 3, doc)
	require.NoError(t, err)
	textB, err := reg.New(KindTextPage, 4, pageB)
	require.NoError(t, err)

	require.NoError(t, doc.Dispose())

	// Depth-first, most recently created child first, parent last.
	assert.Equal(t, []uint64{4, 3, 2, 1}, rr.order)
	for _, d := range []*Disposable{pageA, pageB, textB} {
		_, err := d.Value()
		var uad *UseAfterDisposeError
		assert.ErrorAs(t, err, &uad)
	}
	assert.Equal(t, 0, reg.Live())
}

func TestChildDisposeDetachesFromParent(t *testing.T) {
	rr := &releaseRecorder{}
	reg := NewRegistry(rr.release)

	doc, err := reg.New(KindDocument, 1, nil)
	require.NoError(t, err)
	page, err := reg.New(KindPage, 2, doc)
	require.NoError(t, err)

	require.NoError(t, page.Dispose())
	require.NoError(t, doc.Dispose())

	// The page must not be released a second time by the parent cascade.
	assert.Equal(t, []uint64{2, 1}, rr.order)
}

func TestNewUnderDisposedParentFails(t *testing.T) {
	reg := NewRegistry(func(Kind, uint64) error { return nil })

	doc, err := reg.New(KindDocument, 1, nil)
	require.NoError(t, err)
	require.NoError(t, doc.Dispose())

	_, err = reg.New(KindPage, 2, doc)
	var uad *UseAfterDisposeError
	require.ErrorAs(t, err, &uad)
	assert.Equal(t, KindDocument, uad.Kind)
}

func TestReleaseErrorsSurfaceButCascadeCompletes(t *testing.T) {
	boom := errors.New("engine rejected close")
	rr := &releaseRecorder{fail: map[uint64]error{3: boom}}
	reg := NewRegistry(rr.release)

	doc, err := reg.New(KindDocument, 1, nil)
	require.NoError(t, err)
	_, err = reg.New(KindPage, 2, doc)
	require.NoError(t, err)
	_, err = reg.New(KindPage, 3, doc)
	require.NoError(t, err)

	err = doc.Dispose()
	require.ErrorIs(t, err, boom)
	// Every handle was still released, failure or not.
	assert.Equal(t, []uint64{3, 2, 1}, rr.order)
	assert.Equal(t, 0, reg.Live())
}

func TestReleaseAll(t *testing.T) {
	rr := &releaseRecorder{}
	reg := NewRegistry(rr.release)

	docA, err := reg.New(KindDocument, 1, nil)
	require.NoError(t, err)
	_, err = reg.New(KindPage, 2, docA)
	require.NoError(t, err)
	_, err = reg.New(KindDocument, 3, nil)
	require.NoError(t, err)

	require.NoError(t, reg.ReleaseAll())
	// Newest root first, its subtree before older roots.
	assert.Equal(t, []uint64{3, 2, 1}, rr.order)
	assert.Equal(t, 0, reg.Live())
}
