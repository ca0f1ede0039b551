package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbind/quill/handle"
)

// stubBackend satisfies Backend with inert defaults so tests can embed it
// and override only what they exercise.
type stubBackend struct{}

func (stubBackend) Name() string { return "stub" }
func (stubBackend) OpenDocument(context.Context, []byte, string) (uint64, error) {
	return 1, nil
}
func (stubBackend) PageCount(context.Context, uint64) (int, error)        { return 0, nil }
func (stubBackend) LoadPage(context.Context, uint64, int) (uint64, error) { return 0, nil }
func (stubBackend) PageSize(context.Context, uint64) (float64, float64, error) {
	return 0, 0, nil
}
func (stubBackend) LoadTextPage(context.Context, uint64) (uint64, error) { return 0, nil }
func (stubBackend) TextLength(context.Context, uint64) (int, error)      { return 0, nil }
func (stubBackend) Text(context.Context, uint64, Limits) (string, error) { return "", nil }
func (stubBackend) RenderPage(context.Context, uint64, RenderRequest) (RenderResult, error) {
	return RenderResult{}, nil
}
func (stubBackend) ProgressiveStart(context.Context, uint64, RenderRequest) (uint64, RenderStatus, error) {
	return 0, RenderDone, nil
}
func (stubBackend) ProgressiveContinue(context.Context, uint64) (RenderStatus, error) {
	return RenderDone, nil
}
func (stubBackend) ProgressiveFinish(context.Context, uint64) (RenderResult, error) {
	return RenderResult{}, nil
}
func (stubBackend) LoadFont(context.Context, uint64, []byte, FontKind) (uint64, error) {
	return 0, nil
}
func (stubBackend) MetaText(context.Context, uint64, string) (string, error) { return "", nil }
func (stubBackend) PageLabel(context.Context, uint64, int) (string, error)   { return "", nil }
func (stubBackend) BookmarkFirstChild(context.Context, uint64, uint64) (uint64, error) {
	return 0, nil
}
func (stubBackend) BookmarkNextSibling(context.Context, uint64, uint64) (uint64, error) {
	return 0, nil
}
func (stubBackend) BookmarkTitle(context.Context, uint64) (string, error) { return "", nil }
func (stubBackend) BookmarkDestPage(context.Context, uint64, uint64) (int, error) {
	return -1, nil
}
func (stubBackend) CloseHandle(context.Context, handle.Kind, uint64) error { return nil }
func (stubBackend) Shutdown(context.Context) error                         { return nil }

// overlapBackend records whether two foreign calls were ever in flight at
// the same time.
type overlapBackend struct {
	stubBackend
	inFlight   atomic.Int32
	overlapped atomic.Bool
	calls      atomic.Int32
}

func (o *overlapBackend) enter() {
	if o.inFlight.Add(1) > 1 {
		o.overlapped.Store(true)
	}
	time.Sleep(200 * time.Microsecond) // widen the race window
}

func (o *overlapBackend) exit() {
	o.inFlight.Add(-1)
	o.calls.Add(1)
}

func (o *overlapBackend) Text(context.Context, uint64, Limits) (string, error) {
	o.enter()
	defer o.exit()
	return "text", nil
}

func (o *overlapBackend) PageCount(context.Context, uint64) (int, error) {
	o.enter()
	defer o.exit()
	return 3, nil
}

func TestSerializedPreventsOverlap(t *testing.T) {
	inner := &overlapBackend{}
	b := Serialized(inner)
	ctx := context.Background()

	const workers = 16
	const perWorker = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if w%2 == 0 {
					_, err := b.Text(ctx, 1, Limits{})
					assert.NoError(t, err)
				} else {
					_, err := b.PageCount(ctx, 1)
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.False(t, inner.overlapped.Load(), "foreign calls overlapped despite serialization")
	assert.Equal(t, int32(workers*perWorker), inner.calls.Load())
}

func TestSerializedIsIdempotentWrap(t *testing.T) {
	inner := &overlapBackend{}
	once := Serialized(inner)
	twice := Serialized(once)
	require.Same(t, once, twice)
}
