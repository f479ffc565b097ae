package capture

import (
	"context"
	"sync"
)

// Future resolves exactly once, when the session leaves Recording, with
// either the finished artifact or the reason there is none.
type Future struct {
	once sync.Once
	done chan struct{}
	art  *Artifact
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(a *Artifact, err error) {
	f.once.Do(func() {
		f.art, f.err = a, err
		close(f.done)
	})
}

// Done is closed once the future has resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (*Artifact, error) {
	select {
	case <-f.done:
		return f.art, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
