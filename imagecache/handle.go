package imagecache

import (
	"context"
	"errors"
	"image"
	"sync"
)

type State int

const (
	Pending State = iota
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	}
	return "pending"
}

var ErrPending = errors.New("image still pending")

// Handle tracks one image download. It settles exactly once, either resolved
// with an image or rejected with an error.
type Handle struct {
	url string

	mu        sync.Mutex
	state     State
	img       image.Image
	err       error
	callbacks []func(*Handle)
	done      chan struct{}
}

func newHandle(url string) *Handle {
	return &Handle{url: url, done: make(chan struct{})}
}

func (h *Handle) URL() string {
	return h.url
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Resolved() bool { return h.State() == Resolved }
func (h *Handle) Rejected() bool { return h.State() == Rejected }
func (h *Handle) Pending() bool  { return h.State() == Pending }

// Value returns the image if the handle has resolved. It never blocks.
func (h *Handle) Value() (image.Image, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.img, h.state == Resolved
}

// Err returns the load error of a rejected handle and ErrPending while the
// download is in flight.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == Pending {
		return ErrPending
	}
	return h.err
}

// Done is closed once the handle has settled and its callbacks have run.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the handle settles or ctx ends.
func (h *Handle) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.img, h.err
}

// OnSettled registers cb to run once the handle settles. The callback always
// runs asynchronously: on the settling goroutine if the handle is still
// pending, on a new goroutine otherwise. Callers may therefore hold their own
// locks while registering.
func (h *Handle) OnSettled(cb func(*Handle)) {
	h.mu.Lock()
	if h.state == Pending {
		h.callbacks = append(h.callbacks, cb)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	go cb(h)
}

func (h *Handle) settle(img image.Image, err error) {
	h.mu.Lock()
	if h.state != Pending {
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.state = Rejected
		h.err = err
	} else {
		h.state = Resolved
		h.img = img
	}
	callbacks := h.callbacks
	h.callbacks = nil
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb(h)
	}
	close(h.done)
}
