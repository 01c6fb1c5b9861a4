package stream

// DefaultWindowSize is the backpressure window applied when none is
// configured.
const DefaultWindowSize = 65536

// BackpressureController bounds the bytes a sender may have in flight on
// one stream. It is pure accounting: the caller polls CanSend before each
// write and parks itself until acks arrive; the controller never blocks.
type BackpressureController struct {
	windowSize    int
	bytesInFlight int
}

// NewBackpressureController creates a controller with the default window.
func NewBackpressureController() *BackpressureController {
	return NewBackpressureControllerWithWindow(DefaultWindowSize)
}

// NewBackpressureControllerWithWindow creates a controller with the given
// window size in bytes. Sizes below 1 fall back to the default.
func NewBackpressureControllerWithWindow(windowSize int) *BackpressureController {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}

	return &BackpressureController{windowSize: windowSize}
}

// CanSend reports whether another chunk may be sent: true while the bytes
// in flight are below the window.
func (b *BackpressureController) CanSend() bool {
	return b.bytesInFlight < b.windowSize
}

// AvailableWindow returns the bytes that may still be sent before the
// window closes.
func (b *BackpressureController) AvailableWindow() int {
	if b.bytesInFlight >= b.windowSize {
		return 0
	}

	return b.windowSize - b.bytesInFlight
}

// OnChunkSent records size bytes as in flight.
func (b *BackpressureController) OnChunkSent(size int) {
	if size < 0 {
		return
	}
	b.bytesInFlight += size
}

// OnChunkAcked releases size bytes from the in-flight count, flooring at
// zero so spurious acks cannot corrupt the accounting.
func (b *BackpressureController) OnChunkAcked(size int) {
	if size < 0 {
		return
	}
	if size >= b.bytesInFlight {
		b.bytesInFlight = 0
		return
	}
	b.bytesInFlight -= size
}

// WindowSize returns the configured window in bytes.
func (b *BackpressureController) WindowSize() int {
	return b.windowSize
}

// BytesInFlight returns the currently unacknowledged byte count.
func (b *BackpressureController) BytesInFlight() int {
	return b.bytesInFlight
}

// Reset clears the in-flight count, for stream restarts.
func (b *BackpressureController) Reset() {
	b.bytesInFlight = 0
}
