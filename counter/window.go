package counter

import (
	"errors"
	"fmt"
	"sync"
)

// WindowSize is the number of counters below the highest one seen that are
// still tracked individually.
const WindowSize = 32

var (
	// ErrReplayDetected reports a counter that was already accepted.
	ErrReplayDetected = errors.New("counter: replay detected")

	// ErrCounterBehindWindow reports a counter older than the window.
	ErrCounterBehindWindow = errors.New("counter: counter behind reception window")
)

// ReceptionWindow records the message counters received from one peer in
// one counter space. Bit i of the bitmap stands for counter max-(i+1).
type ReceptionWindow struct {
	mu          sync.Mutex
	max         uint32
	bitmap      uint32
	initialized bool
}

// Accept records counter, or reports why it must be dropped.
func (w *ReceptionWindow) Accept(counter uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		w.max = counter
		w.bitmap = 0
		w.initialized = true
		return nil
	}

	switch {
	case counter > w.max:
		shift := counter - w.max
		if shift <= WindowSize {
			w.bitmap = uint32(uint64(w.bitmap)<<shift | 1<<(shift-1))
		} else {
			w.bitmap = 0
		}
		w.max = counter
		return nil
	case counter == w.max:
		return fmt.Errorf("%w: %d", ErrReplayDetected, counter)
	}

	behind := w.max - counter
	if behind > WindowSize {
		return fmt.Errorf("%w: %d is %d behind %d", ErrCounterBehindWindow, counter, behind, w.max)
	}
	bit := uint32(1) << (behind - 1)
	if w.bitmap&bit != 0 {
		return fmt.Errorf("%w: %d", ErrReplayDetected, counter)
	}
	w.bitmap |= bit
	return nil
}

// Max returns the highest accepted counter and whether any was accepted.
func (w *ReceptionWindow) Max() (uint32, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.max, w.initialized
}
