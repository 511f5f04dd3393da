// Package counter provides message counter allocation and replay detection
// for meshwire sessions.
//
// An Allocator implements message.CounterAllocator. It keeps one counter for
// each global counter space and one per secure session, starts every counter
// at a random value in [1, InitMax] and refuses to hand out a value twice.
//
//	alloc := counter.NewAllocator()
//	encoded, err := codec.Seal(header, protocolMessage, alloc)
//
// A ReceptionWindow tracks the counters received from one peer and rejects
// duplicates and counters that fell behind the window. A ReplayGuard keeps
// one window per sender and counter space and checks decoded headers:
//
//	guard := counter.NewReplayGuard()
//	m, err := codec.Decode(data)
//	if err == nil {
//	    err = guard.Check(&m.Header)
//	}
package counter
