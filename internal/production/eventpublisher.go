package production

import (
	"sync"
	"sync/atomic"

	"github.com/comalice/hfsm"
)

// ChannelPublisher is a Sink that forwards diagnostics to a Go channel.
// Report never blocks: when the channel is full the diagnostic is dropped
// and counted.
type ChannelPublisher struct {
	ch      chan hfsm.Diagnostic
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

var _ hfsm.Sink = (*ChannelPublisher)(nil)

// NewChannelPublisher creates a publisher with a buffer of size entries.
func NewChannelPublisher(size int) *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan hfsm.Diagnostic, size)}
}

// C returns the receive side of the channel. It is closed by Close.
func (p *ChannelPublisher) C() <-chan hfsm.Diagnostic {
	return p.ch
}

func (p *ChannelPublisher) Report(d hfsm.Diagnostic) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.ch <- d:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many diagnostics were discarded.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close closes the channel. Later reports are dropped.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
