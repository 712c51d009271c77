package net

import (
	"fmt"
	"sync"
	"time"
)

// errorBufferSize is the number of transport errors held for the
// consumer before the oldest is dropped.
const errorBufferSize = 16

// BufferedTransport decouples the agent from relay I/O. Send only
// queues and Receive only drains what the background loop already
// fetched, so neither ever blocks on the network. Failures are
// reported on the Errors channel and never stop the loop.
type BufferedTransport struct {
	transport Transport
	interval  time.Duration

	outbox []Message
	inbox  []Message
	mtx    sync.Mutex

	flushMtx sync.Mutex
	errs     chan error
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewBufferedTransport wraps t. Call Start to begin polling.
func NewBufferedTransport(t Transport, interval time.Duration) *BufferedTransport {
	return &BufferedTransport{
		transport: t,
		interval:  interval,
		errs:      make(chan error, errorBufferSize),
		done:      make(chan struct{}),
	}
}

// Start launches the polling loop.
func (b *BufferedTransport) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Flush()
			case <-b.done:
				return
			}
		}
	}()
}

// Stop shuts down the loop and blocks until it exits. Queued outgoing
// messages are flushed one final time.
func (b *BufferedTransport) Stop() {
	close(b.done)
	b.wg.Wait()
	b.Flush()
}

// Errors returns the channel on which I/O failures are reported.
func (b *BufferedTransport) Errors() <-chan error {
	return b.errs
}

// Send queues the message for the next flush.
func (b *BufferedTransport) Send(msg Message) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.outbox = append(b.outbox, msg)
	return nil
}

// Receive returns the messages fetched since the last call.
func (b *BufferedTransport) Receive() ([]Message, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	msgs := b.inbox
	b.inbox = nil
	return msgs, nil
}

// Flush sends everything queued and polls the wrapped transport once.
// A message that fails to send stays queued, along with everything
// behind it, until the next flush.
func (b *BufferedTransport) Flush() {
	b.flushMtx.Lock()
	defer b.flushMtx.Unlock()

	defer func() {
		if r := recover(); r != nil {
			b.report(fmt.Errorf("transport panic: %v", r))
		}
	}()

	b.mtx.Lock()
	pending := b.outbox
	b.outbox = nil
	b.mtx.Unlock()

	for i, msg := range pending {
		if err := b.transport.Send(msg); err != nil {
			b.report(err)
			b.mtx.Lock()
			b.outbox = append(pending[i:], b.outbox...)
			b.mtx.Unlock()
			break
		}
	}

	msgs, err := b.transport.Receive()
	if err != nil {
		b.report(err)
		return
	}
	if len(msgs) == 0 {
		return
	}
	b.mtx.Lock()
	b.inbox = append(b.inbox, msgs...)
	b.mtx.Unlock()
}

// report pushes err to the error channel, dropping the oldest error if
// the consumer is not keeping up.
func (b *BufferedTransport) report(err error) {
	log.Warningf("Transport error: %s", err)
	for {
		select {
		case b.errs <- err:
			return
		default:
		}
		select {
		case <-b.errs:
		default:
		}
	}
}
