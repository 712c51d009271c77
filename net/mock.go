package net

import (
	"encoding/json"
	"errors"
	"github.com/cpacia/colorswap/models"
	"sync"
	"time"
)

// MockRelay is an in-memory relay. Transports created from it share
// one ordered message board, exactly like clients of a relay server.
type MockRelay struct {
	mtx       sync.RWMutex
	envelopes []models.Envelope
}

// NewMockRelay returns an empty relay.
func NewMockRelay() *MockRelay {
	return &MockRelay{}
}

// Post appends raw content to the board and returns its envelope.
func (r *MockRelay) Post(content []byte) models.Envelope {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	env := models.Envelope{
		Serial:    uint64(len(r.envelopes) + 1),
		ID:        newMessageID(),
		Timestamp: time.Now().Unix(),
		Content:   content,
	}
	r.envelopes = append(r.envelopes, env)
	return env
}

// Replay posts the content of an existing envelope again, the way an
// attacker or a misbehaving relay might.
func (r *MockRelay) Replay(serial uint64) error {
	r.mtx.RLock()
	if serial == 0 || serial > uint64(len(r.envelopes)) {
		r.mtx.RUnlock()
		return errors.New("no such envelope")
	}
	content := r.envelopes[serial-1].Content
	r.mtx.RUnlock()

	r.Post(content)
	return nil
}

// Envelopes returns every envelope with a serial of at least from.
func (r *MockRelay) Envelopes(from uint64) []models.Envelope {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	if from == 0 {
		from = 1
	}
	if from > uint64(len(r.envelopes)) {
		return nil
	}
	ret := make([]models.Envelope, len(r.envelopes)-int(from-1))
	copy(ret, r.envelopes[from-1:])
	return ret
}

// Len returns the number of envelopes posted.
func (r *MockRelay) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	return len(r.envelopes)
}

// NewTransport returns a transport connected to this relay.
func (r *MockRelay) NewTransport() *MockTransport {
	return &MockTransport{
		relay:  r,
		filter: newMessageFilter(DefaultMessageMemory),
	}
}

// MockTransport is a Transport backed by a MockRelay. It applies the
// same self-authored and replay filtering as HTTPTransport.
type MockTransport struct {
	relay      *MockRelay
	filter     *messageFilter
	lastSerial uint64
	sent       []Message
	sendErr    error
	mtx        sync.Mutex
}

// SetSendError makes every subsequent Send fail with err. Pass nil to
// restore normal operation.
func (t *MockTransport) SetSendError(err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.sendErr = err
}

// Sent returns every message successfully sent through this transport.
func (t *MockTransport) Sent() []Message {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	ret := make([]Message, len(t.sent))
	copy(ret, t.sent)
	return ret
}

// Send posts the message to the relay.
func (t *MockTransport) Send(msg Message) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if t.sendErr != nil {
		return t.sendErr
	}
	content, err := t.filter.prepare(msg)
	if err != nil {
		return err
	}
	t.relay.Post(content)
	t.sent = append(t.sent, msg)
	return nil
}

// Receive returns the new messages on the relay.
func (t *MockTransport) Receive() ([]Message, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	var msgs []Message
	for _, env := range t.relay.Envelopes(t.lastSerial + 1) {
		t.lastSerial = env.Serial
		if msg, ok := t.filter.accept(env.Content); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// PostRaw marshals v and posts it to the relay without any msgid
// handling. Tests use it to inject hand crafted content.
func (r *MockRelay) PostRaw(v interface{}) (models.Envelope, error) {
	content, err := json.Marshal(v)
	if err != nil {
		return models.Envelope{}, err
	}
	return r.Post(content), nil
}
