package net

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"github.com/op/go-logging"
	"github.com/patrickmn/go-cache"
	"time"
)

var log = logging.MustGetLogger("NET")

// DefaultMessageMemory is how long msgids are remembered for replay
// suppression when no other value is configured.
const DefaultMessageMemory = time.Minute * 2

// Transport delivers messages to and from the shared relay. Receive
// returns only messages not authored by this transport and not seen
// before.
type Transport interface {
	// Send assigns the message a fresh msgid and posts it.
	Send(msg Message) error

	// Receive returns the new messages since the last call.
	Receive() ([]Message, error)
}

// newMessageID returns the hex encoding of 20 random bytes.
func newMessageID() string {
	mid := make([]byte, 20)
	rand.Read(mid)
	return hex.EncodeToString(mid)
}

// messageFilter remembers msgids we authored and msgids we already
// delivered so neither our own echo nor a replay is handed up twice.
type messageFilter struct {
	selfAuthored *cache.Cache
	seen         *cache.Cache
}

func newMessageFilter(memory time.Duration) *messageFilter {
	return &messageFilter{
		selfAuthored: cache.New(memory, memory),
		seen:         cache.New(memory, memory),
	}
}

// prepare assigns a fresh msgid, records it as ours and returns the
// serialized content.
func (f *messageFilter) prepare(msg Message) ([]byte, error) {
	id := newMessageID()
	msg.SetMessageID(id)
	f.selfAuthored.Set(id, struct{}{}, cache.DefaultExpiration)
	return json.Marshal(msg)
}

// accept decodes content and returns the message if it should be
// delivered.
func (f *messageFilter) accept(content []byte) (Message, bool) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		log.Warningf("Dropping undecodable relay content: %s", err)
		return nil, false
	}
	id, _ := raw["msgid"].(string)
	if id == "" {
		log.Debug("Dropping relay message without msgid")
		return nil, false
	}
	if _, ok := f.selfAuthored.Get(id); ok {
		return nil, false
	}
	if err := f.seen.Add(id, struct{}{}, cache.DefaultExpiration); err != nil {
		log.Debugf("Dropping replayed message %s", id)
		return nil, false
	}
	msg, err := DecodeMessage(raw)
	if err != nil {
		log.Warningf("Dropping message %s: %s", id, err)
		return nil, false
	}
	return msg, true
}
