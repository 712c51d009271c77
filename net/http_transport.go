package net

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/proxyclient"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPTransport talks to a relay server over HTTP. The first poll asks
// for everything posted within the bootstrap window; every later poll
// asks for the envelopes after the last serial seen.
type HTTPTransport struct {
	url             string
	client          *http.Client
	bootstrapWindow time.Duration
	lastSerial      uint64
	filter          *messageFilter
	mtx             sync.Mutex
}

// NewHTTPTransport returns a transport for the relay at relayURL.
// msgids are remembered for memory, which should be at least twice the
// offer TTL so reposted offers are not mistaken for replays of older
// posts.
func NewHTTPTransport(relayURL string, bootstrapWindow, memory time.Duration) *HTTPTransport {
	client := proxyclient.NewHttpClient()
	client.Timeout = time.Second * 30

	return &HTTPTransport{
		url:             strings.TrimSuffix(relayURL, "/"),
		client:          client,
		bootstrapWindow: bootstrapWindow,
		filter:          newMessageFilter(memory),
	}
}

// Send posts the message to the relay.
func (t *HTTPTransport) Send(msg Message) error {
	content, err := t.filter.prepare(msg)
	if err != nil {
		return err
	}

	resp, err := t.client.Post(t.url+"/messages", "application/json", bytes.NewReader(content))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("relay rejected message: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	log.Debugf("Sent message %s", msg.MessageID())
	return nil
}

// Receive polls the relay and returns the new messages.
func (t *HTTPTransport) Receive() ([]Message, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	var query string
	if t.lastSerial == 0 {
		query = fmt.Sprintf("from_timestamp_rel=%d", int64(t.bootstrapWindow.Seconds()))
	} else {
		query = fmt.Sprintf("from_serial=%d", t.lastSerial+1)
	}

	resp, err := t.client.Get(t.url + "/messages?" + query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay poll failed: %d", resp.StatusCode)
	}

	var envelopes []models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, err
	}

	var msgs []Message
	for _, env := range envelopes {
		if env.Serial > t.lastSerial {
			t.lastSerial = env.Serial
		}
		if msg, ok := t.filter.accept(env.Content); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}
