package api

import (
	"github.com/cpacia/colorswap/models"
	"github.com/gorilla/websocket"
	"net/http"
	"strings"
	"testing"
	"time"
)

// sha256("letmein")
const testPasswordHash = "1c8bfe8f801d79745c4631d09fff36c82aa37fc4cce4fc946683d7b336b63032"

func withCookie(value string) func(req *http.Request) {
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: value})
	}
}

func TestGateway_AuthenticationMiddleware(t *testing.T) {
	var (
		cookieConfig = &GatewayConfig{Cookie: "cookie_monster"}
		basicConfig  = &GatewayConfig{Username: "alice", Password: testPasswordHash}
		remoteConfig = &GatewayConfig{AllowedIPs: map[string]bool{"197.2.18.3": true}}
		localConfig  = &GatewayConfig{AllowedIPs: map[string]bool{"127.0.0.1": true}}
		offerBody    = []byte(`{"A": {"color_spec": "", "value": 200000}, "B": {"color_spec": "GOLD", "value": 100000}}`)
	)

	// Rejected requests must never reach the node.
	refuseOffers := func(n *mockNode) {
		n.submitOwnOfferFunc = func(offer *models.Offer) error {
			t.Error("Offer submitted by an unauthenticated request")
			return nil
		}
		n.withdrawOwnOfferFunc = func(id models.OfferID) error {
			t.Error("Offer withdrawn by an unauthenticated request")
			return nil
		}
	}
	acceptOffers := func(n *mockNode) {
		n.offersFunc = func() ([]*models.Offer, []*models.Offer) { return nil, nil }
		n.submitOwnOfferFunc = func(offer *models.Offer) error { return nil }
		n.withdrawOwnOfferFunc = func(id models.OfferID) error { return nil }
	}

	runAPITests(t, apiTests{
		{
			name:           "List offers from allowed IP",
			path:           "/v1/offers",
			method:         http.MethodGet,
			config:         localConfig,
			setNodeMethods: acceptOffers,
			statusCode:     http.StatusOK,
		},
		{
			name:           "List offers from other IP",
			path:           "/v1/offers",
			method:         http.MethodGet,
			config:         remoteConfig,
			setNodeMethods: acceptOffers,
			statusCode:     http.StatusForbidden,
		},
		{
			name:           "Submit offer with cookie",
			path:           "/v1/offers",
			method:         http.MethodPost,
			body:           offerBody,
			config:         cookieConfig,
			setRequest:     withCookie("cookie_monster"),
			setNodeMethods: acceptOffers,
			statusCode:     http.StatusOK,
		},
		{
			name:           "Submit offer without cookie",
			path:           "/v1/offers",
			method:         http.MethodPost,
			body:           offerBody,
			config:         cookieConfig,
			setNodeMethods: refuseOffers,
			statusCode:     http.StatusForbidden,
		},
		{
			name:           "Submit offer with wrong cookie",
			path:           "/v1/offers",
			method:         http.MethodPost,
			body:           offerBody,
			config:         cookieConfig,
			setRequest:     withCookie("asdfasdf"),
			setNodeMethods: refuseOffers,
			statusCode:     http.StatusForbidden,
		},
		{
			name:           "Submit offer from other IP",
			path:           "/v1/offers",
			method:         http.MethodPost,
			body:           offerBody,
			config:         remoteConfig,
			setNodeMethods: refuseOffers,
			statusCode:     http.StatusForbidden,
		},
		{
			name:   "Withdraw offer with basic auth",
			path:   "/v1/offers/a8a1c6a5-5c1e-4f4b-a7f6-7a9e6b1f0c11",
			method: http.MethodDelete,
			config: basicConfig,
			setRequest: func(req *http.Request) {
				req.SetBasicAuth("alice", "letmein")
			},
			setNodeMethods: acceptOffers,
			statusCode:     http.StatusOK,
		},
		{
			name:   "Withdraw offer with wrong password",
			path:   "/v1/offers/a8a1c6a5-5c1e-4f4b-a7f6-7a9e6b1f0c11",
			method: http.MethodDelete,
			config: basicConfig,
			setRequest: func(req *http.Request) {
				req.SetBasicAuth("alice", "asdf")
			},
			setNodeMethods: refuseOffers,
			statusCode:     http.StatusForbidden,
		},
		{
			name:           "Withdraw offer without credentials",
			path:           "/v1/offers/a8a1c6a5-5c1e-4f4b-a7f6-7a9e6b1f0c11",
			method:         http.MethodDelete,
			config:         basicConfig,
			setNodeMethods: refuseOffers,
			statusCode:     http.StatusForbidden,
		},
	})
}

func TestGateway_WebsocketPolicy(t *testing.T) {
	tests := []struct {
		name    string
		config  *GatewayConfig
		header  http.Header
		allowed bool
	}{
		{
			name:    "Open gateway",
			config:  &GatewayConfig{},
			allowed: true,
		},
		{
			name:   "Disallowed IP",
			config: &GatewayConfig{AllowedIPs: map[string]bool{"197.2.18.3": true}},
		},
		{
			name:   "Missing cookie",
			config: &GatewayConfig{Cookie: "cookie_monster"},
		},
		{
			name:    "Cookie presented",
			config:  &GatewayConfig{Cookie: "cookie_monster"},
			header:  http.Header{"Cookie": []string{AuthCookieName + "=cookie_monster"}},
			allowed: true,
		},
		{
			name:    "Foreign origin with CORS",
			config:  &GatewayConfig{},
			header:  http.Header{"Origin": []string{"http://wallet.example"}},
			allowed: true,
		},
		{
			name:   "Foreign origin without CORS",
			config: &GatewayConfig{NoCors: true},
			header: http.Header{"Origin": []string{"http://wallet.example"}},
		},
	}

	for _, test := range tests {
		_, ts := newTestGateway(t, &mockNode{}, test.config)
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, test.header)
		if test.allowed {
			if err != nil {
				t.Errorf("%s: expected the upgrade to succeed: %s", test.name, err)
			} else {
				conn.Close()
			}
		} else {
			if err == nil {
				conn.Close()
				t.Errorf("%s: expected the upgrade to be refused", test.name)
			} else if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("%s: expected status forbidden", test.name)
			}
		}
		ts.Close()
	}
}

func TestGateway_NotifyWebsockets(t *testing.T) {
	gateway, ts := newTestGateway(t, &mockNode{}, &GatewayConfig{Cookie: "cookie_monster"})
	defer ts.Close()
	defer gateway.hub.stop()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Cookie": []string{AuthCookieName + "=cookie_monster"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// The subscriber joins the hub after the handshake completes so
	// keep pushing until the first notification arrives.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond * 10):
				gateway.NotifyWebsockets(map[string]string{"color_spec": "<b>GOLD</b>"})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(time.Second * 5))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	expected := "{\n    \"color_spec\": \"GOLD\"\n}"
	if string(message) != expected {
		t.Errorf("Expected %s, got %s", expected, string(message))
	}
}
