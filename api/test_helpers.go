package api

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
)

type apiTests []apiTest

// apiTest is one request against a fresh gateway. The mock node starts
// out empty for every test so handler stubs never leak between cases.
type apiTest struct {
	name             string
	path             string
	method           string
	body             []byte
	config           *GatewayConfig
	setRequest       func(req *http.Request)
	setNodeMethods   func(n *mockNode)
	statusCode       int
	expectedResponse func() ([]byte, error)
}

// newTestGateway returns a gateway for node wrapped in the same
// middleware as in production. The listener is unused.
func newTestGateway(t *testing.T, node *mockNode, config *GatewayConfig) (*Gateway, *httptest.Server) {
	if config == nil {
		config = &GatewayConfig{}
	}
	gateway, err := NewGateway(node, config)
	if err != nil {
		t.Fatal(err)
	}
	return gateway, httptest.NewServer(gateway.handler)
}

func runAPITests(t *testing.T, tests apiTests) {
	for _, test := range tests {
		node := &mockNode{}
		if test.setNodeMethods != nil {
			test.setNodeMethods(node)
		}
		_, ts := newTestGateway(t, node, test.config)

		req, err := http.NewRequest(test.method, ts.URL+test.path, bytes.NewReader(test.body))
		if err != nil {
			t.Fatal(err)
		}
		if test.setRequest != nil {
			test.setRequest(req)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		response, err := ioutil.ReadAll(res.Body)
		res.Body.Close()
		ts.Close()
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != test.statusCode {
			t.Errorf("%s: expected status code %d, got %d", test.name, test.statusCode, res.StatusCode)
			continue
		}
		if test.expectedResponse == nil {
			continue
		}
		expected, err := test.expectedResponse()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(response, expected) {
			t.Errorf("%s: expected response %s, got %s", test.name, string(expected), string(response))
		}
	}
}
