package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"gorm.io/gorm"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewServer(db, Config{MaxMessageSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	return s, httptest.NewServer(s)
}

func post(t *testing.T, url, body string) *http.Response {
	resp, err := http.Post(url+"/messages", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func getEnvelopes(t *testing.T, url, query string) []models.Envelope {
	resp, err := http.Get(url + "/messages" + query)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var envelopes []models.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		t.Fatal(err)
	}
	return envelopes
}

func TestServer_PostAndGet(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	if envelopes := getEnvelopes(t, ts.URL, ""); len(envelopes) != 0 {
		t.Errorf("Expected empty relay, got %d envelopes", len(envelopes))
	}

	for i := 0; i < 3; i++ {
		resp := post(t, ts.URL, fmt.Sprintf(`{"msgid": "m%d", "oid": "o%d"}`, i, i))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		var env models.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if env.Serial != uint64(i+1) {
			t.Errorf("Expected serial %d, got %d", i+1, env.Serial)
		}
		if env.ID == "" || env.Timestamp == 0 {
			t.Errorf("Envelope missing id or timestamp: %+v", env)
		}
	}

	envelopes := getEnvelopes(t, ts.URL, "")
	if len(envelopes) != 3 {
		t.Fatalf("Expected 3 envelopes, got %d", len(envelopes))
	}
	if !bytes.Equal(envelopes[0].Content, []byte(`{"msgid":"m0","oid":"o0"}`)) {
		t.Errorf("Incorrect content %s", string(envelopes[0].Content))
	}

	envelopes = getEnvelopes(t, ts.URL, "?from_serial=2")
	if len(envelopes) != 2 || envelopes[0].Serial != 2 || envelopes[1].Serial != 3 {
		t.Errorf("Incorrect envelopes for from_serial: %+v", envelopes)
	}

	envelopes = getEnvelopes(t, ts.URL, "?from_serial=4")
	if len(envelopes) != 0 {
		t.Errorf("Expected no envelopes, got %d", len(envelopes))
	}

	envelopes = getEnvelopes(t, ts.URL, "?from_timestamp_rel=60")
	if len(envelopes) != 3 {
		t.Errorf("Expected 3 envelopes, got %d", len(envelopes))
	}
}

func TestServer_Rejects(t *testing.T) {
	_, ts := newTestServer(t)
	defer ts.Close()

	tests := []struct {
		name       string
		body       string
		statusCode int
	}{
		{"array", `[1, 2]`, http.StatusBadRequest},
		{"string", `"hello"`, http.StatusBadRequest},
		{"garbage", `{{{`, http.StatusBadRequest},
		{"too large", `{"x": "` + strings.Repeat("a", 300) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, test := range tests {
		resp := post(t, ts.URL, test.body)
		resp.Body.Close()
		if resp.StatusCode != test.statusCode {
			t.Errorf("%s: expected status %d, got %d", test.name, test.statusCode, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/messages?from_serial=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestServer_Prune(t *testing.T) {
	s, ts := newTestServer(t)
	defer ts.Close()

	for i := 0; i < 3; i++ {
		post(t, ts.URL, `{"oid": "x"}`).Body.Close()
	}

	// Age every envelope past the retention.
	old := time.Now().Add(-s.cfg.Retention * 2).Unix()
	err := s.store.db.Update(func(tx *gorm.DB) error {
		return tx.Model(&models.Envelope{}).Where("serial <= ?", 3).Update("timestamp", old).Error
	})
	if err != nil {
		t.Fatal(err)
	}

	s.prune()

	envelopes := getEnvelopes(t, ts.URL, "")
	if len(envelopes) != 1 || envelopes[0].Serial != 3 {
		t.Fatalf("Expected only the newest envelope to survive, got %+v", envelopes)
	}

	// Serials keep increasing after pruning.
	post(t, ts.URL, `{"oid": "y"}`).Body.Close()
	envelopes = getEnvelopes(t, ts.URL, "?from_serial=4")
	if len(envelopes) != 1 || envelopes[0].Serial != 4 {
		t.Errorf("Expected serial 4, got %+v", envelopes)
	}
}
