package relay

import (
	"bytes"
	"encoding/json"
	"github.com/cpacia/colorswap/repo"
	"testing"
)

func TestEnvelopeStore_PutAndRead(t *testing.T) {
	db, err := repo.MockDB()
	if err != nil {
		t.Fatal(err)
	}
	store, err := newEnvelopeStore(db)
	if err != nil {
		t.Fatal(err)
	}

	contents := [][]byte{
		[]byte(`{"msgid":"m1","oid":"o1"}`),
		[]byte(`{"msgid":"m2","pid":"p1"}`),
	}
	for i, content := range contents {
		env, err := store.put(content)
		if err != nil {
			t.Fatal(err)
		}
		if env.Serial != uint64(i+1) {
			t.Errorf("Expected serial %d, got %d", i+1, env.Serial)
		}
	}

	envelopes, err := store.fromSerial(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("Expected 1 envelope, got %d", len(envelopes))
	}
	if !bytes.Equal(envelopes[0].Content, contents[1]) {
		t.Errorf("Expected content %s, got %s", contents[1], envelopes[0].Content)
	}

	// Content travels as an embedded object, not base64.
	out, err := json.Marshal(envelopes[0])
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(out, &wire); err != nil {
		t.Fatal(err)
	}
	content, ok := wire["content"].(map[string]interface{})
	if !ok || content["pid"] != "p1" {
		t.Errorf("Expected embedded content object, got %s", out)
	}
}
