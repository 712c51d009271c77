package net

import (
	"github.com/cpacia/colorswap/models"
	"testing"
)

func testOffer() *models.Offer {
	return models.NewOffer(models.OfferSide{ColorDesc: "gold", Value: 10}, models.OfferSide{Value: 5000})
}

func TestMockTransport_Filtering(t *testing.T) {
	relay := NewMockRelay()
	alice := relay.NewTransport()
	bob := relay.NewTransport()

	if err := alice.Send(NewOfferMessage(testOffer())); err != nil {
		t.Fatal(err)
	}

	// Own messages are never delivered back.
	msgs, err := alice.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected no messages for author, got %d", len(msgs))
	}

	msgs, err = bob.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(*OfferMessage); !ok {
		t.Errorf("Expected *OfferMessage, got %T", msgs[0])
	}

	// A replay of the same content is suppressed.
	if err := relay.Replay(1); err != nil {
		t.Fatal(err)
	}
	msgs, err = bob.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected replay to be dropped, got %d messages", len(msgs))
	}

	// Content without a msgid or with garbage is dropped.
	if _, err := relay.PostRaw(map[string]interface{}{"oid": "x"}); err != nil {
		t.Fatal(err)
	}
	relay.Post([]byte("not json"))
	if _, err := relay.PostRaw(map[string]interface{}{"msgid": "ff", "junk": true}); err != nil {
		t.Fatal(err)
	}
	msgs, err = bob.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected invalid content to be dropped, got %d messages", len(msgs))
	}

	// A fresh send of the same offer gets a new msgid and is delivered.
	if err := alice.Send(NewOfferMessage(testOffer())); err != nil {
		t.Fatal(err)
	}
	msgs, err = bob.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Errorf("Expected 1 message, got %d", len(msgs))
	}
}
