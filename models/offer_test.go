package models

import (
	"testing"
	"time"
)

func TestOffer_Matches(t *testing.T) {
	var (
		gold   = OfferSide{ColorDesc: "epobc:gold:0:0", Value: 100}
		silver = OfferSide{ColorDesc: "epobc:silver:0:0", Value: 50}
		btc    = OfferSide{ColorDesc: "", Value: 5000}
	)

	tests := []struct {
		x, y     *Offer
		expected bool
	}{
		{ // mirror images match
			x:        NewOffer(gold, btc),
			y:        NewOffer(btc, gold),
			expected: true,
		},
		{ // same direction never matches
			x:        NewOffer(gold, btc),
			y:        NewOffer(gold, btc),
			expected: false,
		},
		{ // value mismatch
			x:        NewOffer(gold, btc),
			y:        NewOffer(OfferSide{Value: 4999}, gold),
			expected: false,
		},
		{ // color mismatch
			x:        NewOffer(gold, btc),
			y:        NewOffer(btc, silver),
			expected: false,
		},
	}

	for i, test := range tests {
		if test.x.Matches(test.y) != test.expected {
			t.Errorf("Test %d: expected %t", i, test.expected)
		}
		if test.y.Matches(test.x) != test.x.Matches(test.y) {
			t.Errorf("Test %d: match is not symmetric", i)
		}
	}
}

func TestOffer_MatchesIgnoresIDAndExpiry(t *testing.T) {
	x := NewOffer(OfferSide{ColorDesc: "a", Value: 1}, OfferSide{Value: 2})
	y := NewOffer(OfferSide{Value: 2}, OfferSide{ColorDesc: "a", Value: 1})
	x.Refresh(time.Hour)
	if !x.Matches(y) {
		t.Error("Expected offers to match")
	}

	z := x.Clone()
	z.ID = NewOfferID()
	if !z.IsSameAsMine(x) {
		t.Error("Expected offers to describe the same deal")
	}
}

func TestOffer_Validate(t *testing.T) {
	tests := []struct {
		offer    *Offer
		expected error
	}{
		{
			offer:    NewOffer(OfferSide{ColorDesc: "a", Value: 1}, OfferSide{Value: 2}),
			expected: nil,
		},
		{
			offer:    NewOffer(OfferSide{ColorDesc: "a", Value: 1}, OfferSide{ColorDesc: "a", Value: 2}),
			expected: ErrSameColorSides,
		},
		{
			offer:    NewOffer(OfferSide{ColorDesc: "a"}, OfferSide{}),
			expected: ErrZeroValueOffer,
		},
		{
			offer:    &Offer{A: OfferSide{ColorDesc: "a", Value: 1}, B: OfferSide{Value: 1}},
			expected: ErrMissingOfferID,
		},
	}

	for i, test := range tests {
		if err := test.offer.Validate(); err != test.expected {
			t.Errorf("Test %d: expected error %v, got %v", i, test.expected, err)
		}
	}
}

func TestOffer_Expiry(t *testing.T) {
	offer := NewOffer(OfferSide{ColorDesc: "a", Value: 1}, OfferSide{Value: 2})
	if !offer.IsExpired() {
		t.Error("New offer should be expired")
	}

	offer.Refresh(time.Minute)
	if offer.IsExpired() {
		t.Error("Refreshed offer should not be expired")
	}
	if !offer.IsExpiredWithGrace(2 * time.Minute) {
		t.Error("Offer should be expired two minutes from now")
	}

	offer.Expires = time.Now().Add(-time.Second * 10)
	if !offer.IsExpired() {
		t.Error("Offer should be expired")
	}
	if offer.IsExpiredWithGrace(-time.Minute) {
		t.Error("Offer should still be within its grace period")
	}
}
