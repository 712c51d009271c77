package models

import (
	"errors"
	"github.com/google/uuid"
	"time"
)

var (
	// ErrSameColorSides is returned when both sides of an offer use the same
	// color descriptor. Such an offer could never move value.
	ErrSameColorSides = errors.New("offer sides share a color descriptor")

	// ErrZeroValueOffer is returned when neither side of an offer carries value.
	ErrZeroValueOffer = errors.New("offer sides are both zero value")

	// ErrMissingOfferID is returned when an offer arrives without an ID.
	ErrMissingOfferID = errors.New("offer id missing")
)

// OfferID identifies an offer. It is stable for the lifetime of the
// offer so that peers recognize a reposted offer as the same one.
type OfferID string

// String returns the string representation of the ID.
func (id OfferID) String() string {
	return string(id)
}

// NewOfferID returns a new random offer ID.
func NewOfferID() OfferID {
	return OfferID(uuid.New().String())
}

// OfferSide is one leg of an offer: an amount of a single color. The
// value is denominated in the smallest unit of the color. An empty
// color descriptor denotes the uncolored base unit.
type OfferSide struct {
	ColorDesc string `json:"color_spec" mapstructure:"color_spec"`
	Value     uint64 `json:"value" mapstructure:"value"`
}

// IsUncolored returns whether this side is denominated in the base unit.
func (s OfferSide) IsUncolored() bool {
	return s.ColorDesc == ""
}

// Offer is a standing declaration that the author will give A in
// exchange for B.
type Offer struct {
	ID      OfferID   `json:"oid"`
	A       OfferSide `json:"A"`
	B       OfferSide `json:"B"`
	Expires time.Time `json:"-"`
}

// NewOffer returns a new offer with a random ID. The offer is created
// expired so that it is announced the first time the agent services
// its offers.
func NewOffer(give, want OfferSide) *Offer {
	return &Offer{
		ID: NewOfferID(),
		A:  give,
		B:  want,
	}
}

// Validate checks the structural invariants of the offer.
func (o *Offer) Validate() error {
	if o.ID == "" {
		return ErrMissingOfferID
	}
	if o.A.ColorDesc == o.B.ColorDesc {
		return ErrSameColorSides
	}
	if o.A.Value == 0 && o.B.Value == 0 {
		return ErrZeroValueOffer
	}
	return nil
}

// Refresh pushes the expiration ttl into the future.
func (o *Offer) Refresh(ttl time.Duration) {
	o.Expires = time.Now().Add(ttl)
}

// IsExpired returns true if the offer has no expiration set or the
// expiration is in the past.
func (o *Offer) IsExpired() bool {
	return o.IsExpiredWithGrace(0)
}

// IsExpiredWithGrace evaluates IsExpired shift into the future. A
// negative shift keeps an offer alive for that long past its expiration.
func (o *Offer) IsExpiredWithGrace(shift time.Duration) bool {
	return o.Expires.IsZero() || o.Expires.Before(time.Now().Add(shift))
}

// Matches returns whether this offer and other are mirror images of
// each other. Matching is exact and ignores the ID and expiration.
func (o *Offer) Matches(other *Offer) bool {
	return o.A == other.B && other.A == o.B
}

// IsSameAsMine returns whether both offers describe the same deal,
// ignoring the ID and expiration.
func (o *Offer) IsSameAsMine(mine *Offer) bool {
	return o.A == mine.A && o.B == mine.B
}

// Clone returns a copy of the offer.
func (o *Offer) Clone() *Offer {
	c := *o
	return &c
}
