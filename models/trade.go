package models

import "time"

// Trade is a completed swap as recorded in the trade history. It is
// written once the trade completes and never updated. Negotiation
// state is deliberately not stored.
type Trade struct {
	ProposalID string    `gorm:"primaryKey" json:"proposalID"`
	Role       string    `gorm:"index" json:"role"`
	OfferID    string    `json:"offerID"`
	GiveColor  string    `json:"giveColor"`
	GiveValue  uint64    `json:"giveValue"`
	WantColor  string    `json:"wantColor"`
	WantValue  uint64    `json:"wantValue"`
	Txid       string    `json:"transactionID"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}

// NewTrade builds a trade record for myOffer being filled by the
// transaction txid.
func NewTrade(proposalID, role string, myOffer *Offer, txid string) *Trade {
	return &Trade{
		ProposalID: proposalID,
		Role:       role,
		OfferID:    myOffer.ID.String(),
		GiveColor:  myOffer.A.ColorDesc,
		GiveValue:  myOffer.A.Value,
		WantColor:  myOffer.B.ColorDesc,
		WantValue:  myOffer.B.Value,
		Txid:       txid,
		Timestamp:  time.Now(),
	}
}
