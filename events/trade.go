package events

import "github.com/cpacia/colorswap/models"

// Role is the part an agent played in a trade.
type Role string

const (
	// RoleInitiator is the agent that matched the offers and sent the
	// first proposal.
	RoleInitiator Role = "initiator"
	// RoleResponder is the agent whose standing offer was taken.
	RoleResponder Role = "responder"
)

// OffersUpdated fires whenever either offer registry changes. Offer is
// the offer that changed, or nil when several were cleared at once.
type OffersUpdated struct {
	Offer *models.Offer
}

// OwnOfferRegistered fires when the host submits a new offer.
type OwnOfferRegistered struct {
	Offer *models.Offer
}

// OwnOfferCancelled fires when the host withdraws an offer.
type OwnOfferCancelled struct {
	Offer *models.Offer
}

// ProposalInitiated fires when this agent matched a foreign offer and
// sent the opening proposal.
type ProposalInitiated struct {
	ProposalID string
	Offer      *models.Offer
	MyOffer    *models.Offer
}

// ProposalAccepted fires when this agent signed and sent a reply to a
// proposal against one of its offers.
type ProposalAccepted struct {
	ProposalID string
	Offer      *models.Offer
	MyOffer    *models.Offer
}

// TradeCompleted fires when a negotiated transaction was published (as
// initiator) or the initiator's completion notice arrived (as responder).
type TradeCompleted struct {
	ProposalID string
	Role       Role
	Offer      *models.Offer
	MyOffer    *models.Offer
	Txid       string
}

// ProposalFailed fires when a proposal was abandoned because of a
// ledger failure or an invalid counterparty message.
type ProposalFailed struct {
	ProposalID string
	Offer      *models.Offer
	Err        error
}

// TransportError fires when the background relay loop fails to poll or
// post. The loop keeps running and retries on the next interval.
type TransportError struct {
	Err error
}
