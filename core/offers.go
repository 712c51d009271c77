package core

import (
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/trade"
	iwallet "github.com/cpacia/wallet-interface"
	"time"
)

// SubmitOwnOffer registers an offer of ours. It is announced on the
// relay on the next tick.
func (n *SwapNode) SubmitOwnOffer(offer *models.Offer) error {
	if err := n.agent.RegisterOwnOffer(offer); err != nil {
		return apiError(err)
	}
	log.Infof("Registered offer %s: give %d %q for %d %q", offer.ID, offer.A.Value, offer.A.ColorDesc, offer.B.Value, offer.B.ColorDesc)
	return nil
}

// WithdrawOwnOffer removes one of our offers. A proposal in progress
// against it is abandoned.
func (n *SwapNode) WithdrawOwnOffer(id models.OfferID) error {
	return apiError(n.agent.CancelOwnOffer(id))
}

// Offers returns copies of our offers and of the live foreign offers.
func (n *SwapNode) Offers() (mine []*models.Offer, theirs []*models.Offer) {
	return n.agent.MyOffers(), n.agent.TheirOffers()
}

// ActiveProposal describes the proposal currently in flight or returns
// ErrNoActiveProposal.
func (n *SwapNode) ActiveProposal() (*models.ProposalSummary, error) {
	proposal, expires := n.agent.ActiveProposal()
	if proposal == nil {
		return nil, coreiface.ErrNoActiveProposal
	}
	return summarizeProposal(proposal, expires), nil
}

// Balances returns the ledger balance of every color we hold.
func (n *SwapNode) Balances() (map[string]iwallet.Amount, error) {
	return n.ledger.Balances()
}

func summarizeProposal(proposal trade.Proposal, expires time.Time) *models.ProposalSummary {
	summary := &models.ProposalSummary{
		ProposalID: proposal.ID(),
		Expires:    expires,
	}
	if offer := proposal.Offer(); offer != nil {
		summary.OfferID = offer.ID.String()
	}
	if myOffer := proposal.MyOffer(); myOffer != nil {
		summary.MyOfferID = myOffer.ID.String()
		summary.Give = myOffer.A
		summary.Want = myOffer.B
	}

	switch p := proposal.(type) {
	case *trade.InitiatedProposal:
		summary.Role = "initiator"
		summary.Stage = "awaiting reply"
		if p.IsComplete() {
			summary.Stage = "published"
		}
	case *trade.ReplyProposal:
		summary.Role = "responder"
		summary.Stage = "awaiting completion"
	}
	return summary
}
