package trade

import (
	"context"
	"github.com/cpacia/colorswap/events"
)

// finalizeProposal completes our active proposal with the
// counterparty's reply. The caller has already set the agent busy. On
// success the transaction is published, the completed proposal is sent
// back as a completion notice and both consumed offers are dropped.
func (a *Agent) finalizeProposal(ctx context.Context, active *InitiatedProposal, received *ReceivedProposal) error {
	defer a.release()

	if err := active.ProcessReply(ctx, a.ledger, received, a.cfg.FeeTolerance); err != nil {
		a.mtx.Lock()
		if a.active == Proposal(active) {
			a.clearActiveProposal()
		}
		if IsInvalidProposal(err) {
			a.theirOffers.remove(active.Offer().ID)
			a.banned.Ban(active.Offer().ID)
		}
		a.mtx.Unlock()

		a.fail(active.ID(), active.Offer(), err)
		return err
	}

	a.mtx.Lock()
	a.myOffers.remove(active.MyOffer().ID)
	a.theirOffers.remove(active.Offer().ID)
	if a.active == Proposal(active) {
		a.clearActiveProposal()
	}
	a.mtx.Unlock()

	log.Infof("Trade %s completed, published transaction %s", active.ID(), active.Txid())
	a.sendProposal(active)
	a.bus.Emit(&events.OffersUpdated{})
	a.bus.Emit(&events.TradeCompleted{
		ProposalID: active.ID(),
		Role:       events.RoleInitiator,
		Offer:      active.Offer().Clone(),
		MyOffer:    active.MyOffer().Clone(),
		Txid:       string(active.Txid()),
	})
	return nil
}
