package trade

import (
	"context"
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
)

// attemptMatch looks for the first pair of our offer and a foreign
// offer that mirror each other and opens a proposal for it. Offers are
// scanned in insertion order. It returns whether a proposal was opened.
func (a *Agent) attemptMatch(ctx context.Context) bool {
	a.mtx.Lock()
	if a.state == stateBusy || a.hasActiveProposal() {
		a.mtx.Unlock()
		return false
	}
	var mine, theirs *models.Offer
outer:
	for _, my := range a.myOffers.list() {
		for _, their := range a.theirOffers.list() {
			if my.Matches(their) {
				mine, theirs = my.Clone(), their.Clone()
				break outer
			}
		}
	}
	a.mtx.Unlock()

	if mine == nil {
		return false
	}
	log.Infof("Offer %s matches foreign offer %s", mine.ID, theirs.ID)
	if err := a.initiateProposal(ctx, theirs, mine); err != nil {
		if err == ErrProposalAlreadyActive {
			log.Debugf("Skipping match: %s", err)
			return false
		}
		a.fail("", theirs, err)
		return false
	}
	return true
}

// initiateProposal asks the ledger for our side of the exchange and
// sends the opening proposal. We give what the foreign offer wants and
// want what it gives.
func (a *Agent) initiateProposal(ctx context.Context, theirs, mine *models.Offer) error {
	a.mtx.Lock()
	active := a.hasActiveProposal()
	a.mtx.Unlock()
	if active {
		return ErrProposalAlreadyActive
	}

	spec, err := a.ledger.BuildExchangeSpec(ctx, theirs.B, theirs.A)
	if err != nil {
		return err
	}
	proposal, err := NewInitiatedProposal(theirs, mine, spec)
	if err != nil {
		return err
	}

	a.mtx.Lock()
	if a.hasActiveProposal() {
		a.mtx.Unlock()
		return ErrProposalAlreadyActive
	}
	a.setActiveProposal(proposal)
	a.mtx.Unlock()

	log.Infof("Initiated proposal %s for offer %s", proposal.ID(), theirs.ID)
	a.sendProposal(proposal)
	a.bus.Emit(&events.ProposalInitiated{
		ProposalID: proposal.ID(),
		Offer:      theirs.Clone(),
		MyOffer:    mine.Clone(),
	})
	return nil
}
