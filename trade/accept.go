package trade

import (
	"context"
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
)

// acceptProposal answers a request against one of our offers with our
// signed half of the transaction. The caller has already set the agent
// busy. Nothing is sent unless the reply moves our funds exactly as our
// offer promised.
func (a *Agent) acceptProposal(ctx context.Context, received *ReceivedProposal, own *models.Offer) error {
	defer a.release()

	if !received.Offer().IsSameAsMine(own) {
		err := InvalidProposalError{"bound offer does not match our offer"}
		a.fail(received.ID(), received.Offer(), err)
		return err
	}
	if received.Spec().IsEmpty() {
		err := InvalidProposalError{"missing exchange spec"}
		a.fail(received.ID(), received.Offer(), err)
		return err
	}

	reply, err := received.Accept(ctx, a.ledger, own)
	if err != nil {
		a.fail(received.ID(), received.Offer(), err)
		return err
	}
	ok, err := a.ledger.SatisfiesNegotiatedDeltas(ctx, reply.Transaction(), models.ExpectedDeltas(own), a.cfg.FeeTolerance)
	if err != nil {
		a.fail(received.ID(), received.Offer(), err)
		return err
	}
	if !ok {
		err := InvalidProposalError{"reply does not satisfy the negotiated deltas"}
		a.fail(received.ID(), received.Offer(), err)
		return err
	}

	a.mtx.Lock()
	if _, ok := a.myOffers.get(own.ID); !ok {
		a.mtx.Unlock()
		log.Warningf("Offer %s was withdrawn while accepting proposal %s, discarding reply", own.ID, received.ID())
		return nil
	}
	a.setActiveProposal(reply)
	a.myOffers.remove(own.ID)
	a.mtx.Unlock()

	log.Infof("Accepted proposal %s for offer %s", reply.ID(), own.ID)
	a.sendProposal(reply)
	a.bus.Emit(&events.OffersUpdated{Offer: own.Clone()})
	a.bus.Emit(&events.ProposalAccepted{
		ProposalID: reply.ID(),
		Offer:      received.Offer().Clone(),
		MyOffer:    own.Clone(),
	})
	return nil
}
