package trade

import (
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/net"
	"time"
)

// offerRegistry is a set of offers keyed by ID that remembers insertion
// order. Matching iterates in that order and the first match wins.
type offerRegistry struct {
	offers map[models.OfferID]*models.Offer
	order  []models.OfferID
}

func newOfferRegistry() *offerRegistry {
	return &offerRegistry{offers: make(map[models.OfferID]*models.Offer)}
}

// put inserts the offer or replaces one with the same ID in place.
func (r *offerRegistry) put(offer *models.Offer) {
	if _, ok := r.offers[offer.ID]; !ok {
		r.order = append(r.order, offer.ID)
	}
	r.offers[offer.ID] = offer
}

func (r *offerRegistry) get(id models.OfferID) (*models.Offer, bool) {
	offer, ok := r.offers[id]
	return offer, ok
}

func (r *offerRegistry) remove(id models.OfferID) bool {
	if _, ok := r.offers[id]; !ok {
		return false
	}
	delete(r.offers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *offerRegistry) list() []*models.Offer {
	ret := make([]*models.Offer, 0, len(r.order))
	for _, id := range r.order {
		ret = append(ret, r.offers[id])
	}
	return ret
}

func (r *offerRegistry) clones() []*models.Offer {
	ret := r.list()
	for i, offer := range ret {
		ret[i] = offer.Clone()
	}
	return ret
}

func (r *offerRegistry) len() int {
	return len(r.order)
}

// RegisterOwnOffer validates the offer and adds it to our offers. It is
// announced on the next tick. Both colors must be known to the ledger.
func (a *Agent) RegisterOwnOffer(offer *models.Offer) error {
	if err := offer.Validate(); err != nil {
		return err
	}
	for _, side := range []models.OfferSide{offer.A, offer.B} {
		if _, err := a.ledger.ResolveColorDescriptor(side.ColorDesc); err != nil {
			return err
		}
	}

	mine := offer.Clone()
	mine.Expires = time.Time{}

	a.mtx.Lock()
	a.myOffers.put(mine)
	a.offersChanged = true
	a.mtx.Unlock()

	log.Infof("Registered offer %s: %d of %q for %d of %q", mine.ID, mine.A.Value, mine.A.ColorDesc, mine.B.Value, mine.B.ColorDesc)
	a.bus.Emit(&events.OffersUpdated{Offer: mine.Clone()})
	a.bus.Emit(&events.OwnOfferRegistered{Offer: mine.Clone()})
	return nil
}

// CancelOwnOffer removes one of our offers. If the active proposal is
// built on the offer it is abandoned too.
func (a *Agent) CancelOwnOffer(id models.OfferID) error {
	a.mtx.Lock()
	offer, found := a.myOffers.get(id)
	if a.hasActiveProposal() && (a.active.Offer().ID == id || a.active.MyOffer().ID == id) {
		log.Infof("Abandoning proposal %s for cancelled offer %s", a.active.ID(), id)
		if !found {
			offer = a.active.MyOffer()
			found = true
		}
		a.clearActiveProposal()
	}
	if !found {
		a.mtx.Unlock()
		return ErrOfferNotFound
	}
	a.myOffers.remove(id)
	offer = offer.Clone()
	a.mtx.Unlock()

	log.Infof("Cancelled offer %s", id)
	a.bus.Emit(&events.OffersUpdated{Offer: offer})
	a.bus.Emit(&events.OwnOfferCancelled{Offer: offer})
	return nil
}

// registerForeignOffer records an offer announced by a peer. Every
// announcement refreshes it locally.
func (a *Agent) registerForeignOffer(offer *models.Offer) {
	if err := offer.Validate(); err != nil {
		log.Warningf("Dropping invalid offer %s: %s", offer.ID, err)
		return
	}

	if a.banned.IsBanned(offer.ID) {
		log.Debugf("Ignoring banned offer %s", offer.ID)
		return
	}

	a.mtx.Lock()
	if _, ok := a.myOffers.get(offer.ID); ok {
		a.mtx.Unlock()
		return
	}
	offer.Refresh(a.cfg.OfferTTL)
	a.theirOffers.put(offer)
	a.offersChanged = true
	a.mtx.Unlock()

	log.Debugf("Registered foreign offer %s", offer.ID)
	a.bus.Emit(&events.OffersUpdated{Offer: offer.Clone()})
}

// pruneForeignOffers drops foreign offers that were not announced
// again within their TTL plus the grace period.
func (a *Agent) pruneForeignOffers() {
	var q eventQueue
	defer a.emit(&q)

	a.mtx.Lock()
	defer a.mtx.Unlock()

	for _, offer := range a.theirOffers.list() {
		if offer.IsExpiredWithGrace(-a.cfg.OfferGrace) {
			a.theirOffers.remove(offer.ID)
			log.Debugf("Pruned stale foreign offer %s", offer.ID)
			q.push(&events.OffersUpdated{Offer: offer.Clone()})
		}
	}
}

// republishOwnOffers announces every offer of ours that expired, unless
// the active proposal is consuming it. An offer that was just refreshed
// is not sent again until its TTL runs out.
func (a *Agent) republishOwnOffers() {
	a.mtx.Lock()
	var activeOwn models.OfferID
	if a.hasActiveProposal() {
		activeOwn = a.active.MyOffer().ID
	}
	var msgs []*net.OfferMessage
	for _, offer := range a.myOffers.list() {
		if !offer.IsExpired() || offer.ID == activeOwn {
			continue
		}
		offer.Refresh(a.cfg.OfferTTL)
		msgs = append(msgs, net.NewOfferMessage(offer))
	}
	a.mtx.Unlock()

	for _, msg := range msgs {
		if err := a.transport.Send(msg); err != nil {
			log.Errorf("Error announcing offer %s: %s", msg.OfferID, err)
		}
	}
}

// retransmitActiveProposal sends the active proposal's current message
// again when the counterparty has been silent for a retransmit
// interval. Inbound messages are dropped while an agent is busy so this
// is how a lost step eventually gets through.
func (a *Agent) retransmitActiveProposal() {
	a.mtx.Lock()
	if a.state == stateBusy || !a.hasActiveProposal() || time.Since(a.lastSent) < a.cfg.ProposalRetransmitInterval {
		a.mtx.Unlock()
		return
	}
	p := a.active
	a.lastSent = time.Now()
	a.mtx.Unlock()

	log.Debugf("Retransmitting proposal %s", p.ID())
	a.sendProposal(p)
}
