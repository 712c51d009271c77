package trade

import (
	"context"
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/net"
	"github.com/op/go-logging"
	"sync"
	"time"
)

var log = logging.MustGetLogger("TRDE")

// Config holds the timing and fee parameters of an agent.
type Config struct {
	// OfferTTL is how long an announced offer stays live before it is
	// announced again. Foreign offers are refreshed by this amount on
	// every announcement.
	OfferTTL time.Duration

	// OfferGrace is how long a foreign offer is kept after it expired.
	OfferGrace time.Duration

	// ProposalTTL is how long a proposal may stay active before the
	// agent gives up on it.
	ProposalTTL time.Duration

	// ProposalRetransmitInterval is how often the active proposal's
	// current message is sent again.
	ProposalRetransmitInterval time.Duration

	// FeeTolerance is how far the uncolored delta of a transaction may
	// fall short of the negotiated amount to cover the network fee.
	FeeTolerance uint64

	// BanDuration is how long a foreign offer is ignored after its
	// counterparty sent us an invalid reply.
	BanDuration time.Duration
}

// DefaultConfig returns the default agent parameters.
func DefaultConfig() Config {
	return Config{
		OfferTTL:                   time.Second * 60,
		OfferGrace:                 time.Second * 15,
		ProposalTTL:                time.Second * 30,
		ProposalRetransmitInterval: time.Second * 10,
		FeeTolerance:               10000,
		BanDuration:                time.Minute * 10,
	}
}

type agentState int

const (
	stateIdle agentState = iota
	// stateBusy is held across the whole validate, sign and publish
	// sequence of an accept or finalize.
	stateBusy
)

// Agent matches our offers against offers seen on the relay and drives
// the resulting proposals to completion. The host calls Tick
// periodically. At most one proposal is active at a time.
type Agent struct {
	ledger    ledger.Ledger
	transport net.Transport
	bus       events.Bus
	cfg       Config
	banned    *BanManager

	// tickMtx serializes ticks. mtx guards everything below it and is
	// never held across a ledger or transport call.
	tickMtx sync.Mutex
	mtx     sync.Mutex

	state         agentState
	myOffers      *offerRegistry
	theirOffers   *offerRegistry
	active        Proposal
	activeExpiry  time.Time
	lastSent      time.Time
	offersChanged bool
}

// NewAgent returns a new idle agent.
func NewAgent(l ledger.Ledger, transport net.Transport, bus events.Bus, cfg Config) *Agent {
	return &Agent{
		ledger:      l,
		transport:   transport,
		bus:         bus,
		cfg:         cfg,
		banned:      NewBanManager(cfg.BanDuration),
		myOffers:    newOfferRegistry(),
		theirOffers: newOfferRegistry(),
	}
}

// Tick runs one round of the protocol. Inbound messages are dispatched
// first so a fresh proposal takes priority over starting a new one.
// Then offers are matched, our offers are republished, stale foreign
// offers are dropped and the active proposal is retransmitted if due.
func (a *Agent) Tick(ctx context.Context) {
	a.tickMtx.Lock()
	defer a.tickMtx.Unlock()

	msgs, err := a.transport.Receive()
	if err != nil {
		log.Errorf("Error receiving messages: %s", err)
	}
	for _, msg := range msgs {
		if err := a.DispatchMessage(ctx, msg); err != nil {
			log.Warningf("Error handling message %s: %s", msg.MessageID(), err)
		}
	}

	a.mtx.Lock()
	shouldMatch := a.state == stateIdle && !a.hasActiveProposal() && a.offersChanged
	if shouldMatch {
		a.offersChanged = false
	}
	a.mtx.Unlock()

	if shouldMatch {
		a.attemptMatch(ctx)
	}
	a.republishOwnOffers()
	a.pruneForeignOffers()
	a.retransmitActiveProposal()
}

// DispatchMessage routes one inbound message. Messages arriving while
// the agent is busy are dropped. The sender's retransmission delivers
// them again later.
func (a *Agent) DispatchMessage(ctx context.Context, msg net.Message) error {
	a.mtx.Lock()
	busy := a.state == stateBusy
	a.mtx.Unlock()
	if busy {
		log.Debugf("Dropping message %s while busy", msg.MessageID())
		return nil
	}

	switch m := msg.(type) {
	case *net.OfferMessage:
		a.registerForeignOffer(m.Offer())
		return nil
	case *net.ProposalMessage:
		return a.handleInboundProposal(ctx, m)
	default:
		return net.MalformedMessageError{Reason: "unknown message type"}
	}
}

// handleInboundProposal decides what an inbound proposal means to us:
// the next step of our active proposal, a request against one of our
// offers, or traffic about a deal we are not part of.
func (a *Agent) handleInboundProposal(ctx context.Context, msg *net.ProposalMessage) error {
	received := NewReceivedProposal(msg)

	var q eventQueue
	defer a.emit(&q)

	a.mtx.Lock()
	if a.state == stateBusy {
		a.mtx.Unlock()
		log.Debugf("Dropping proposal %s while busy", received.ID())
		return nil
	}

	if a.hasActiveProposal() && a.active.ID() == received.ID() {
		switch active := a.active.(type) {
		case *InitiatedProposal:
			if received.TxData() == "" || active.IsComplete() {
				a.mtx.Unlock()
				return nil
			}
			a.state = stateBusy
			a.mtx.Unlock()
			return a.finalizeProposal(ctx, active, received)

		case *ReplyProposal:
			if received.Spec() != nil {
				// The initiator has not seen our reply yet.
				a.lastSent = time.Now()
				a.mtx.Unlock()
				return a.sendProposal(active)
			}
			txid, err := active.CompletedBy(received)
			if err != nil {
				a.mtx.Unlock()
				log.Warningf("Ignoring completion notice for %s: %s", active.ID(), err)
				return nil
			}
			a.clearActiveProposal()
			a.mtx.Unlock()

			log.Infof("Trade %s completed by counterparty, txid %s", active.ID(), txid)
			q.push(&events.TradeCompleted{
				ProposalID: active.ID(),
				Role:       events.RoleResponder,
				Offer:      active.Offer().Clone(),
				MyOffer:    active.MyOffer().Clone(),
				Txid:       txid,
			})
			return nil
		}
	}

	if !a.hasActiveProposal() {
		if own, ok := a.myOffers.get(received.Offer().ID); ok {
			a.state = stateBusy
			own = own.Clone()
			a.mtx.Unlock()
			return a.acceptProposal(ctx, received, own)
		}
	}

	// Somebody else is working on this offer.
	if a.theirOffers.remove(received.Offer().ID) {
		q.push(&events.OffersUpdated{Offer: received.Offer()})
	}
	a.mtx.Unlock()
	return nil
}

// hasActiveProposal returns whether a proposal is active, clearing one
// that outlived its deadline. mtx must be held.
func (a *Agent) hasActiveProposal() bool {
	if a.active != nil && time.Now().After(a.activeExpiry) {
		log.Warningf("Proposal %s expired", a.active.ID())
		a.clearActiveProposal()
	}
	return a.active != nil
}

// setActiveProposal must be called with mtx held.
func (a *Agent) setActiveProposal(p Proposal) {
	a.active = p
	a.activeExpiry = time.Now().Add(a.cfg.ProposalTTL)
	a.lastSent = time.Now()
}

// clearActiveProposal must be called with mtx held.
// Offers bound to the proposal become matchable again.
func (a *Agent) clearActiveProposal() {
	a.active = nil
	a.activeExpiry = time.Time{}
	a.offersChanged = true
}

func (a *Agent) release() {
	a.mtx.Lock()
	a.state = stateIdle
	a.mtx.Unlock()
}

func (a *Agent) sendProposal(p Proposal) error {
	msg, err := p.Message()
	if err != nil {
		return err
	}
	if err := a.transport.Send(msg); err != nil {
		log.Errorf("Error sending proposal %s: %s", p.ID(), err)
		return err
	}
	return nil
}

// fail reports an abandoned proposal to the host.
func (a *Agent) fail(proposalID string, offer *models.Offer, err error) {
	log.Errorf("Proposal %s failed: %s", proposalID, err)
	a.bus.Emit(&events.ProposalFailed{
		ProposalID: proposalID,
		Offer:      offer,
		Err:        err,
	})
}

// MyOffers returns copies of our registered offers in insertion order.
func (a *Agent) MyOffers() []*models.Offer {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.myOffers.clones()
}

// TheirOffers returns copies of the live foreign offers in insertion
// order.
func (a *Agent) TheirOffers() []*models.Offer {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.theirOffers.clones()
}

// ActiveProposal returns the active proposal and its deadline, or nil
// if there is none.
func (a *Agent) ActiveProposal() (Proposal, time.Time) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if !a.hasActiveProposal() {
		return nil, time.Time{}
	}
	return a.active, a.activeExpiry
}

// eventQueue collects notifications while mtx is held so they can be
// emitted after it is released. A slow subscriber then never blocks
// the agent's lock.
type eventQueue []interface{}

func (q *eventQueue) push(evt interface{}) {
	*q = append(*q, evt)
}

func (a *Agent) emit(q *eventQueue) {
	for _, evt := range *q {
		a.bus.Emit(evt)
	}
	*q = nil
}
