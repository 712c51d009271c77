package trade

import (
	"context"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/net"
	iwallet "github.com/cpacia/wallet-interface"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Proposal is a negotiation this agent is a party to. It is always
// bound to the offer being taken, which from the initiator's side is
// the counterparty's offer and from the responder's side its own.
type Proposal interface {
	// ID returns the proposal ID shared by both parties.
	ID() string

	// Offer returns the bound offer.
	Offer() *models.Offer

	// MyOffer returns our own offer consumed by this proposal.
	MyOffer() *models.Offer

	// Message returns the wire form of our current step.
	Message() (*net.ProposalMessage, error)
}

// InitiatedProposal is a proposal we opened after matching one of our
// offers against a foreign one. It carries our exchange spec until a
// reply is processed and the final transaction after that.
type InitiatedProposal struct {
	id      string
	offer   *models.Offer
	myOffer *models.Offer
	spec    *models.TransactionSpec
	txData  string
	txid    iwallet.TransactionID
}

// NewInitiatedProposal returns a proposal to take offer with myOffer.
// ErrIncongruentOffers is returned if the offers do not match.
func NewInitiatedProposal(offer, myOffer *models.Offer, spec *models.TransactionSpec) (*InitiatedProposal, error) {
	if !offer.Matches(myOffer) {
		return nil, ErrIncongruentOffers
	}
	return &InitiatedProposal{
		id:      uuid.New().String(),
		offer:   offer,
		myOffer: myOffer,
		spec:    spec,
	}, nil
}

func (p *InitiatedProposal) ID() string                    { return p.id }
func (p *InitiatedProposal) Offer() *models.Offer          { return p.offer }
func (p *InitiatedProposal) MyOffer() *models.Offer        { return p.myOffer }
func (p *InitiatedProposal) Spec() *models.TransactionSpec { return p.spec }

// Txid returns the ID of the published transaction, if any.
func (p *InitiatedProposal) Txid() iwallet.TransactionID { return p.txid }

// IsComplete returns whether the reply was processed and published.
func (p *InitiatedProposal) IsComplete() bool { return p.txData != "" }

// Message returns the opening request, or the completion notice once
// the transaction is published.
func (p *InitiatedProposal) Message() (*net.ProposalMessage, error) {
	msg := &net.ProposalMessage{
		ProposalID: p.id,
		Offer:      net.NewOfferPayload(p.offer),
	}
	if p.txData != "" {
		msg.TxData = p.txData
	} else {
		msg.Spec = p.spec
	}
	return msg, nil
}

// ProcessReply finishes the negotiation. The reply transaction is
// signed with our keys, checked against the deltas our own offer
// promised and published. Nothing is published if any step fails.
func (p *InitiatedProposal) ProcessReply(ctx context.Context, l ledger.Ledger, reply *ReceivedProposal, feeTolerance uint64) error {
	if p.IsComplete() {
		return errors.New("proposal already completed")
	}
	if reply.ID() != p.id {
		return InvalidProposalError{"reply is for a different proposal"}
	}
	if !reply.Offer().IsSameAsMine(p.offer) {
		return InvalidProposalError{"reply is bound to a different offer"}
	}
	if reply.TxData() == "" {
		return InvalidProposalError{"reply carries no transaction"}
	}
	tx, err := ledger.DecodeTransaction(reply.TxData())
	if err != nil {
		return InvalidProposalError{err.Error()}
	}

	signed, err := l.CompleteSigning(ctx, tx)
	if err != nil {
		return err
	}
	if !signed.IsFullySigned() {
		return InvalidProposalError{"transaction is not fully signed"}
	}
	ok, err := l.SatisfiesNegotiatedDeltas(ctx, signed, models.ExpectedDeltas(p.myOffer), feeTolerance)
	if err != nil {
		return err
	}
	if !ok {
		return InvalidProposalError{"transaction does not satisfy the negotiated deltas"}
	}

	txData, err := signed.Hex()
	if err != nil {
		return err
	}
	txid, err := l.Publish(ctx, signed)
	if err != nil {
		return err
	}
	p.txData = txData
	p.txid = txid
	return nil
}

// ReceivedProposal is a proposal reconstructed from a counterparty
// message.
type ReceivedProposal struct {
	id     string
	offer  *models.Offer
	spec   *models.TransactionSpec
	txData string
}

// NewReceivedProposal wraps an inbound proposal message.
func NewReceivedProposal(msg *net.ProposalMessage) *ReceivedProposal {
	return &ReceivedProposal{
		id:     msg.ProposalID,
		offer:  msg.Offer.Offer(),
		spec:   msg.Spec,
		txData: msg.TxData,
	}
}

func (p *ReceivedProposal) ID() string                    { return p.id }
func (p *ReceivedProposal) Offer() *models.Offer          { return p.offer }
func (p *ReceivedProposal) Spec() *models.TransactionSpec { return p.spec }
func (p *ReceivedProposal) TxData() string                { return p.txData }

// Accept builds and signs our side of the transaction requested by the
// counterparty's spec.
func (p *ReceivedProposal) Accept(ctx context.Context, l ledger.Ledger, myOffer *models.Offer) (*ReplyProposal, error) {
	tx, err := l.BuildAndSignReply(ctx, p.spec, myOffer.A, myOffer.B)
	if err != nil {
		return nil, err
	}
	return &ReplyProposal{
		id:      p.id,
		offer:   p.offer,
		myOffer: myOffer,
		tx:      tx,
	}, nil
}

// ReplyProposal is our signed answer to a ReceivedProposal.
type ReplyProposal struct {
	id      string
	offer   *models.Offer
	myOffer *models.Offer
	tx      *ledger.Transaction
}

func (p *ReplyProposal) ID() string                       { return p.id }
func (p *ReplyProposal) Offer() *models.Offer             { return p.offer }
func (p *ReplyProposal) MyOffer() *models.Offer           { return p.myOffer }
func (p *ReplyProposal) Transaction() *ledger.Transaction { return p.tx }

// Message returns the reply carrying our partially signed transaction.
func (p *ReplyProposal) Message() (*net.ProposalMessage, error) {
	txData, err := p.tx.Hex()
	if err != nil {
		return nil, err
	}
	return &net.ProposalMessage{
		ProposalID: p.id,
		Offer:      net.NewOfferPayload(p.offer),
		TxData:     txData,
	}, nil
}

// CompletedBy checks that received carries the fully signed version of
// our reply and returns its txid. The signatures we contributed must be
// unchanged.
func (p *ReplyProposal) CompletedBy(received *ReceivedProposal) (string, error) {
	if received.TxData() == "" {
		return "", InvalidProposalError{"completion notice carries no transaction"}
	}
	tx, err := ledger.DecodeTransaction(received.TxData())
	if err != nil {
		return "", InvalidProposalError{err.Error()}
	}
	if !tx.IsFullySigned() {
		return "", InvalidProposalError{"completed transaction is not fully signed"}
	}
	txid, err := tx.Txid()
	if err != nil {
		return "", InvalidProposalError{err.Error()}
	}
	ours, err := p.tx.Txid()
	if err != nil {
		return "", err
	}
	if txid != ours {
		return "", InvalidProposalError{"completed transaction differs from our reply"}
	}
	for i, in := range p.tx.Inputs {
		if in.IsSigned() && (tx.Inputs[i].Signature != in.Signature || tx.Inputs[i].PubKey != in.PubKey) {
			return "", InvalidProposalError{"completed transaction alters our signatures"}
		}
	}
	return txid, nil
}
