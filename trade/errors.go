package trade

import (
	"fmt"
	"github.com/pkg/errors"
)

var (
	// ErrIncongruentOffers is returned when a proposal is built from two
	// offers that do not match each other.
	ErrIncongruentOffers = errors.New("offers are incongruent")

	// ErrProposalAlreadyActive is returned when a proposal is initiated
	// while another one is still in progress. Try again later.
	ErrProposalAlreadyActive = errors.New("a proposal is already active")

	// ErrOfferNotFound is returned when cancelling an offer that is not
	// registered.
	ErrOfferNotFound = errors.New("offer not found")
)

// InvalidProposalError means a counterparty message failed structural
// or value validation. It is treated as hostile: the proposal is
// abandoned and nothing is signed away or published.
type InvalidProposalError struct {
	Reason string
}

func (e InvalidProposalError) Error() string {
	return fmt.Sprintf("invalid proposal: %s", e.Reason)
}

// IsInvalidProposal returns whether err is, or wraps, an
// InvalidProposalError.
func IsInvalidProposal(err error) bool {
	var ipe InvalidProposalError
	return errors.As(err, &ipe)
}
