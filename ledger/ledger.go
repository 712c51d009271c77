package ledger

import (
	"context"
	"github.com/cpacia/colorswap/models"
	iwallet "github.com/cpacia/wallet-interface"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("LDGR")

// ColorDefinition describes a color as resolved by the ledger.
type ColorDefinition struct {
	Desc         string `json:"desc"`
	Name         string `json:"name"`
	Divisibility uint8  `json:"divisibility"`
}

// IsUncolored returns whether this is the base unit of the ledger.
func (d ColorDefinition) IsUncolored() bool {
	return d.Desc == ""
}

// Ledger is the interface the negotiation engine uses to build, sign,
// validate and broadcast the joint transaction. Implementations own the
// keys and the coin selection. Nothing here is ever called while the
// agent holds its registry lock so implementations are free to block.
type Ledger interface {
	// ResolveColorDescriptor returns the definition of the color with
	// the given descriptor or ErrUnknownColor.
	ResolveColorDescriptor(desc string) (ColorDefinition, error)

	// BuildExchangeSpec selects inputs worth give and a target paying
	// want to one of our addresses, plus any change. If give is in the
	// uncolored unit the fee is funded as well.
	BuildExchangeSpec(ctx context.Context, give, want models.OfferSide) (*models.TransactionSpec, error)

	// BuildAndSignReply merges the counterparty's spec with our own
	// legs (inputs worth give, a target paying want to us) and signs
	// our inputs. The counterparty's inputs are left unsigned.
	BuildAndSignReply(ctx context.Context, spec *models.TransactionSpec, give, want models.OfferSide) (*Transaction, error)

	// CompleteSigning signs every input of the transaction we own.
	CompleteSigning(ctx context.Context, tx *Transaction) (*Transaction, error)

	// SatisfiesNegotiatedDeltas returns whether the transaction changes
	// our holdings exactly as promised. The uncolored unit may fall
	// short by up to feeTolerance to cover the fee.
	SatisfiesNegotiatedDeltas(ctx context.Context, tx *Transaction, deltas []models.ColorDelta, feeTolerance uint64) (bool, error)

	// Publish broadcasts the fully signed transaction.
	Publish(ctx context.Context, tx *Transaction) (iwallet.TransactionID, error)

	// Balances returns our spendable balance per color descriptor.
	Balances() (map[string]iwallet.Amount, error)
}
