package ledger

import (
	"encoding/hex"
	"encoding/json"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cpacia/colorswap/models"
	"github.com/pkg/errors"
)

// TxInput spends a previous output. PubKey and Signature are hex
// encoded and empty until the owner of the output signs.
type TxInput struct {
	Prev      models.UTXORef `json:"prev"`
	PubKey    string         `json:"pubkey,omitempty"`
	Signature string         `json:"sig,omitempty"`
}

// IsSigned returns whether the input carries a signature.
func (in TxInput) IsSigned() bool {
	return in.Signature != ""
}

// TxOutput pays value of a color to an address.
type TxOutput struct {
	Address   string `json:"address"`
	ColorDesc string `json:"color"`
	Value     uint64 `json:"value"`
}

// Transaction is a colored transaction as passed between the agent
// and the ledger. On the wire it travels hex encoded as etx_data.
type Transaction struct {
	Inputs  []TxInput  `json:"inputs"`
	Outputs []TxOutput `json:"outputs"`
}

// Clone returns a deep copy of the transaction.
func (tx *Transaction) Clone() *Transaction {
	c := &Transaction{
		Inputs:  make([]TxInput, len(tx.Inputs)),
		Outputs: make([]TxOutput, len(tx.Outputs)),
	}
	copy(c.Inputs, tx.Inputs)
	copy(c.Outputs, tx.Outputs)
	return c
}

// IsFullySigned returns whether every input carries a signature.
func (tx *Transaction) IsFullySigned() bool {
	for _, in := range tx.Inputs {
		if !in.IsSigned() {
			return false
		}
	}
	return len(tx.Inputs) > 0
}

// SigHash returns the hash committed to by every input signature. It
// covers the transaction with all signature data stripped.
func (tx *Transaction) SigHash() (chainhash.Hash, error) {
	stripped := tx.Clone()
	for i := range stripped.Inputs {
		stripped.Inputs[i].PubKey = ""
		stripped.Inputs[i].Signature = ""
	}
	ser, err := json.Marshal(stripped)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return chainhash.DoubleHashH(ser), nil
}

// Txid returns the transaction ID. It is the sighash so it does not
// change as signatures are added.
func (tx *Transaction) Txid() (string, error) {
	h, err := tx.SigHash()
	if err != nil {
		return "", err
	}
	return h.String(), nil
}

// Hex serializes the transaction for the wire.
func (tx *Transaction) Hex() (string, error) {
	ser, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ser), nil
}

// DecodeTransaction parses a hex encoded transaction.
func DecodeTransaction(s string) (*Transaction, error) {
	ser, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidTransaction, err.Error())
	}
	var tx Transaction
	if err := json.Unmarshal(ser, &tx); err != nil {
		return nil, errors.Wrap(ErrInvalidTransaction, err.Error())
	}
	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return nil, errors.Wrap(ErrInvalidTransaction, "transaction has no inputs or outputs")
	}
	return &tx, nil
}
