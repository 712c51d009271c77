package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UTXORef points at a transaction output: [txHash, outputIndex] on the wire.
type UTXORef struct {
	TxHash string
	Index  uint32
}

// MarshalJSON encodes the reference as a two element array.
func (u UTXORef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{u.TxHash, u.Index})
}

// UnmarshalJSON decodes a two element array.
func (u *UTXORef) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return errors.New("utxo reference must have two elements")
	}
	if err := json.Unmarshal(raw[0], &u.TxHash); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &u.Index)
}

// String returns the outpoint in txhash:index form.
func (u UTXORef) String() string {
	return fmt.Sprintf("%s:%d", u.TxHash, u.Index)
}

// Target is a desired payout: [address, colorDescriptor, value] on the wire.
type Target struct {
	Address   string
	ColorDesc string
	Value     uint64
}

// MarshalJSON encodes the target as a three element array.
func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{t.Address, t.ColorDesc, t.Value})
}

// UnmarshalJSON decodes a three element array.
func (t *Target) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return errors.New("target must have three elements")
	}
	if err := json.Unmarshal(raw[0], &t.Address); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &t.ColorDesc); err != nil {
		return err
	}
	return json.Unmarshal(raw[2], &t.Value)
}

// TransactionSpec is one party's funding and payout legs for a joint
// transaction before it is merged with the counterparty's legs.
type TransactionSpec struct {
	Inputs  map[string][]UTXORef `json:"inputs"`
	Targets []Target             `json:"targets"`
}

// IsEmpty returns true if the spec funds nothing or pays nothing.
func (s *TransactionSpec) IsEmpty() bool {
	if s == nil || len(s.Targets) == 0 {
		return true
	}
	for _, refs := range s.Inputs {
		if len(refs) > 0 {
			return false
		}
	}
	return true
}

// ColorDelta is the expected net change of one color for one party.
type ColorDelta struct {
	ColorDesc string
	Value     int64
}

// ExpectedDeltas returns the net changes the author of the offer must
// see in a transaction that fulfils it: A leaves, B arrives.
func ExpectedDeltas(offer *Offer) []ColorDelta {
	return []ColorDelta{
		{ColorDesc: offer.A.ColorDesc, Value: -int64(offer.A.Value)},
		{ColorDesc: offer.B.ColorDesc, Value: int64(offer.B.Value)},
	}
}
