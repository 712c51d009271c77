package net

import (
	"encoding/json"
	"fmt"
	"github.com/cpacia/colorswap/models"
	"github.com/mitchellh/mapstructure"
	"reflect"
)

// Message is a decoded relay message. It is either an *OfferMessage or
// a *ProposalMessage.
type Message interface {
	// MessageID returns the relay level msgid. It is assigned by the
	// transport when the message is sent.
	MessageID() string

	// SetMessageID sets the msgid.
	SetMessageID(id string)
}

// MalformedMessageError is returned when relay content cannot be
// decoded into a Message.
type MalformedMessageError struct {
	Reason string
}

func (e MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %s", e.Reason)
}

// OfferPayload is the wire form of an offer.
type OfferPayload struct {
	OfferID string           `json:"oid" mapstructure:"oid"`
	A       models.OfferSide `json:"A" mapstructure:"A"`
	B       models.OfferSide `json:"B" mapstructure:"B"`
}

// NewOfferPayload returns the wire form of the offer.
func NewOfferPayload(offer *models.Offer) OfferPayload {
	return OfferPayload{
		OfferID: offer.ID.String(),
		A:       offer.A,
		B:       offer.B,
	}
}

// Offer converts the payload into an offer with no expiration set.
func (p OfferPayload) Offer() *models.Offer {
	return &models.Offer{
		ID: models.OfferID(p.OfferID),
		A:  p.A,
		B:  p.B,
	}
}

// OfferMessage announces an offer.
type OfferMessage struct {
	MsgID        string `json:"msgid,omitempty" mapstructure:"msgid"`
	OfferPayload `mapstructure:",squash"`
}

// NewOfferMessage returns a message announcing offer.
func NewOfferMessage(offer *models.Offer) *OfferMessage {
	return &OfferMessage{OfferPayload: NewOfferPayload(offer)}
}

// MessageID returns the msgid.
func (m *OfferMessage) MessageID() string { return m.MsgID }

// SetMessageID sets the msgid.
func (m *OfferMessage) SetMessageID(id string) { m.MsgID = id }

// ProposalMessage carries one step of a negotiation. Exactly one of
// Spec and TxData is set: the initial request carries the exchange
// spec, the reply and the completion notice carry the transaction.
type ProposalMessage struct {
	MsgID      string                  `json:"msgid,omitempty" mapstructure:"msgid"`
	ProposalID string                  `json:"pid" mapstructure:"pid"`
	Offer      OfferPayload            `json:"offer" mapstructure:"offer"`
	Spec       *models.TransactionSpec `json:"etx_spec,omitempty" mapstructure:"etx_spec"`
	TxData     string                  `json:"etx_data,omitempty" mapstructure:"etx_data"`
}

// MessageID returns the msgid.
func (m *ProposalMessage) MessageID() string { return m.MsgID }

// SetMessageID sets the msgid.
func (m *ProposalMessage) SetMessageID(id string) { m.MsgID = id }

var jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

// jsonUnmarshalerHook lets types with a custom JSON form, such as the
// array encoded UTXORef, decode from generic content.
func jsonUnmarshalerHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from == to || to.Kind() == reflect.Ptr || !reflect.PtrTo(to).Implements(jsonUnmarshalerType) {
		return data, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	v := reflect.New(to)
	if err := json.Unmarshal(b, v.Interface()); err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}

// DecodeMessage converts generic relay content into a typed message.
// Proposals are recognized by a pid field, offers by an oid field.
func DecodeMessage(content map[string]interface{}) (Message, error) {
	var msg Message
	if _, ok := content["pid"]; ok {
		msg = &ProposalMessage{}
	} else if _, ok := content["oid"]; ok {
		msg = &OfferMessage{}
	} else {
		return nil, MalformedMessageError{"neither pid nor oid present"}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: jsonUnmarshalerHook,
		Result:     msg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(content); err != nil {
		return nil, MalformedMessageError{err.Error()}
	}

	switch m := msg.(type) {
	case *OfferMessage:
		if m.OfferID == "" {
			return nil, MalformedMessageError{"empty oid"}
		}
	case *ProposalMessage:
		if m.ProposalID == "" || m.Offer.OfferID == "" {
			return nil, MalformedMessageError{"empty pid or offer oid"}
		}
		if (m.Spec == nil) == (m.TxData == "") {
			return nil, MalformedMessageError{"proposal must carry exactly one of etx_spec and etx_data"}
		}
	}
	return msg, nil
}
