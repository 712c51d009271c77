package events

import "github.com/cpacia/colorswap/models"

// TypedNotification contains a single method which allows
// us to get the type of the notification. All notifications
// should implement this.
type TypedNotification interface {
	// Type returns the type of the notification.
	Type() string
}

type OfferNotification struct {
	ID      string           `json:"notificationID"`
	OfferID string           `json:"offerID"`
	Give    models.OfferSide `json:"give"`
	Want    models.OfferSide `json:"want"`
	Status  string           `json:"status"`
}

func (n *OfferNotification) Type() string { return "OfferNotification" }

type ProposalNotification struct {
	ID         string           `json:"notificationID"`
	ProposalID string           `json:"proposalID"`
	OfferID    string           `json:"offerID"`
	Give       models.OfferSide `json:"give"`
	Want       models.OfferSide `json:"want"`
	Role       Role             `json:"role"`
}

func (n *ProposalNotification) Type() string { return "ProposalNotification" }

type TradeNotification struct {
	ID         string           `json:"notificationID"`
	ProposalID string           `json:"proposalID"`
	Role       Role             `json:"role"`
	Give       models.OfferSide `json:"give"`
	Want       models.OfferSide `json:"want"`
	Txid       string           `json:"transactionID,omitempty"`
}

func (n *TradeNotification) Type() string { return "TradeNotification" }

type ProposalFailedNotification struct {
	ID         string `json:"notificationID"`
	ProposalID string `json:"proposalID"`
	OfferID    string `json:"offerID"`
	Error      string `json:"error"`
}

func (n *ProposalFailedNotification) Type() string { return "ProposalFailedNotification" }
