package models

import "time"

// ProposalSummary describes the active proposal for display.
type ProposalSummary struct {
	ProposalID string    `json:"proposalID"`
	Role       string    `json:"role"`
	Stage      string    `json:"stage"`
	OfferID    string    `json:"offerID"`
	MyOfferID  string    `json:"myOfferID"`
	Give       OfferSide `json:"give"`
	Want       OfferSide `json:"want"`
	Expires    time.Time `json:"expires"`
}
