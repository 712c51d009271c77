package coreiface

import (
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
	iwallet "github.com/cpacia/wallet-interface"
)

// CoreIface enumerates the interface of the SwapNode object in the Core package.
// We primarily use this to get around circular imports though it should serve as the API
// contract for the Core package.
type CoreIface interface {
	// Offers
	SubmitOwnOffer(offer *models.Offer) error
	WithdrawOwnOffer(id models.OfferID) error
	Offers() (mine []*models.Offer, theirs []*models.Offer)

	// Negotiation
	ActiveProposal() (*models.ProposalSummary, error)
	GetTrades(limit int, offsetID string) ([]models.Trade, error)

	// Notifications
	GetNotifications(limit int, offsetID string) ([]models.NotificationRecord, error)
	MarkNotificationAsRead(notificationID string) error
	SubscribeEvent(event interface{}) (events.Subscription, error)

	// Ledger
	Balances() (map[string]iwallet.Amount, error)
}
