package api

import (
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
	iwallet "github.com/cpacia/wallet-interface"
)

type mockNode struct {
	submitOwnOfferFunc         func(offer *models.Offer) error
	withdrawOwnOfferFunc       func(id models.OfferID) error
	offersFunc                 func() ([]*models.Offer, []*models.Offer)
	activeProposalFunc         func() (*models.ProposalSummary, error)
	getTradesFunc              func(limit int, offsetID string) ([]models.Trade, error)
	getNotificationsFunc       func(limit int, offsetID string) ([]models.NotificationRecord, error)
	markNotificationAsReadFunc func(notificationID string) error
	subscribeEventFunc         func(event interface{}) (events.Subscription, error)
	balancesFunc               func() (map[string]iwallet.Amount, error)
}

func (m *mockNode) SubmitOwnOffer(offer *models.Offer) error {
	return m.submitOwnOfferFunc(offer)
}
func (m *mockNode) WithdrawOwnOffer(id models.OfferID) error {
	return m.withdrawOwnOfferFunc(id)
}
func (m *mockNode) Offers() ([]*models.Offer, []*models.Offer) {
	return m.offersFunc()
}
func (m *mockNode) ActiveProposal() (*models.ProposalSummary, error) {
	return m.activeProposalFunc()
}
func (m *mockNode) GetTrades(limit int, offsetID string) ([]models.Trade, error) {
	return m.getTradesFunc(limit, offsetID)
}
func (m *mockNode) GetNotifications(limit int, offsetID string) ([]models.NotificationRecord, error) {
	return m.getNotificationsFunc(limit, offsetID)
}
func (m *mockNode) MarkNotificationAsRead(notificationID string) error {
	return m.markNotificationAsReadFunc(notificationID)
}
func (m *mockNode) SubscribeEvent(event interface{}) (events.Subscription, error) {
	return m.subscribeEventFunc(event)
}
func (m *mockNode) Balances() (map[string]iwallet.Amount, error) {
	return m.balancesFunc()
}
