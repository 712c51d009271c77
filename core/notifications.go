package core

import (
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"gorm.io/gorm"
)

// GetNotifications returns stored notifications newest first, paged
// the same way as GetTrades.
func (n *SwapNode) GetNotifications(limit int, offsetID string) ([]models.NotificationRecord, error) {
	records := []models.NotificationRecord{}
	if err := repo.PageNewestFirst(n.repo.DB(), &records, "id", limit, offsetID); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkNotificationAsRead flags the notification as read.
func (n *SwapNode) MarkNotificationAsRead(notificationID string) error {
	return n.repo.DB().Update(func(tx *gorm.DB) error {
		result := tx.Model(&models.NotificationRecord{}).Where("id = ?", notificationID).Update("is_read", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return coreiface.ErrNotFound
		}
		return nil
	})
}
