package api

import (
	"errors"
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/cpacia/colorswap/models"
	"net/http"
	"testing"
	"time"
)

func TestNotificationHandlers(t *testing.T) {
	records := []models.NotificationRecord{
		{
			ID:         "abc",
			Timestamp:  time.Date(2020, 10, 1, 12, 0, 0, 0, time.UTC),
			Type:       "TradeNotification",
			Serialized: []byte(`{"notificationID":"abc","txid":"9c2e4d8f"}`),
		},
	}

	runAPITests(t, apiTests{
		{
			name:   "Get notifications",
			path:   "/v1/notifications?limit=10",
			method: http.MethodGet,
			setNodeMethods: func(n *mockNode) {
				n.getNotificationsFunc = func(limit int, offsetID string) ([]models.NotificationRecord, error) {
					if limit != 10 {
						return nil, errors.New("limit error")
					}
					return records, nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				return marshalAndSanitizeJSON(records)
			},
		},
		{
			name:   "Mark notification as read",
			path:   "/v1/notifications/abc/read",
			method: http.MethodPost,
			setNodeMethods: func(n *mockNode) {
				n.markNotificationAsReadFunc = func(notificationID string) error {
					if notificationID != "abc" {
						return errors.New("wrong id")
					}
					return nil
				}
			},
			statusCode: http.StatusOK,
			expectedResponse: func() ([]byte, error) {
				return []byte("{}"), nil
			},
		},
		{
			name:   "Mark notification as read not found",
			path:   "/v1/notifications/xyz/read",
			method: http.MethodPost,
			setNodeMethods: func(n *mockNode) {
				n.markNotificationAsReadFunc = func(notificationID string) error {
					return coreiface.ErrNotFound
				}
			},
			statusCode: http.StatusNotFound,
			expectedResponse: func() ([]byte, error) {
				return []byte(wrapError(coreiface.ErrNotFound) + "\n"), nil
			},
		},
	})
}
