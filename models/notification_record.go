package models

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"time"
)

// NotificationRecord encapsulates one notification with additional
// metadata. The actual notification is serialized as JSON so as to
// make this model suitable for the database. It may also be sent over
// the websocket API in this format.
type NotificationRecord struct {
	ID         string    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"index"`
	IsRead     bool
	Serialized []byte `gorm:"type:blob"`
	Type       string
}

type notificationRecordJSON struct {
	Timestamp  time.Time       `json:"timestamp"`
	IsRead     bool            `json:"read"`
	Serialized json.RawMessage `json:"notification"`
	Type       string          `json:"type"`
}

// MarshalJSON embeds the serialized notification as a JSON object.
// The ID is not exported; it is part of the notification itself.
func (n NotificationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationRecordJSON{
		Timestamp:  n.Timestamp,
		IsRead:     n.IsRead,
		Serialized: n.Serialized,
		Type:       n.Type,
	})
}

// NewNotificationRecord serializes the notification and returns a new
// NotificationRecord with a new ID and timestamp.
func NewNotificationRecord(typ string, notification interface{}) (*NotificationRecord, error) {
	out, err := json.MarshalIndent(notification, "", "    ")
	if err != nil {
		return nil, err
	}

	return &NotificationRecord{
		ID:         NewNotificationID(),
		Timestamp:  time.Now(),
		Type:       typ,
		Serialized: out,
	}, nil
}

// NewNotificationID returns a random notification ID. It is URL safe
// so it can be used as a path segment.
func NewNotificationID() string {
	r := make([]byte, 20)
	rand.Read(r)
	return base64.RawURLEncoding.EncodeToString(r)
}
