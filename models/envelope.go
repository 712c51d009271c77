package models

import "encoding/json"

// Envelope is a message as stored and served by the relay. The serial
// is assigned by the relay and increases monotonically so clients can
// poll for everything newer than the last envelope they saw.
type Envelope struct {
	Serial    uint64 `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex"`
	Timestamp int64  `gorm:"index"`
	Content   []byte `gorm:"type:blob"`
}

// envelopeJSON is the wire form. Content is embedded as a JSON object
// rather than base64.
type envelopeJSON struct {
	Serial    uint64          `json:"serial"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Content   json.RawMessage `json:"content"`
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		Serial:    e.Serial,
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Content:   e.Content,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var ej envelopeJSON
	if err := json.Unmarshal(b, &ej); err != nil {
		return err
	}
	e.Serial = ej.Serial
	e.ID = ej.ID
	e.Timestamp = ej.Timestamp
	e.Content = []byte(ej.Content)
	return nil
}
