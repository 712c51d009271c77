package relay

import (
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

// envelopeStore persists relay envelopes. Serials come from the
// sqlite rowid and so increase monotonically.
type envelopeStore struct {
	db repo.Database
}

func newEnvelopeStore(db repo.Database) (*envelopeStore, error) {
	err := db.Update(func(tx *gorm.DB) error {
		return tx.AutoMigrate(&models.Envelope{})
	})
	if err != nil {
		return nil, err
	}
	return &envelopeStore{db: db}, nil
}

func (s *envelopeStore) put(content []byte) (*models.Envelope, error) {
	env := &models.Envelope{
		ID:        uuid.New().String(),
		Timestamp: time.Now().Unix(),
		Content:   content,
	}
	err := s.db.Update(func(tx *gorm.DB) error {
		return tx.Create(env).Error
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (s *envelopeStore) fromSerial(serial uint64) ([]models.Envelope, error) {
	envelopes := []models.Envelope{}
	err := s.db.View(func(tx *gorm.DB) error {
		return tx.Where("serial >= ?", serial).Order("serial asc").Find(&envelopes).Error
	})
	return envelopes, err
}

func (s *envelopeStore) fromTimestamp(timestamp int64) ([]models.Envelope, error) {
	envelopes := []models.Envelope{}
	err := s.db.View(func(tx *gorm.DB) error {
		return tx.Where("timestamp >= ?", timestamp).Order("serial asc").Find(&envelopes).Error
	})
	return envelopes, err
}

// prune deletes envelopes older than cutoff. The newest envelope is
// always kept so an emptied table never restarts its serials.
func (s *envelopeStore) prune(cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.db.Update(func(tx *gorm.DB) error {
		var newest models.Envelope
		if err := tx.Order("serial desc").Limit(1).Find(&newest).Error; err != nil {
			return err
		}
		if newest.Serial == 0 {
			return nil
		}
		res := tx.Where("timestamp < ? AND serial < ?", cutoff.Unix(), newest.Serial).Delete(&models.Envelope{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
