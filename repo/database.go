package repo

import (
	"gorm.io/gorm"
	"time"
)

// Database is the node's store for trade history, notifications and
// key material. The relay uses the same interface for its envelopes.
type Database interface {
	// View runs fn against the database for reading. Errors from fn
	// are returned unchanged.
	View(fn func(tx *gorm.DB) error) error

	// Update runs fn in a transaction that is committed if fn returns
	// nil and rolled back otherwise.
	Update(fn func(tx *gorm.DB) error) error

	// Close waits for running transactions and closes the database.
	Close() error
}

// PageNewestFirst loads rows into out, a pointer to a slice of a model
// with a timestamp column, newest first. If offsetID is set only rows
// older than the row whose keyColumn equals offsetID are returned, and
// an unknown offsetID yields no rows. A negative limit returns every
// row.
func PageNewestFirst(db Database, out interface{}, keyColumn string, limit int, offsetID string) error {
	return db.View(func(tx *gorm.DB) error {
		query := tx.Order("timestamp desc").Limit(limit)
		if offsetID != "" {
			var stamps []time.Time
			err := tx.Model(out).Where(keyColumn+" = ?", offsetID).Limit(1).Pluck("timestamp", &stamps).Error
			if err != nil {
				return err
			}
			if len(stamps) == 0 {
				return nil
			}
			query = query.Where("timestamp < ?", stamps[0])
		}
		return query.Find(out).Error
	})
}
