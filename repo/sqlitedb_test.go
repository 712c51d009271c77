package repo

import (
	"errors"
	"github.com/cpacia/colorswap/models"
	"gorm.io/gorm"
	"testing"
)

func TestSqliteDB_Update(t *testing.T) {
	sdb, err := NewSqliteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}

	if err := autoMigrateDatabase(sdb); err != nil {
		t.Fatal(err)
	}

	err = sdb.Update(func(tx *gorm.DB) error {
		return tx.Save(&models.Trade{ProposalID: "abc"}).Error
	})
	if err != nil {
		t.Error(err)
	}

	var trades []models.Trade
	if err := sdb.db.Find(&trades).Error; err != nil {
		t.Fatal(err)
	}

	if len(trades) != 1 {
		t.Error("Db update failed to save.")
	}

	err = sdb.Update(func(tx *gorm.DB) error {
		err := errors.New("atomic update failure")

		if err := tx.Save(&models.Trade{ProposalID: "def"}).Error; err != nil {
			t.Fatal(err)
		}
		return err
	})
	if err == nil {
		t.Error("Update function did not return error")
	}

	var trades2 []models.Trade
	if err := sdb.db.Find(&trades2).Error; err != nil {
		t.Fatal(err)
	}

	if len(trades2) != 1 {
		t.Error("Db update failed to roll back.")
	}
}

func TestSqliteDB_View(t *testing.T) {
	sdb, err := NewSqliteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}

	if err := autoMigrateDatabase(sdb); err != nil {
		t.Fatal(err)
	}

	err = sdb.Update(func(tx *gorm.DB) error {
		return tx.Save(&models.Trade{ProposalID: "abc"}).Error
	})
	if err != nil {
		t.Error(err)
	}

	var trades []models.Trade
	err = sdb.View(func(tx *gorm.DB) error {
		return tx.Find(&trades).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Errorf("Expected 1 trade, got %d", len(trades))
	}

	if err := sdb.Close(); err != nil {
		t.Fatal(err)
	}
}
