package repo

import (
	"errors"
	"fmt"
	"github.com/cpacia/colorswap/models"
	"github.com/op/go-logging"
	"github.com/tyler-smith/go-bip39"
	"gorm.io/gorm"
	"io/ioutil"
	"os"
	"path"
	"strconv"
)

const (
	// defaultRepoVersion is the current repo version used for migrations.
	defaultRepoVersion = 0

	// versionFileName is the name of the version file.
	versionFileName = "version"

	mnemonicKeyName = "mnemonic"
	seedKeyName     = "seed"
)

var log = logging.MustGetLogger("REPO")

// Repo is a representation of a colorswap data directory.
// In this we store:
// - The colorswap.conf file
// - The database holding the ledger seed, the trade history and
//   notifications
// - The logs directory
type Repo struct {
	db      Database
	dataDir string
}

// NewRepo returns a new Repo for the given data directory. It will
// be initialized if it is not already.
func NewRepo(dataDir string) (*Repo, error) {
	return newRepo(dataDir, "", false)
}

// NewRepoWithCustomMnemonicSeed behaves the same as NewRepo but allows
// the caller to pass in a custom mnemonic seed. This is useful for
// restoring a ledger from seed. The mnemonic is ignored if the repo
// is already initialized.
func NewRepoWithCustomMnemonicSeed(dataDir, mnemonic string) (*Repo, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	return newRepo(dataDir, mnemonic, false)
}

// IsInitialized returns whether a repo exists at dataDir.
func IsInitialized(dataDir string) bool {
	_, err := os.Stat(path.Join(dataDir, versionFileName))
	return err == nil
}

// DB returns the database implementation.
func (r *Repo) DB() Database {
	return r.db
}

// DataDir returns the data directory associated with this repo.
func (r *Repo) DataDir() string {
	return r.dataDir
}

// LedgerSeed returns the seed the ledger keys are derived from.
func (r *Repo) LedgerSeed() ([]byte, error) {
	var key models.Key
	err := r.db.View(func(tx *gorm.DB) error {
		return tx.Where("name = ?", seedKeyName).First(&key).Error
	})
	if err != nil {
		return nil, err
	}
	return key.Value, nil
}

// Mnemonic returns the mnemonic the ledger seed was derived from.
func (r *Repo) Mnemonic() (string, error) {
	var key models.Key
	err := r.db.View(func(tx *gorm.DB) error {
		return tx.Where("name = ?", mnemonicKeyName).First(&key).Error
	})
	if err != nil {
		return "", err
	}
	return string(key.Value), nil
}

// Close will close the repo and associated databases.
func (r *Repo) Close() {
	r.db.Close()
}

// DestroyRepo deletes the entire directory. Do NOT use this unless you are
// positive you want to wipe all data.
func (r *Repo) DestroyRepo() error {
	if err := r.db.Close(); err != nil {
		return err
	}
	return os.RemoveAll(r.dataDir)
}

// writeVersion writes the version number to file.
func (r *Repo) writeVersion(version int) error {
	versionStr := strconv.Itoa(version)
	return ioutil.WriteFile(path.Join(r.dataDir, versionFileName), []byte(versionStr), os.ModePerm)
}

func newRepo(dataDir, mnemonicSeed string, inMemoryDB bool) (*Repo, error) {
	if err := checkWriteable(dataDir); err != nil {
		return nil, err
	}

	var (
		db  *SqliteDB
		err error
	)
	if inMemoryDB {
		db, err = NewSqliteDB(":memory:")
	} else {
		db, err = NewSqliteDB(dataDir)
	}
	if err != nil {
		return nil, err
	}

	if err := autoMigrateDatabase(db); err != nil {
		return nil, err
	}

	var isNew bool
	err = db.Update(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Key{}).Where("name = ?", seedKeyName).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		isNew = true

		if mnemonicSeed == "" {
			mnemonicSeed, err = createMnemonic(bip39.NewEntropy, bip39.NewMnemonic)
			if err != nil {
				return err
			}
		}
		if err := tx.Save(&models.Key{Name: mnemonicKeyName, Value: []byte(mnemonicSeed)}).Error; err != nil {
			return err
		}
		return tx.Save(&models.Key{Name: seedKeyName, Value: bip39.NewSeed(mnemonicSeed, "")}).Error
	})
	if err != nil {
		return nil, err
	}

	r := &Repo{
		dataDir: dataDir,
		db:      db,
	}
	if isNew {
		log.Infof("Initialized new repo at %s", dataDir)
		if err := r.writeVersion(defaultRepoVersion); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func checkWriteable(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		// Directory exists, make sure we can write to it
		testfile := path.Join(dir, "test")
		fi, err := os.Create(testfile)
		if err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%s is not writeable by the current user", dir)
			}
			return fmt.Errorf("unexpected error while checking writeablility of repo root: %s", err)
		}
		fi.Close()
		return os.Remove(testfile)
	}

	if os.IsNotExist(err) {
		// Directory does not exist, check that we can create it
		return os.MkdirAll(dir, 0775)
	}

	if os.IsPermission(err) {
		return fmt.Errorf("cannot write to %s, incorrect permissions", err)
	}

	return err
}

func createMnemonic(newEntropy func(int) ([]byte, error), newMnemonic func([]byte) (string, error)) (string, error) {
	entropy, err := newEntropy(128)
	if err != nil {
		return "", err
	}
	mnemonic, err := newMnemonic(entropy)
	if err != nil {
		return "", err
	}
	return mnemonic, nil
}

func autoMigrateDatabase(db Database) error {
	dbModels := []interface{}{
		&models.Key{},
		&models.Trade{},
		&models.NotificationRecord{},
	}

	return db.Update(func(tx *gorm.DB) error {
		for _, m := range dbModels {
			if err := tx.AutoMigrate(m); err != nil {
				return err
			}
		}
		return nil
	})
}
