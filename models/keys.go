package models

// Key holds raw key material stored in the database. The ledger seed
// is stored under the name "seed" and the mnemonic it was derived from
// under "mnemonic".
type Key struct {
	Name  string `gorm:"primaryKey"`
	Value []byte
}
