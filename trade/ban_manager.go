package trade

import (
	"github.com/cpacia/colorswap/models"
	"github.com/patrickmn/go-cache"
	"time"
)

// BanManager tracks foreign offers whose counterparty answered one of
// our proposals with an invalid reply. Banned offers are ignored when
// announced until the ban expires.
type BanManager struct {
	banned *cache.Cache
}

// NewBanManager returns a BanManager whose bans last for duration.
func NewBanManager(duration time.Duration) *BanManager {
	return &BanManager{cache.New(duration, duration)}
}

// Ban blocks the offer for the ban duration. Banning it again restarts
// the ban.
func (bm *BanManager) Ban(id models.OfferID) {
	bm.banned.SetDefault(id.String(), struct{}{})
}

// Unban lifts the ban on the offer.
func (bm *BanManager) Unban(id models.OfferID) {
	bm.banned.Delete(id.String())
}

// IsBanned returns whether the offer is currently banned.
func (bm *BanManager) IsBanned(id models.OfferID) bool {
	_, ok := bm.banned.Get(id.String())
	return ok
}

// BannedIDs returns the IDs of every offer currently banned.
func (bm *BanManager) BannedIDs() []models.OfferID {
	var ret []models.OfferID
	for id := range bm.banned.Items() {
		ret = append(ret, models.OfferID(id))
	}
	return ret
}
