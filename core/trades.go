package core

import (
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
)

// GetTrades returns completed trades newest first. If offsetID is set
// only trades older than that trade are returned. A negative limit
// returns everything.
func (n *SwapNode) GetTrades(limit int, offsetID string) ([]models.Trade, error) {
	trades := []models.Trade{}
	if err := repo.PageNewestFirst(n.repo.DB(), &trades, "proposal_id", limit, offsetID); err != nil {
		return nil, err
	}
	return trades, nil
}
