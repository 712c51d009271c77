package core

import (
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/trade"
	"github.com/pkg/errors"
)

// apiError translates agent and ledger errors into the coreiface
// taxonomy the gateway maps onto status codes.
func apiError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, trade.ErrOfferNotFound):
		return errors.Wrap(coreiface.ErrNotFound, err.Error())
	case errors.Is(err, models.ErrSameColorSides),
		errors.Is(err, models.ErrZeroValueOffer),
		errors.Is(err, models.ErrMissingOfferID),
		errors.Is(err, ledger.ErrUnknownColor):
		return errors.Wrap(coreiface.ErrBadRequest, err.Error())
	}
	return err
}
