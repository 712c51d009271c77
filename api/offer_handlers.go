package api

import (
	"encoding/json"
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/cpacia/colorswap/models"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"net/http"
)

func (g *Gateway) handleGETOffers(w http.ResponseWriter, r *http.Request) {
	mine, theirs := g.node.Offers()
	if mine == nil {
		mine = []*models.Offer{}
	}
	if theirs == nil {
		theirs = []*models.Offer{}
	}
	sanitizedJSONResponse(w, struct {
		Mine   []*models.Offer `json:"mine"`
		Theirs []*models.Offer `json:"theirs"`
	}{mine, theirs})
}

func (g *Gateway) handlePOSTOffer(w http.ResponseWriter, r *http.Request) {
	type offer struct {
		Give models.OfferSide `json:"A"`
		Want models.OfferSide `json:"B"`
	}
	var o offer
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}

	newOffer := models.NewOffer(o.Give, o.Want)
	if err := g.node.SubmitOwnOffer(newOffer); err != nil {
		if errors.Is(err, coreiface.ErrBadRequest) {
			http.Error(w, wrapError(err), http.StatusBadRequest)
			return
		}
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	sanitizedJSONResponse(w, newOffer)
}

func (g *Gateway) handleDELETEOffer(w http.ResponseWriter, r *http.Request) {
	offerID := mux.Vars(r)["offerID"]

	if err := g.node.WithdrawOwnOffer(models.OfferID(offerID)); err != nil {
		if errors.Is(err, coreiface.ErrNotFound) {
			http.Error(w, wrapError(err), http.StatusNotFound)
			return
		}
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	sanitizedStringResponse(w, "{}")
}
