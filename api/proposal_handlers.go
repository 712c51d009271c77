package api

import (
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/pkg/errors"
	"net/http"
	"strconv"
)

func (g *Gateway) handleGETProposal(w http.ResponseWriter, r *http.Request) {
	summary, err := g.node.ActiveProposal()
	if errors.Is(err, coreiface.ErrNoActiveProposal) {
		http.Error(w, wrapError(err), http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	sanitizedJSONResponse(w, summary)
}

func (g *Gateway) handleGETTrades(w http.ResponseWriter, r *http.Request) {
	var (
		limitStr = r.URL.Query().Get("limit")
		offsetID = r.URL.Query().Get("offsetID")
		limit    = -1
		err      error
	)
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, wrapError(err), http.StatusBadRequest)
			return
		}
	}

	trades, err := g.node.GetTrades(limit, offsetID)
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	sanitizedJSONResponse(w, trades)
}
