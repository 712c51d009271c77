package api

import (
	"net/http"
	"sort"
)

// colorBalance is the wire form of a balance. Amounts are big
// integers so they are sent as decimal strings.
type colorBalance struct {
	Color   string `json:"color"`
	Balance string `json:"balance"`
}

func (g *Gateway) handleGETBalance(w http.ResponseWriter, r *http.Request) {
	balances, err := g.node.Balances()
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}

	ret := make([]colorBalance, 0, len(balances))
	for color, amt := range balances {
		ret = append(ret, colorBalance{Color: color, Balance: amt.String()})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Color < ret[j].Color })

	sanitizedJSONResponse(w, ret)
}
