package api

import (
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"net/http"
	"strconv"
)

func (g *Gateway) handleGETNotifications(w http.ResponseWriter, r *http.Request) {
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

	notifications, err := g.node.GetNotifications(limit, offsetID)
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	sanitizedJSONResponse(w, notifications)
}

func (g *Gateway) handlePOSTMarkNotificationAsRead(w http.ResponseWriter, r *http.Request) {
	notificationID := mux.Vars(r)["notificationID"]

	if err := g.node.MarkNotificationAsRead(notificationID); err != nil {
		if errors.Is(err, coreiface.ErrNotFound) {
			http.Error(w, wrapError(err), http.StatusNotFound)
			return
		}
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	sanitizedStringResponse(w, "{}")
}
