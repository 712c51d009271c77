package api

import (
	"encoding/json"
	"github.com/cpacia/colorswap/core/coreiface"
	"github.com/gorilla/mux"
	"github.com/op/go-logging"
	"net"
	"net/http"
)

var log = logging.MustGetLogger("API")

type GatewayConfig struct {
	Listener   net.Listener
	NoCors     bool
	AllowedIPs map[string]bool
	Cookie     string
	Username   string
	Password   string
}

// Gateway represents an HTTP API gateway
type Gateway struct {
	listener net.Listener
	node     coreiface.CoreIface
	handler  http.Handler
	config   *GatewayConfig
	hub      *notificationHub
}

// NewGateway instantiates a new gateway serving the v1 API and the
// notification websocket.
func NewGateway(node coreiface.CoreIface, config *GatewayConfig) (*Gateway, error) {
	var (
		g = &Gateway{
			node:     node,
			config:   config,
			listener: config.Listener,
			hub:      newHub(),
		}
		topMux = http.NewServeMux()
	)

	r := g.newV1Router()

	if !config.NoCors {
		r.Use(mux.CORSMethodMiddleware(r))
		r.Use(g.CORSAllowAllOriginsMiddleware)
	}
	r.Use(g.AuthenticationMiddleware)

	topMux.Handle("/v1/", r)
	topMux.Handle("/ws", g.AuthenticationMiddleware(newWebsocketHandler(g.hub, g.checkOrigin)))

	go g.hub.run()

	g.handler = topMux
	return g, nil
}

// Close shuts down the Gateway listener and disconnects websocket
// subscribers.
func (g *Gateway) Close() error {
	g.hub.stop()
	return g.listener.Close()
}

// Serve begins listening on the configured address.
func (g *Gateway) Serve() error {
	log.Infof("Gateway/API server listening on %s", g.listener.Addr())
	return http.Serve(g.listener, g.handler)
}

// NotifyWebsockets marshals and sanitizes i and broadcasts it to all
// connected websockets.
func (g *Gateway) NotifyWebsockets(i interface{}) error {
	out, err := marshalAndSanitizeJSON(i)
	if err != nil {
		return err
	}
	g.hub.broadcast(out)
	return nil
}

func (g *Gateway) newV1Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/offers", g.handleGETOffers).Methods("GET")
	r.HandleFunc("/v1/offers", g.handlePOSTOffer).Methods("POST")
	r.HandleFunc("/v1/offers/{offerID}", g.handleDELETEOffer).Methods("DELETE")
	r.HandleFunc("/v1/proposal", g.handleGETProposal).Methods("GET")
	r.HandleFunc("/v1/trades", g.handleGETTrades).Methods("GET")
	r.HandleFunc("/v1/notifications", g.handleGETNotifications).Methods("GET")
	r.HandleFunc("/v1/notifications/{notificationID}/read", g.handlePOSTMarkNotificationAsRead).Methods("POST")
	r.HandleFunc("/v1/balance", g.handleGETBalance).Methods("GET")
	return r
}

func wrapError(err error) string {
	out, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	return string(out)
}
