package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"net/url"
)

// AuthCookieName is the name for the authentication cookie
const AuthCookieName = "ColorSwap_Auth_Cookie"

// AuthenticationMiddleware guards every route, including the websocket
// upgrade. The remote IP must be allowed and each configured credential
// must be presented. Offers can be submitted and withdrawn through the
// API so a rejected request never reaches the node.
func (g *Gateway) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.remoteAllowed(r) || !g.credentialsValid(r) {
			log.Warningf("Rejected API request %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORSAllowAllOriginsMiddleware lets browser UIs served from another
// origin call the API.
func (g *Gateway) CORSAllowAllOriginsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) remoteAllowed(r *http.Request) bool {
	if len(g.config.AllowedIPs) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return g.config.AllowedIPs[host]
}

func (g *Gateway) credentialsValid(r *http.Request) bool {
	if g.config.Cookie != "" {
		cookie, err := r.Cookie(AuthCookieName)
		if err != nil || !secureEqual(cookie.Value, g.config.Cookie) {
			return false
		}
	}
	if g.config.Username != "" && g.config.Password != "" {
		username, password, ok := r.BasicAuth()
		if !ok {
			return false
		}
		h := sha256.Sum256([]byte(password))
		if !secureEqual(username, g.config.Username) || !secureEqual(hex.EncodeToString(h[:]), g.config.Password) {
			return false
		}
	}
	return true
}

// checkOrigin is the websocket upgrader's origin policy. With CORS
// enabled any origin may subscribe to notifications, otherwise only
// pages served from the gateway's own host.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	if !g.config.NoCors {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
