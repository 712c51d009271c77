package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/repo"
	"github.com/gorilla/mux"
	"github.com/op/go-logging"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

var log = logging.MustGetLogger("RLAY")

const (
	// DefaultRetention is how long envelopes are served if no other
	// retention is configured.
	DefaultRetention = time.Minute * 10

	// DefaultMaxMessageSize is the largest body accepted if no other
	// limit is configured.
	DefaultMaxMessageSize = 1 << 16

	pruneInterval = time.Minute
)

// Config holds the relay server settings.
type Config struct {
	ListenAddr     string
	Retention      time.Duration
	MaxMessageSize int64
}

// Server is the message board agents post offers and proposals to. It
// knows nothing about the messages beyond requiring a JSON object. It
// assigns each one an envelope with an ID, a serial and a timestamp
// and serves them back in serial order.
type Server struct {
	cfg      Config
	store    *envelopeStore
	router   *mux.Router
	listener net.Listener

	done chan struct{}
	wg   sync.WaitGroup
}

// NewServer returns a relay storing envelopes in db.
func NewServer(db repo.Database, cfg Config) (*Server, error) {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	store, err := newEnvelopeStore(db)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		store: store,
		done:  make(chan struct{}),
	}
	s.router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/messages", s.handlePOSTMessage).Methods("POST")
	r.HandleFunc("/messages", s.handleGETMessages).Methods("GET")
	return r
}

// ServeHTTP lets the server be mounted on any http server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start begins listening on the configured address and starts the
// pruning loop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		log.Infof("Relay listening on %s", listener.Addr())
		if err := http.Serve(listener, s); err != nil {
			select {
			case <-s.done:
			default:
				log.Errorf("Relay server stopped: %s", err)
			}
		}
	}()
	go func() {
		defer s.wg.Done()
		s.pruneLoop()
	}()
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and waits for the background loops.
func (s *Server) Stop() error {
	close(s.done)
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) pruneLoop() {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.prune()
		case <-s.done:
			return
		}
	}
}

func (s *Server) prune() {
	n, err := s.store.prune(time.Now().Add(-s.cfg.Retention))
	if err != nil {
		log.Errorf("Error pruning envelopes: %s", err)
		return
	}
	if n > 0 {
		log.Debugf("Pruned %d envelopes", n)
	}
}

func (s *Server) handlePOSTMessage(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxMessageSize))
	if err != nil {
		http.Error(w, wrapError(fmt.Errorf("message exceeds %d bytes", s.cfg.MaxMessageSize)), http.StatusRequestEntityTooLarge)
		return
	}

	var content map[string]interface{}
	if err := json.Unmarshal(body, &content); err != nil || content == nil {
		http.Error(w, wrapError(fmt.Errorf("content must be a JSON object")), http.StatusBadRequest)
		return
	}

	compacted := new(bytes.Buffer)
	if err := json.Compact(compacted, body); err != nil {
		http.Error(w, wrapError(err), http.StatusBadRequest)
		return
	}

	env, err := s.store.put(compacted.Bytes())
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	log.Debugf("Stored envelope %d", env.Serial)
	jsonResponse(w, env)
}

func (s *Server) handleGETMessages(w http.ResponseWriter, r *http.Request) {
	var (
		envelopes []models.Envelope
		err       error
		query     = r.URL.Query()
	)
	switch {
	case query.Get("from_serial") != "":
		serial, perr := strconv.ParseUint(query.Get("from_serial"), 10, 64)
		if perr != nil {
			http.Error(w, wrapError(perr), http.StatusBadRequest)
			return
		}
		envelopes, err = s.store.fromSerial(serial)
	case query.Get("from_timestamp_rel") != "":
		secs, perr := strconv.ParseInt(query.Get("from_timestamp_rel"), 10, 64)
		if perr != nil || secs < 0 {
			http.Error(w, wrapError(fmt.Errorf("invalid from_timestamp_rel")), http.StatusBadRequest)
			return
		}
		envelopes, err = s.store.fromTimestamp(time.Now().Unix() - secs)
	default:
		envelopes, err = s.store.fromSerial(0)
	}
	if err != nil {
		http.Error(w, wrapError(err), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, envelopes)
}

func jsonResponse(w http.ResponseWriter, i interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(i); err != nil {
		log.Errorf("Error writing response: %s", err)
	}
}

func wrapError(err error) string {
	out, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	return string(out)
}
