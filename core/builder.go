package core

import (
	"github.com/cpacia/colorswap/api"
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/net"
	"github.com/cpacia/colorswap/notifications"
	"github.com/cpacia/colorswap/repo"
	"github.com/cpacia/colorswap/trade"
	"github.com/op/go-logging"
	gonet "net"
)

// DevnetColor is the color the mock ledger is funded with when no
// ledger daemon is configured.
const DevnetColor = "GOLD"

const (
	devnetUncoloredFunds = 1000000
	devnetColoredFunds   = 500000
)

var log = logging.MustGetLogger("CORE")

// NewNode constructs and returns a SwapNode using the given cfg. If
// no ledger URL is configured the node runs against a private mock
// ledger funded with test coins.
func NewNode(cfg *repo.Config) (*SwapNode, error) {
	openRepo := func() (*repo.Repo, error) { return repo.NewRepo(cfg.DataDir) }
	return withRepo(openRepo, func(swapRepo *repo.Repo) (*SwapNode, error) {
		repo.SetupLogging(cfg.LogDir, cfg.LogLevel)

		var l ledger.Ledger
		if cfg.LedgerURL != "" {
			l = ledger.NewRPCClient(cfg.LedgerURL)
		} else {
			log.Warning("No ledger configured. Using a mock ledger with test coins.")
			network := ledger.NewMockNetwork()
			network.RegisterColor(ledger.ColorDefinition{Desc: DevnetColor, Name: "gold", Divisibility: 0})
			ml, err := newFundedMockLedger(swapRepo, network)
			if err != nil {
				return nil, err
			}
			l = ml
		}

		transport := net.NewHTTPTransport(cfg.RelayURL, cfg.BootstrapWindow, 2*cfg.OfferTTL)
		return buildNode(cfg, swapRepo, l, transport)
	})
}

// NewDevnetNode builds a node whose ledger is a member of network.
// The ledger is funded with test coins of the uncolored unit and of
// DevnetColor. Nodes built on the same network can trade with each
// other through the relay.
func NewDevnetNode(cfg *repo.Config, network *ledger.MockNetwork) (*SwapNode, error) {
	openRepo := func() (*repo.Repo, error) { return repo.NewRepo(cfg.DataDir) }
	return withRepo(openRepo, func(swapRepo *repo.Repo) (*SwapNode, error) {
		l, err := newFundedMockLedger(swapRepo, network)
		if err != nil {
			return nil, err
		}

		transport := net.NewHTTPTransport(cfg.RelayURL, cfg.BootstrapWindow, 2*cfg.OfferTTL)
		return buildNode(cfg, swapRepo, l, transport)
	})
}

// withRepo opens a repo and hands it to build. The repo is closed
// again if build fails.
func withRepo(open func() (*repo.Repo, error), build func(r *repo.Repo) (*SwapNode, error)) (*SwapNode, error) {
	r, err := open()
	if err != nil {
		return nil, err
	}
	node, err := build(r)
	if err != nil {
		r.Close()
		return nil, err
	}
	return node, nil
}

func newFundedMockLedger(r *repo.Repo, network *ledger.MockNetwork) (*ledger.MockLedger, error) {
	seed, err := r.LedgerSeed()
	if err != nil {
		return nil, err
	}
	ml, err := network.NewLedger(seed)
	if err != nil {
		return nil, err
	}
	if err := ml.Fund("", devnetUncoloredFunds); err != nil {
		return nil, err
	}
	if err := ml.Fund(DevnetColor, devnetColoredFunds); err != nil {
		return nil, err
	}
	return ml, nil
}

func buildNode(cfg *repo.Config, r *repo.Repo, l ledger.Ledger, transport net.Transport) (*SwapNode, error) {
	bus := events.NewBus()
	buffered := net.NewBufferedTransport(transport, cfg.PollInterval)

	agentCfg := trade.DefaultConfig()
	agentCfg.OfferTTL = cfg.OfferTTL
	agentCfg.OfferGrace = cfg.OfferGrace
	agentCfg.ProposalTTL = cfg.ProposalTTL
	agentCfg.ProposalRetransmitInterval = cfg.ProposalRetransmit
	agentCfg.FeeTolerance = cfg.MaxFee

	node := &SwapNode{
		repo:         r,
		ledger:       l,
		transport:    buffered,
		agent:        trade.NewAgent(l, buffered, bus, agentCfg),
		eventBus:     bus,
		tickInterval: cfg.TickInterval,
		shutdown:     make(chan struct{}),
	}

	// Notifications are stored even without a gateway to push them to.
	notifyFunc := func(interface{}) error { return nil }
	if cfg.GatewayAddr != "" {
		gateway, err := node.newHTTPGateway(cfg)
		if err != nil {
			return nil, err
		}
		node.gateway = gateway
		notifyFunc = gateway.NotifyWebsockets
	}
	node.notifier = notifications.NewNotifier(bus, r.DB(), notifyFunc)

	return node, nil
}

func (n *SwapNode) newHTTPGateway(cfg *repo.Config) (*api.Gateway, error) {
	listener, err := gonet.Listen("tcp", cfg.GatewayAddr)
	if err != nil {
		return nil, err
	}

	allowedIPs := make(map[string]bool)
	for _, ip := range cfg.APIAllowedIPs {
		allowedIPs[ip] = true
	}

	config := &api.GatewayConfig{
		Listener:   listener,
		NoCors:     cfg.APINoCors,
		Username:   cfg.APIUsername,
		Password:   cfg.APIPassword,
		Cookie:     cfg.APICookie,
		AllowedIPs: allowedIPs,
	}

	gateway, err := api.NewGateway(n, config)
	if err != nil {
		listener.Close()
		return nil, err
	}
	return gateway, nil
}
