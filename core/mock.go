package core

import (
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/net"
	"github.com/cpacia/colorswap/repo"
	"time"
)

const mockInterval = time.Millisecond * 20

// mockConfig returns a config with short intervals and no gateway.
func mockConfig() *repo.Config {
	return &repo.Config{
		OfferTTL:           time.Second * 10,
		OfferGrace:         time.Second * 5,
		ProposalTTL:        time.Second * 10,
		ProposalRetransmit: time.Second * 2,
		TickInterval:       mockInterval,
		PollInterval:       mockInterval,
		MaxFee:             10000,
	}
}

// MockNode builds a mock node with a temp data directory, in-memory
// database and a mock ledger on network. It talks to the other nodes
// through the in-memory relay.
func MockNode(network *ledger.MockNetwork, relay *net.MockRelay) (*SwapNode, error) {
	return withRepo(repo.MockRepo, func(r *repo.Repo) (*SwapNode, error) {
		l, err := newFundedMockLedger(r, network)
		if err != nil {
			return nil, err
		}
		return buildNode(mockConfig(), r, l, relay.NewTransport())
	})
}

// Mocknet represents a set of mock nodes sharing a ledger network and
// a relay.
type Mocknet struct {
	nodes   []*SwapNode
	network *ledger.MockNetwork
	relay   *net.MockRelay
}

// NewMocknet returns a Mocknet of numNodes funded nodes. The nodes are
// not started.
func NewMocknet(numNodes int) (*Mocknet, error) {
	network := ledger.NewMockNetwork()
	network.RegisterColor(ledger.ColorDefinition{Desc: DevnetColor, Name: "gold"})
	relay := net.NewMockRelay()

	var nodes []*SwapNode
	for i := 0; i < numNodes; i++ {
		n, err := MockNode(network, relay)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return &Mocknet{
		nodes:   nodes,
		network: network,
		relay:   relay,
	}, nil
}

// Nodes returns the nodes in the mocknet.
func (mn *Mocknet) Nodes() []*SwapNode {
	return mn.nodes
}

// Network returns the shared ledger network.
func (mn *Mocknet) Network() *ledger.MockNetwork {
	return mn.network
}

// StartAll starts every node.
func (mn *Mocknet) StartAll() error {
	for _, n := range mn.nodes {
		if err := n.Start(); err != nil {
			return err
		}
	}
	return nil
}

// TearDown shuts down the network and destroys the data directories.
func (mn *Mocknet) TearDown() error {
	for _, n := range mn.nodes {
		n.DestroyNode()
	}
	return nil
}
