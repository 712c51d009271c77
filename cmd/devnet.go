package cmd

import (
	"fmt"
	"github.com/cpacia/colorswap/core"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/relay"
	"github.com/cpacia/colorswap/repo"
	"os"
	"path/filepath"
)

// DevNet spins up a relay and two funded agents sharing a mock ledger.
type DevNet struct {
	DataDir   string `short:"d" long:"datadir" description:"Directory to store the devnet data" default:"devnet"`
	RelayAddr string `long:"relayaddr" description:"Address the devnet relay listens on" default:"127.0.0.1:8090"`
	APIPort   int    `long:"apiport" description:"API port of the first node. Each further node uses the next port." default:"8081"`
	LogLevel  string `short:"l" long:"loglevel" description:"set the logging level [debug, info, notice, warning, error, critical]" default:"info"`
}

// Execute starts the devnet.
func (x *DevNet) Execute(args []string) error {
	if err := os.MkdirAll(x.DataDir, 0700); err != nil {
		return err
	}
	repo.SetupLogging(filepath.Join(x.DataDir, "logs"), x.LogLevel)

	db, err := repo.MockDB()
	if err != nil {
		return err
	}
	defer db.Close()

	server, err := relay.NewServer(db, relay.Config{ListenAddr: x.RelayAddr})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	network := ledger.NewMockNetwork()
	network.RegisterColor(ledger.ColorDefinition{Desc: core.DevnetColor, Name: "gold"})

	var nodes []*core.SwapNode
	defer func() {
		for _, n := range nodes {
			n.Stop()
		}
	}()

	for i, name := range []string{"alice", "bob"} {
		cfg, err := repo.DefaultConfig()
		if err != nil {
			return err
		}
		cfg.DataDir = filepath.Join(x.DataDir, name)
		cfg.LogLevel = x.LogLevel
		cfg.RelayURL = "http://" + x.RelayAddr
		cfg.GatewayAddr = fmt.Sprintf("127.0.0.1:%d", x.APIPort+i)

		n, err := core.NewDevnetNode(cfg, network)
		if err != nil {
			return err
		}
		if err := n.Start(); err != nil {
			return err
		}
		nodes = append(nodes, n)
		log.Infof("Devnet node %s API listening on %s", name, cfg.GatewayAddr)
	}

	waitForInterrupt()
	log.Info("Devnet shutting down...")
	return nil
}
