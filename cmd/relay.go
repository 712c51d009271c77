package cmd

import (
	"github.com/cpacia/colorswap/relay"
	"github.com/cpacia/colorswap/repo"
	"os"
)

// Relay runs the message relay the agents post offers and proposals to.
type Relay struct {
	repo.RelayConfig
}

// Execute starts the relay server.
func (x *Relay) Execute(args []string) error {
	cfg, _, err := repo.LoadRelayConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return err
	}
	db, err := repo.NewSqliteDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	server, err := relay.NewServer(db, relay.Config{
		ListenAddr:     cfg.ListenAddr,
		Retention:      cfg.Retention,
		MaxMessageSize: cfg.MaxMessageSize,
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	waitForInterrupt()
	log.Info("Relay shutting down...")
	return server.Stop()
}
