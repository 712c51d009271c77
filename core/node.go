package core

import (
	"context"
	"github.com/cpacia/colorswap/api"
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/ledger"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/colorswap/net"
	"github.com/cpacia/colorswap/notifications"
	"github.com/cpacia/colorswap/repo"
	"github.com/cpacia/colorswap/trade"
	"gorm.io/gorm"
	"sync"
	"time"
)

// SwapNode holds all the components that make up a swap agent. It
// also exposes an exported API which can be used to control the node.
type SwapNode struct {

	// repo holds the database and the ledger seed.
	repo *repo.Repo

	// ledger builds, signs and publishes the exchange transactions.
	ledger ledger.Ledger

	// transport is the relay connection. The agent only ever talks to
	// the buffered side so ticks never block on the network.
	transport *net.BufferedTransport

	// agent is the negotiation state machine.
	agent *trade.Agent

	// eventBus is used to pass events to the notifier and trade history.
	eventBus events.Bus

	notifier *notifications.Notifier

	// gateway is nil when the node runs without an API.
	gateway *api.Gateway

	tickInterval time.Duration

	// shutdown is closed when the node is stopped. Any listening
	// goroutines can use this to terminate.
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// Start gets the node up and running. It returns once every
// background loop is launched.
func (n *SwapNode) Start() error {
	tradeSub, err := n.eventBus.Subscribe(&events.TradeCompleted{}, events.BufSize(64))
	if err != nil {
		return err
	}

	n.transport.Start()

	go n.notifier.Start()
	if n.gateway != nil {
		go func() {
			if err := n.gateway.Serve(); err != nil {
				select {
				case <-n.shutdown:
				default:
					log.Errorf("Gateway stopped: %s", err)
				}
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	n.wg.Add(3)
	go func() {
		defer n.wg.Done()
		defer cancel()
		n.tickLoop(ctx)
	}()
	go func() {
		defer n.wg.Done()
		n.transportErrorLoop()
	}()
	go func() {
		defer n.wg.Done()
		defer tradeSub.Close()
		n.tradeHistoryLoop(tradeSub)
	}()
	return nil
}

// Stop cleanly shuts down the SwapNode and signals to any listening
// goroutines that it's time to stop.
func (n *SwapNode) Stop() {
	close(n.shutdown)
	n.wg.Wait()

	n.transport.Stop()
	n.notifier.Stop()
	if n.gateway != nil {
		if err := n.gateway.Close(); err != nil {
			log.Errorf("Error closing gateway: %s", err)
		}
	}
	n.repo.Close()
}

// DestroyNode shuts down the node and deletes the entire data directory.
// This should only be used during testing as destroying a live node will
// result in data loss.
func (n *SwapNode) DestroyNode() {
	n.Stop()
	n.repo.DestroyRepo()
}

// SubscribeEvent returns a subscription to the provided event. The event
// must be a pointer to the type from the events package.
func (n *SwapNode) SubscribeEvent(event interface{}) (events.Subscription, error) {
	return n.eventBus.Subscribe(event)
}

func (n *SwapNode) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(n.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.agent.Tick(ctx)
		case <-n.shutdown:
			return
		}
	}
}

// transportErrorLoop turns relay failures into events. The transport
// keeps polling regardless so this is purely informational.
func (n *SwapNode) transportErrorLoop() {
	for {
		select {
		case err := <-n.transport.Errors():
			log.Warningf("Relay error: %s", err)
			n.eventBus.Emit(&events.TransportError{Err: err})
		case <-n.shutdown:
			return
		}
	}
}

// tradeHistoryLoop records every completed trade. Negotiation state is
// never persisted, only the outcome.
func (n *SwapNode) tradeHistoryLoop(sub events.Subscription) {
	for {
		select {
		case event := <-sub.Out():
			completed, ok := event.(*events.TradeCompleted)
			if !ok || completed.MyOffer == nil {
				continue
			}
			record := models.NewTrade(completed.ProposalID, string(completed.Role), completed.MyOffer, completed.Txid)
			err := n.repo.DB().Update(func(tx *gorm.DB) error {
				return tx.Save(record).Error
			})
			if err != nil {
				log.Errorf("Error saving trade %s: %s", completed.ProposalID, err)
				continue
			}
			log.Infof("Trade %s completed as %s. Txid: %s", completed.ProposalID, completed.Role, completed.Txid)
		case <-n.shutdown:
			return
		}
	}
}
