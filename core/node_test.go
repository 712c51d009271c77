package core

import (
	"github.com/cpacia/colorswap/events"
	"github.com/cpacia/colorswap/models"
	iwallet "github.com/cpacia/wallet-interface"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(mockInterval)
	}
	t.Fatal("Timed out waiting for condition")
}

func TestSwapNode_Swap(t *testing.T) {
	mn, err := NewMocknet(2)
	if err != nil {
		t.Fatal(err)
	}
	defer mn.TearDown()

	if err := mn.StartAll(); err != nil {
		t.Fatal(err)
	}

	alice, bob := mn.Nodes()[0], mn.Nodes()[1]

	sub, err := bob.SubscribeEvent(&events.TradeCompleted{})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	aliceOffer := models.NewOffer(models.OfferSide{Value: 200000}, models.OfferSide{ColorDesc: DevnetColor, Value: 100000})
	if err := alice.SubmitOwnOffer(aliceOffer); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second*10, func() bool {
		_, theirs := bob.Offers()
		return len(theirs) == 1
	})

	bobOffer := models.NewOffer(models.OfferSide{ColorDesc: DevnetColor, Value: 100000}, models.OfferSide{Value: 200000})
	if err := bob.SubmitOwnOffer(bobOffer); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-sub.Out():
		completed := event.(*events.TradeCompleted)
		if completed.Role != events.RoleInitiator {
			t.Errorf("Expected bob to initiate, got %s", completed.Role)
		}
	case <-time.After(time.Second * 10):
		t.Fatal("Timed out waiting on trade")
	}

	if mn.Network().PublishCount() != 1 {
		t.Errorf("Expected one published transaction, got %d", mn.Network().PublishCount())
	}

	var aliceTrades, bobTrades []models.Trade
	waitFor(t, time.Second*10, func() bool {
		aliceTrades, _ = alice.GetTrades(-1, "")
		bobTrades, _ = bob.GetTrades(-1, "")
		return len(aliceTrades) == 1 && len(bobTrades) == 1
	})

	if aliceTrades[0].Txid != bobTrades[0].Txid {
		t.Errorf("Trade txids differ: %s != %s", aliceTrades[0].Txid, bobTrades[0].Txid)
	}
	if aliceTrades[0].Role != string(events.RoleResponder) {
		t.Errorf("Expected alice to respond, got %s", aliceTrades[0].Role)
	}
	if aliceTrades[0].OfferID != aliceOffer.ID.String() || bobTrades[0].OfferID != bobOffer.ID.String() {
		t.Error("Trades recorded against the wrong offers")
	}

	mine, _ := alice.Offers()
	if len(mine) != 0 {
		t.Errorf("Expected alice's offer to be consumed, got %d offers", len(mine))
	}
	mine, _ = bob.Offers()
	if len(mine) != 0 {
		t.Errorf("Expected bob's offer to be consumed, got %d offers", len(mine))
	}

	balances, err := alice.Balances()
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string]iwallet.Amount{
		"":          iwallet.NewAmount(devnetUncoloredFunds - 200000 - 1000),
		DevnetColor: iwallet.NewAmount(devnetColoredFunds + 100000),
	}
	for color, amt := range expected {
		if balances[color].Cmp(amt) != 0 {
			t.Errorf("Alice %q balance: expected %s, got %s", color, amt, balances[color])
		}
	}

	waitFor(t, time.Second*10, func() bool {
		records, err := alice.GetNotifications(-1, "")
		if err != nil {
			return false
		}
		for _, r := range records {
			if r.Type == "TradeNotification" {
				return true
			}
		}
		return false
	})
}

func TestSwapNode_ActiveProposal(t *testing.T) {
	mn, err := NewMocknet(1)
	if err != nil {
		t.Fatal(err)
	}
	defer mn.TearDown()

	if _, err := mn.Nodes()[0].ActiveProposal(); err == nil {
		t.Error("Expected no active proposal")
	}
}
