package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"github.com/cpacia/colorswap/models"
	iwallet "github.com/cpacia/wallet-interface"
	"testing"
)

const goldColor = "epobc:gold:0:0"

func newTestLedger(t *testing.T, network *MockNetwork) *MockLedger {
	seed := make([]byte, 32)
	rand.Read(seed)
	l, err := network.NewLedger(seed)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func setupSwap(t *testing.T) (*MockNetwork, *MockLedger, *MockLedger) {
	network := NewMockNetwork()
	network.RegisterColor(ColorDefinition{Desc: goldColor, Name: "gold"})

	alice := newTestLedger(t, network)
	bob := newTestLedger(t, network)

	if err := alice.Fund(goldColor, 150); err != nil {
		t.Fatal(err)
	}
	if err := bob.Fund("", 10000); err != nil {
		t.Fatal(err)
	}
	return network, alice, bob
}

var (
	gold100 = models.OfferSide{ColorDesc: goldColor, Value: 100}
	unc5000 = models.OfferSide{ColorDesc: "", Value: 5000}
)

func TestMockLedger_Swap(t *testing.T) {
	network, alice, bob := setupSwap(t)
	ctx := context.Background()

	// Alice offers gold for uncolored. Bob initiates.
	spec, err := bob.BuildExchangeSpec(ctx, unc5000, gold100)
	if err != nil {
		t.Fatal(err)
	}
	if spec.IsEmpty() {
		t.Fatal("Spec is empty")
	}

	reply, err := alice.BuildAndSignReply(ctx, spec, gold100, unc5000)
	if err != nil {
		t.Fatal(err)
	}
	if reply.IsFullySigned() {
		t.Error("Reply should not be fully signed")
	}

	aliceDeltas := models.ExpectedDeltas(models.NewOffer(gold100, unc5000))
	ok, err := alice.SatisfiesNegotiatedDeltas(ctx, reply, aliceDeltas, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Reply should satisfy alice's deltas")
	}

	signed, err := bob.CompleteSigning(ctx, reply)
	if err != nil {
		t.Fatal(err)
	}
	if !signed.IsFullySigned() {
		t.Fatal("Transaction should be fully signed")
	}

	bobDeltas := models.ExpectedDeltas(models.NewOffer(unc5000, gold100))
	ok, err = bob.SatisfiesNegotiatedDeltas(ctx, signed, bobDeltas, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Bob pays the fee so zero tolerance should fail")
	}
	ok, err = bob.SatisfiesNegotiatedDeltas(ctx, signed, bobDeltas, DefaultMockFee)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Transaction should satisfy bob's deltas")
	}

	txid, err := bob.Publish(ctx, signed)
	if err != nil {
		t.Fatal(err)
	}
	expectedTxid, _ := signed.Txid()
	if txid.String() != expectedTxid {
		t.Errorf("Expected txid %s, got %s", expectedTxid, txid)
	}
	if network.PublishCount() != 1 {
		t.Errorf("Expected 1 published transaction, got %d", network.PublishCount())
	}

	checkBalance := func(l *MockLedger, color string, expected uint64) {
		balances, err := l.Balances()
		if err != nil {
			t.Fatal(err)
		}
		bal, ok := balances[color]
		if !ok {
			bal = iwallet.NewAmount(0)
		}
		if bal.Cmp(iwallet.NewAmount(expected)) != 0 {
			t.Errorf("Expected balance %d of %q, got %s", expected, color, bal)
		}
	}
	checkBalance(alice, goldColor, 50)
	checkBalance(alice, "", 5000)
	checkBalance(bob, goldColor, 100)
	checkBalance(bob, "", 10000-5000-DefaultMockFee)

	if _, err := bob.Publish(ctx, signed); !errors.Is(err, ErrBroadcast) {
		t.Errorf("Expected ErrBroadcast on double spend, got %v", err)
	}
	if network.PublishCount() != 1 {
		t.Errorf("Expected 1 published transaction, got %d", network.PublishCount())
	}
}

func TestMockLedger_PublishRejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate     func(tx *Transaction)
		signBefore bool
		resign     bool
	}{
		{ // Bob never signed his inputs
			name:   "unsigned input",
			mutate: func(tx *Transaction) {},
		},
		{ // Output changed after both parties signed
			name: "tampered output",
			mutate: func(tx *Transaction) {
				tx.Outputs[0].Value--
			},
			signBefore: true,
		},
		{ // Validly signed but creates gold out of nothing
			name: "inflated color",
			mutate: func(tx *Transaction) {
				tx.Outputs = append(tx.Outputs, TxOutput{Address: tx.Outputs[0].Address, ColorDesc: goldColor, Value: 1})
			},
			resign: true,
		},
		{ // Validly signed but pays out more uncolored than it spends
			name: "negative fee",
			mutate: func(tx *Transaction) {
				tx.Outputs = append(tx.Outputs, TxOutput{Address: tx.Outputs[0].Address, ColorDesc: "", Value: DefaultMockFee + 1})
			},
			resign: true,
		},
	}

	for _, test := range tests {
		network, alice, bob := setupSwap(t)
		spec, err := bob.BuildExchangeSpec(ctx, unc5000, gold100)
		if err != nil {
			t.Fatal(err)
		}
		tx, err := alice.BuildAndSignReply(ctx, spec, gold100, unc5000)
		if err != nil {
			t.Fatal(err)
		}
		if test.signBefore {
			tx, err = bob.CompleteSigning(ctx, tx)
			if err != nil {
				t.Fatal(err)
			}
		}
		test.mutate(tx)
		if test.resign {
			tx, err = alice.CompleteSigning(ctx, tx)
			if err != nil {
				t.Fatal(err)
			}
			tx, err = bob.CompleteSigning(ctx, tx)
			if err != nil {
				t.Fatal(err)
			}
		}

		if _, err := alice.Publish(ctx, tx); !errors.Is(err, ErrBroadcast) {
			t.Errorf("%s: expected ErrBroadcast, got %v", test.name, err)
		}
		if network.PublishCount() != 0 {
			t.Errorf("%s: expected nothing published", test.name)
		}
	}
}

func TestMockLedger_Errors(t *testing.T) {
	_, alice, bob := setupSwap(t)
	ctx := context.Background()

	if _, err := alice.BuildExchangeSpec(ctx, models.OfferSide{ColorDesc: goldColor, Value: 1000}, unc5000); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := alice.BuildExchangeSpec(ctx, models.OfferSide{ColorDesc: "epobc:silver", Value: 1}, unc5000); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("Expected ErrUnknownColor, got %v", err)
	}
	if _, err := alice.ResolveColorDescriptor("epobc:silver"); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("Expected ErrUnknownColor, got %v", err)
	}
	if _, err := alice.BuildAndSignReply(ctx, &models.TransactionSpec{}, gold100, unc5000); !errors.Is(err, ErrInvalidTransaction) {
		t.Errorf("Expected ErrInvalidTransaction, got %v", err)
	}

	// A spec spending the responder's own coins is refused.
	spec, err := alice.BuildExchangeSpec(ctx, gold100, unc5000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := alice.BuildAndSignReply(ctx, spec, gold100, unc5000); !errors.Is(err, ErrInvalidTransaction) {
		t.Errorf("Expected ErrInvalidTransaction, got %v", err)
	}

	// Bob cannot sign a transaction without any of his coins.
	reply, err := bob.BuildAndSignReply(ctx, spec, unc5000, gold100)
	if err != nil {
		t.Fatal(err)
	}
	other := newTestLedger(t, bob.Network())
	if _, err := other.CompleteSigning(ctx, reply); !errors.Is(err, ErrSigning) {
		t.Errorf("Expected ErrSigning, got %v", err)
	}
}

func TestMockLedger_DeltasMismatch(t *testing.T) {
	_, alice, bob := setupSwap(t)
	ctx := context.Background()

	spec, err := bob.BuildExchangeSpec(ctx, unc5000, gold100)
	if err != nil {
		t.Fatal(err)
	}
	// Alice is asked for 100 gold but only wants to give 90.
	reply, err := alice.BuildAndSignReply(ctx, spec, gold100, unc5000)
	if err != nil {
		t.Fatal(err)
	}
	deltas := models.ExpectedDeltas(models.NewOffer(models.OfferSide{ColorDesc: goldColor, Value: 90}, unc5000))
	ok, err := alice.SatisfiesNegotiatedDeltas(ctx, reply, deltas, 0)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Expected deltas to be unsatisfied")
	}
}

func TestTransaction_HexRoundTrip(t *testing.T) {
	_, alice, bob := setupSwap(t)
	ctx := context.Background()

	spec, err := bob.BuildExchangeSpec(ctx, unc5000, gold100)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := alice.BuildAndSignReply(ctx, spec, gold100, unc5000)
	if err != nil {
		t.Fatal(err)
	}
	h, err := reply.Hex()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeTransaction(h)
	if err != nil {
		t.Fatal(err)
	}
	id1, _ := reply.Txid()
	id2, _ := decoded.Txid()
	if id1 != id2 {
		t.Errorf("Expected txid %s, got %s", id1, id2)
	}

	if _, err := DecodeTransaction("zz"); !errors.Is(err, ErrInvalidTransaction) {
		t.Errorf("Expected ErrInvalidTransaction, got %v", err)
	}
}
