package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	hd "github.com/btcsuite/btcutil/hdkeychain"
	"github.com/cpacia/colorswap/models"
	iwallet "github.com/cpacia/wallet-interface"
	"github.com/pkg/errors"
	"sort"
	"sync"
)

// DefaultMockFee is the fee charged to whichever party funds the
// uncolored leg of a swap.
const DefaultMockFee = 1000

var mockParams = &chaincfg.RegressionNetParams

// mockUtxo is used for internal accounting.
type mockUtxo struct {
	ref     models.UTXORef
	address string
	color   string
	value   uint64
}

// MockNetwork is an in-memory colored coin ledger shared by a set of
// mock ledgers. It validates and applies published transactions the
// way a real network would: signatures must be valid, inputs unspent
// and every color conserved. Only the uncolored unit may shrink, by
// the fee.
type MockNetwork struct {
	mtx sync.RWMutex

	colors    map[string]ColorDefinition
	utxos     map[string]mockUtxo
	published []string
}

// NewMockNetwork returns a network that knows only the uncolored unit.
func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		colors: map[string]ColorDefinition{
			"": {Desc: "", Name: "uncolored", Divisibility: 8},
		},
		utxos: make(map[string]mockUtxo),
	}
}

// RegisterColor makes a color known to the network.
func (n *MockNetwork) RegisterColor(def ColorDefinition) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.colors[def.Desc] = def
}

// NewLedger returns a ledger connected to this network with keys
// derived from seed.
func (n *MockNetwork) NewLedger(seed []byte) (*MockLedger, error) {
	master, err := hd.NewMaster(seed, mockParams)
	if err != nil {
		return nil, err
	}
	account, err := master.Child(hd.HardenedKeyStart)
	if err != nil {
		return nil, err
	}
	return &MockLedger{
		network: n,
		account: account,
		keys:    make(map[string]*btcec.PrivateKey),
		fee:     DefaultMockFee,
	}, nil
}

// GenerateToAddress creates new coins of the given color out of thin
// air and sends them to the requested address.
func (n *MockNetwork) GenerateToAddress(addr string, color string, value uint64) (models.UTXORef, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	if _, ok := n.colors[color]; !ok {
		return models.UTXORef{}, errors.Wrapf(ErrUnknownColor, "color %q", color)
	}
	if _, err := btcutil.DecodeAddress(addr, mockParams); err != nil {
		return models.UTXORef{}, errors.Wrap(ErrInvalidTransaction, err.Error())
	}

	b := make([]byte, 32)
	rand.Read(b)
	ref := models.UTXORef{TxHash: chainhash.DoubleHashH(b).String(), Index: 0}
	n.utxos[ref.String()] = mockUtxo{
		ref:     ref,
		address: addr,
		color:   color,
		value:   value,
	}
	return ref, nil
}

// PublishCount returns the number of transactions accepted so far.
func (n *MockNetwork) PublishCount() int {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	return len(n.published)
}

// Published returns the IDs of all accepted transactions in order.
func (n *MockNetwork) Published() []string {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	ret := make([]string, len(n.published))
	copy(ret, n.published)
	return ret
}

func (n *MockNetwork) resolve(desc string) (ColorDefinition, bool) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	def, ok := n.colors[desc]
	return def, ok
}

func (n *MockNetwork) lookup(ref models.UTXORef) (mockUtxo, bool) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	utxo, ok := n.utxos[ref.String()]
	return utxo, ok
}

// unspent returns the unspent outputs paying to one of addrs, sorted
// by outpoint so coin selection is deterministic.
func (n *MockNetwork) unspent(addrs map[string]*btcec.PrivateKey) []mockUtxo {
	n.mtx.RLock()
	defer n.mtx.RUnlock()

	var ret []mockUtxo
	for _, utxo := range n.utxos {
		if _, ok := addrs[utxo.address]; ok {
			ret = append(ret, utxo)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].ref.String() < ret[j].ref.String()
	})
	return ret
}

func (n *MockNetwork) publish(tx *Transaction) (string, error) {
	sighash, err := tx.SigHash()
	if err != nil {
		return "", errors.Wrap(ErrBroadcast, err.Error())
	}
	txid := sighash.String()

	n.mtx.Lock()
	defer n.mtx.Unlock()

	if len(tx.Inputs) == 0 || len(tx.Outputs) == 0 {
		return "", errors.Wrap(ErrBroadcast, "transaction has no inputs or outputs")
	}

	var (
		inTotals  = make(map[string]uint64)
		outTotals = make(map[string]uint64)
		seen      = make(map[string]bool)
	)
	for i, in := range tx.Inputs {
		key := in.Prev.String()
		if seen[key] {
			return "", errors.Wrapf(ErrBroadcast, "input %d spends %s twice", i, key)
		}
		seen[key] = true

		utxo, ok := n.utxos[key]
		if !ok {
			return "", errors.Wrapf(ErrBroadcast, "input %d spends missing or spent output %s", i, key)
		}
		if err := verifyInput(in, utxo.address, sighash); err != nil {
			return "", errors.Wrapf(ErrBroadcast, "input %d: %s", i, err)
		}
		inTotals[utxo.color] += utxo.value
	}
	for i, out := range tx.Outputs {
		if _, ok := n.colors[out.ColorDesc]; !ok {
			return "", errors.Wrapf(ErrBroadcast, "output %d has unknown color %q", i, out.ColorDesc)
		}
		if _, err := btcutil.DecodeAddress(out.Address, mockParams); err != nil {
			return "", errors.Wrapf(ErrBroadcast, "output %d: %s", i, err)
		}
		outTotals[out.ColorDesc] += out.Value
	}
	for color := range n.colors {
		if color == "" {
			if outTotals[color] > inTotals[color] {
				return "", errors.Wrap(ErrBroadcast, "uncolored outputs exceed inputs")
			}
			continue
		}
		if outTotals[color] != inTotals[color] {
			return "", errors.Wrapf(ErrBroadcast, "color %q is not conserved", color)
		}
	}

	for key := range seen {
		delete(n.utxos, key)
	}
	for i, out := range tx.Outputs {
		ref := models.UTXORef{TxHash: txid, Index: uint32(i)}
		n.utxos[ref.String()] = mockUtxo{
			ref:     ref,
			address: out.Address,
			color:   out.ColorDesc,
			value:   out.Value,
		}
	}
	n.published = append(n.published, txid)
	return txid, nil
}

func verifyInput(in TxInput, address string, sighash chainhash.Hash) error {
	if !in.IsSigned() {
		return errors.New("input is not signed")
	}
	pubBytes, err := hex.DecodeString(in.PubKey)
	if err != nil {
		return err
	}
	pub, err := btcec.ParsePubKey(pubBytes, btcec.S256())
	if err != nil {
		return err
	}
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), mockParams)
	if err != nil {
		return err
	}
	if addr.EncodeAddress() != address {
		return errors.New("public key does not match spent output")
	}
	sigBytes, err := hex.DecodeString(in.Signature)
	if err != nil {
		return err
	}
	sig, err := btcec.ParseDERSignature(sigBytes, btcec.S256())
	if err != nil {
		return err
	}
	if !sig.Verify(sighash[:], pub) {
		return errors.New("invalid signature")
	}
	return nil
}

// MockLedger is a Ledger backed by a MockNetwork. Keys are derived
// from a seed along m/0'/i and every address is a regtest P2PKH
// address.
type MockLedger struct {
	mtx sync.Mutex

	network   *MockNetwork
	account   *hd.ExtendedKey
	keys      map[string]*btcec.PrivateKey
	nextIndex uint32
	fee       uint64
}

// Network returns the network this ledger is connected to.
func (l *MockLedger) Network() *MockNetwork {
	return l.network
}

// SetFee sets the fee charged when this ledger funds an uncolored leg.
func (l *MockLedger) SetFee(fee uint64) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.fee = fee
}

// NewAddress returns a fresh address owned by this ledger.
func (l *MockLedger) NewAddress() (string, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.newAddress()
}

func (l *MockLedger) newAddress() (string, error) {
	for {
		key, err := l.account.Child(l.nextIndex)
		l.nextIndex++
		if err == hd.ErrInvalidChild {
			continue
		} else if err != nil {
			return "", err
		}
		priv, err := key.ECPrivKey()
		if err != nil {
			return "", err
		}
		addr, err := key.Address(mockParams)
		if err != nil {
			return "", err
		}
		l.keys[addr.EncodeAddress()] = priv
		return addr.EncodeAddress(), nil
	}
}

// Fund generates coins of the given color to a new address of ours.
func (l *MockLedger) Fund(color string, value uint64) error {
	addr, err := l.NewAddress()
	if err != nil {
		return err
	}
	_, err = l.network.GenerateToAddress(addr, color, value)
	return err
}

// ResolveColorDescriptor returns the network's definition of desc.
func (l *MockLedger) ResolveColorDescriptor(desc string) (ColorDefinition, error) {
	def, ok := l.network.resolve(desc)
	if !ok {
		return def, errors.Wrapf(ErrUnknownColor, "color %q", desc)
	}
	return def, nil
}

// BuildExchangeSpec selects our coins worth give and asks for want to
// be paid to a fresh address.
func (l *MockLedger) BuildExchangeSpec(ctx context.Context, give, want models.OfferSide) (*models.TransactionSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.resolveSides(give, want); err != nil {
		return nil, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	needed := give.Value
	if give.IsUncolored() {
		needed += l.fee
	}
	coins, total, err := l.selectCoins(give.ColorDesc, needed)
	if err != nil {
		return nil, err
	}

	recv, err := l.newAddress()
	if err != nil {
		return nil, err
	}
	spec := &models.TransactionSpec{
		Inputs: make(map[string][]models.UTXORef),
		Targets: []models.Target{
			{Address: recv, ColorDesc: want.ColorDesc, Value: want.Value},
		},
	}
	for _, coin := range coins {
		spec.Inputs[give.ColorDesc] = append(spec.Inputs[give.ColorDesc], coin.ref)
	}
	if total > needed {
		change, err := l.newAddress()
		if err != nil {
			return nil, err
		}
		spec.Targets = append(spec.Targets, models.Target{Address: change, ColorDesc: give.ColorDesc, Value: total - needed})
	}
	log.Debugf("Built exchange spec giving %d of %q for %d of %q", give.Value, give.ColorDesc, want.Value, want.ColorDesc)
	return spec, nil
}

// BuildAndSignReply completes the counterparty's spec with our legs and
// signs our inputs.
func (l *MockLedger) BuildAndSignReply(ctx context.Context, spec *models.TransactionSpec, give, want models.OfferSide) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.IsEmpty() {
		return nil, errors.Wrap(ErrInvalidTransaction, "empty spec")
	}
	if err := l.resolveSides(give, want); err != nil {
		return nil, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	tx := &Transaction{}

	colors := make([]string, 0, len(spec.Inputs))
	for color := range spec.Inputs {
		colors = append(colors, color)
	}
	sort.Strings(colors)
	for _, color := range colors {
		for _, ref := range spec.Inputs[color] {
			utxo, ok := l.network.lookup(ref)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidTransaction, "spec input %s is missing or spent", ref)
			}
			if utxo.color != color {
				return nil, errors.Wrapf(ErrInvalidTransaction, "spec input %s is not of color %q", ref, color)
			}
			if _, ok := l.keys[utxo.address]; ok {
				return nil, errors.Wrapf(ErrInvalidTransaction, "spec input %s is ours", ref)
			}
			tx.Inputs = append(tx.Inputs, TxInput{Prev: ref})
		}
	}
	for _, target := range spec.Targets {
		if _, ok := l.network.resolve(target.ColorDesc); !ok {
			return nil, errors.Wrapf(ErrUnknownColor, "color %q", target.ColorDesc)
		}
		if _, err := btcutil.DecodeAddress(target.Address, mockParams); err != nil {
			return nil, errors.Wrapf(ErrInvalidTransaction, "target address %s: %s", target.Address, err)
		}
		tx.Outputs = append(tx.Outputs, TxOutput{Address: target.Address, ColorDesc: target.ColorDesc, Value: target.Value})
	}

	needed := give.Value
	if give.IsUncolored() {
		needed += l.fee
	}
	coins, total, err := l.selectCoins(give.ColorDesc, needed)
	if err != nil {
		return nil, err
	}
	for _, coin := range coins {
		tx.Inputs = append(tx.Inputs, TxInput{Prev: coin.ref})
	}

	recv, err := l.newAddress()
	if err != nil {
		return nil, err
	}
	tx.Outputs = append(tx.Outputs, TxOutput{Address: recv, ColorDesc: want.ColorDesc, Value: want.Value})
	if total > needed {
		change, err := l.newAddress()
		if err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, TxOutput{Address: change, ColorDesc: give.ColorDesc, Value: total - needed})
	}

	if err := l.sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CompleteSigning signs the inputs of tx that spend our coins.
func (l *MockLedger) CompleteSigning(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	signed := tx.Clone()
	if err := l.sign(signed); err != nil {
		return nil, err
	}
	return signed, nil
}

// SatisfiesNegotiatedDeltas computes the net change tx makes to our
// holdings per color and compares it to deltas.
func (l *MockLedger) SatisfiesNegotiatedDeltas(ctx context.Context, tx *Transaction, deltas []models.ColorDelta, feeTolerance uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	var (
		actual   = make(map[string]int64)
		expected = make(map[string]int64)
	)
	for _, in := range tx.Inputs {
		utxo, ok := l.network.lookup(in.Prev)
		if !ok {
			return false, errors.Wrapf(ErrInvalidTransaction, "input %s is missing or spent", in.Prev)
		}
		if _, ok := l.keys[utxo.address]; ok {
			actual[utxo.color] -= int64(utxo.value)
		}
	}
	for _, out := range tx.Outputs {
		if _, ok := l.keys[out.Address]; ok {
			actual[out.ColorDesc] += int64(out.Value)
		}
	}
	for _, d := range deltas {
		expected[d.ColorDesc] += d.Value
	}

	colors := make(map[string]struct{})
	for c := range actual {
		colors[c] = struct{}{}
	}
	for c := range expected {
		colors[c] = struct{}{}
	}
	for c := range colors {
		a, e := actual[c], expected[c]
		if c == "" {
			if a < e-int64(feeTolerance) {
				log.Debugf("Uncolored delta %d below expected %d with tolerance %d", a, e, feeTolerance)
				return false, nil
			}
			continue
		}
		if a != e {
			log.Debugf("Delta for color %q is %d, expected %d", c, a, e)
			return false, nil
		}
	}
	return true, nil
}

// Publish broadcasts tx to the mock network.
func (l *MockLedger) Publish(ctx context.Context, tx *Transaction) (iwallet.TransactionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	txid, err := l.network.publish(tx)
	if err != nil {
		return "", err
	}
	log.Infof("Published transaction %s", txid)
	return iwallet.TransactionID(txid), nil
}

// Balances returns our unspent value per color.
func (l *MockLedger) Balances() (map[string]iwallet.Amount, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	balances := make(map[string]iwallet.Amount)
	for _, utxo := range l.network.unspent(l.keys) {
		bal, ok := balances[utxo.color]
		if !ok {
			bal = iwallet.NewAmount(0)
		}
		balances[utxo.color] = bal.Add(iwallet.NewAmount(utxo.value))
	}
	return balances, nil
}

func (l *MockLedger) resolveSides(give, want models.OfferSide) error {
	if _, err := l.ResolveColorDescriptor(give.ColorDesc); err != nil {
		return err
	}
	_, err := l.ResolveColorDescriptor(want.ColorDesc)
	return err
}

// selectCoins must be called with the lock held.
func (l *MockLedger) selectCoins(color string, amount uint64) ([]mockUtxo, uint64, error) {
	var (
		selected []mockUtxo
		total    uint64
	)
	if amount == 0 {
		return nil, 0, nil
	}
	for _, utxo := range l.network.unspent(l.keys) {
		if utxo.color != color {
			continue
		}
		selected = append(selected, utxo)
		total += utxo.value
		if total >= amount {
			return selected, total, nil
		}
	}
	return nil, 0, errors.Wrapf(ErrInsufficientFunds, "need %d of %q, have %d", amount, color, total)
}

// sign must be called with the lock held.
func (l *MockLedger) sign(tx *Transaction) error {
	sighash, err := tx.SigHash()
	if err != nil {
		return errors.Wrap(ErrSigning, err.Error())
	}
	signed := 0
	for i, in := range tx.Inputs {
		utxo, ok := l.network.lookup(in.Prev)
		if !ok {
			continue
		}
		priv, ok := l.keys[utxo.address]
		if !ok {
			continue
		}
		sig, err := priv.Sign(sighash[:])
		if err != nil {
			return errors.Wrap(ErrSigning, err.Error())
		}
		tx.Inputs[i].PubKey = hex.EncodeToString(priv.PubKey().SerializeCompressed())
		tx.Inputs[i].Signature = hex.EncodeToString(sig.Serialize())
		signed++
	}
	if signed == 0 {
		return errors.Wrap(ErrSigning, "no inputs spend our coins")
	}
	return nil
}

// String implements fmt.Stringer for debugging output.
func (u mockUtxo) String() string {
	return fmt.Sprintf("%s %d %q -> %s", u.ref, u.value, u.color, u.address)
}
