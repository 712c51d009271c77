package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/cpacia/colorswap/models"
	"github.com/cpacia/proxyclient"
	iwallet "github.com/cpacia/wallet-interface"
	"github.com/pkg/errors"
	"math/big"
	"net/http"
	"time"
)

// Error codes returned by the ledger daemon.
const (
	rpcCodeInsufficientFunds = -1
	rpcCodeUnknownColor      = -2
	rpcCodeSigning           = -3
	rpcCodeBroadcast         = -4
	rpcCodeInvalidTx         = -5
)

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// RPCClient is a Ledger backed by an external ledger daemon speaking
// JSON over HTTP. Every call is a POST of {method, params} answered by
// {result, error}.
type RPCClient struct {
	url    string
	client *http.Client
}

// NewRPCClient returns a client for the daemon at url. The connection
// goes through the proxy configured for proxyclient, if any.
func NewRPCClient(url string) *RPCClient {
	client := proxyclient.NewHttpClient()
	client.Timeout = time.Minute

	return &RPCClient{
		url:    url,
		client: client,
	}
}

// ResolveColorDescriptor asks the daemon for the definition of desc.
func (c *RPCClient) ResolveColorDescriptor(desc string) (ColorDefinition, error) {
	var def ColorDefinition
	err := c.call(context.Background(), "resolvecolor", []interface{}{desc}, &def)
	return def, err
}

// BuildExchangeSpec asks the daemon for an exchange spec.
func (c *RPCClient) BuildExchangeSpec(ctx context.Context, give, want models.OfferSide) (*models.TransactionSpec, error) {
	var spec models.TransactionSpec
	if err := c.call(ctx, "buildexchangespec", []interface{}{give, want}, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// BuildAndSignReply asks the daemon to complete and sign spec.
func (c *RPCClient) BuildAndSignReply(ctx context.Context, spec *models.TransactionSpec, give, want models.OfferSide) (*Transaction, error) {
	var tx Transaction
	if err := c.call(ctx, "buildandsignreply", []interface{}{spec, give, want}, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CompleteSigning asks the daemon to sign our inputs of tx.
func (c *RPCClient) CompleteSigning(ctx context.Context, tx *Transaction) (*Transaction, error) {
	var signed Transaction
	if err := c.call(ctx, "completesigning", []interface{}{tx}, &signed); err != nil {
		return nil, err
	}
	return &signed, nil
}

// SatisfiesNegotiatedDeltas asks the daemon to check tx against deltas.
func (c *RPCClient) SatisfiesNegotiatedDeltas(ctx context.Context, tx *Transaction, deltas []models.ColorDelta, feeTolerance uint64) (bool, error) {
	var ok bool
	err := c.call(ctx, "satisfiesdeltas", []interface{}{tx, deltas, feeTolerance}, &ok)
	return ok, err
}

// Publish asks the daemon to broadcast tx.
func (c *RPCClient) Publish(ctx context.Context, tx *Transaction) (iwallet.TransactionID, error) {
	var txid string
	if err := c.call(ctx, "publish", []interface{}{tx}, &txid); err != nil {
		return "", err
	}
	return iwallet.TransactionID(txid), nil
}

// Balances asks the daemon for our balance per color. Values are
// decimal strings on the wire.
func (c *RPCClient) Balances() (map[string]iwallet.Amount, error) {
	var raw map[string]string
	if err := c.call(context.Background(), "balances", []interface{}{}, &raw); err != nil {
		return nil, err
	}
	balances := make(map[string]iwallet.Amount, len(raw))
	for color, val := range raw {
		n, ok := new(big.Int).SetString(val, 10)
		if !ok || n.Sign() < 0 {
			return nil, errors.Errorf("ledger daemon returned malformed balance %q for color %q", val, color)
		}
		balances[color] = iwallet.NewAmount(n)
	}
	return balances, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(&rpcRequest{Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return errors.Wrapf(err, "decoding %s response (status %d)", method, resp.StatusCode)
	}
	if rpcResp.Error != nil {
		return mapRPCError(rpcResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s returned status %d", method, resp.StatusCode)
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return errors.Wrapf(err, "decoding %s result", method)
	}
	return nil
}

func mapRPCError(e *rpcError) error {
	switch e.Code {
	case rpcCodeInsufficientFunds:
		return errors.Wrap(ErrInsufficientFunds, e.Message)
	case rpcCodeUnknownColor:
		return errors.Wrap(ErrUnknownColor, e.Message)
	case rpcCodeSigning:
		return errors.Wrap(ErrSigning, e.Message)
	case rpcCodeBroadcast:
		return errors.Wrap(ErrBroadcast, e.Message)
	case rpcCodeInvalidTx:
		return errors.Wrap(ErrInvalidTransaction, e.Message)
	default:
		return errors.Errorf("ledger rpc error %d: %s", e.Code, e.Message)
	}
}
