package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Minimal ERC-20 surface: read-only calls, no gas, no signing.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// Config holds RPC endpoint settings for the reader.
type Config struct {
	RPCURLs []string
	Timeout time.Duration
}

// Reader issues read-only ERC-20 calls against a token contract. Endpoints
// are dialed lazily and rotated past on transport failure, so a dead primary
// does not stall every cycle.
type Reader struct {
	cfg   Config
	token common.Address
	erc20 abi.ABI
	log   *slog.Logger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
	primary int
}

// NewReader creates a reader for the given token contract.
func NewReader(cfg Config, tokenAddress string) (*Reader, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, errors.New("no rpc endpoints configured")
	}
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token address: %s", tokenAddress)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	return &Reader{
		cfg:     cfg,
		token:   common.HexToAddress(tokenAddress),
		erc20:   parsed,
		log:     slog.Default().With("component", "evm"),
		clients: make(map[string]*ethclient.Client),
	}, nil
}

// BalanceOf returns the raw token balance of the account, in base units.
func (r *Reader) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid account address: %s", account)
	}

	data, err := r.erc20.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	out, err := r.call(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf failed: %w", err)
	}

	results, err := r.erc20.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return balance, nil
}

// Decimals returns the token's decimals value.
func (r *Reader) Decimals(ctx context.Context) (int, error) {
	data, err := r.erc20.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack decimals: %w", err)
	}

	out, err := r.call(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("decimals failed: %w", err)
	}

	results, err := r.erc20.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("failed to unpack decimals: %w", err)
	}
	decimals, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result type %T", results[0])
	}
	return int(decimals), nil
}

// call executes an eth_call against the token contract, starting at the
// current primary endpoint and rotating on failure.
func (r *Reader) call(ctx context.Context, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &r.token, Data: data}

	r.mu.Lock()
	start := r.primary
	r.mu.Unlock()

	var lastErr error
	for i := range r.cfg.RPCURLs {
		idx := (start + i) % len(r.cfg.RPCURLs)
		url := r.cfg.RPCURLs[idx]

		client, err := r.client(ctx, url)
		if err != nil {
			lastErr = err
			r.demote(idx)
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		out, err := client.CallContract(callCtx, msg, nil)
		cancel()
		if err != nil {
			lastErr = err
			r.log.Debug("rpc endpoint failed, rotating", "url", url, "error", err)
			r.demote(idx)
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("all rpc endpoints failed: %w", lastErr)
}

// client returns a cached connection for the endpoint, dialing on first use.
func (r *Reader) client(ctx context.Context, url string) (*ethclient.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[url]; ok {
		return c, nil
	}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	r.clients[url] = c
	return c, nil
}

// demote moves the primary past a failed endpoint so the next call starts at
// the first endpoint that was not just seen failing.
func (r *Reader) demote(failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.primary == failed {
		r.primary = (failed + 1) % len(r.cfg.RPCURLs)
	}
}

// Close closes all dialed connections.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		c.Close()
	}
	r.clients = make(map[string]*ethclient.Client)
}
