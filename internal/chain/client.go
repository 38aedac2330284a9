// Package chain cross-checks transactions and balances against an EVM node.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Receipt states reported by ReceiptStatus. They match the API's
// transaction statuses so the two can be compared directly.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Backend is the subset of ethclient.Client used here. The simulated
// backend's client satisfies it too.
type Backend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type Client struct {
	eth    Backend
	closer func()
}

// Dial connects to the JSON-RPC endpoint at rpcURL.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewClient(rc), nil
}

// NewClient wraps an existing RPC connection.
func NewClient(rc *rpc.Client) *Client {
	eth := ethclient.NewClient(rc)
	return &Client{eth: eth, closer: eth.Close}
}

// FromBackend wraps any Backend; Close is a no-op.
func FromBackend(b Backend) *Client {
	return &Client{eth: b}
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// ParseTxHash accepts a 32-byte hex hash with or without the 0x prefix.
func ParseTxHash(s string) (common.Hash, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 64 {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	b, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q: %w", s, err)
	}
	return common.BytesToHash(b), nil
}

// ReceiptStatus reports confirmed for a successful receipt, failed for a
// reverted one and pending when the node has no receipt yet.
func (c *Client) ReceiptStatus(ctx context.Context, txHash string) (string, error) {
	h, err := ParseTxHash(txHash)
	if err != nil {
		return "", err
	}
	receipt, err := c.eth.TransactionReceipt(ctx, h)
	if errors.Is(err, ethereum.NotFound) {
		return StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("TransactionReceipt: %w", err)
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return StatusConfirmed, nil
	}
	return StatusFailed, nil
}

// NativeBalance returns addr's balance in wei at the latest block.
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("BalanceAt: %w", err)
	}
	return bal, nil
}

// Head returns the chain ID and latest block number.
func (c *Client) Head(ctx context.Context) (chainID *big.Int, block uint64, err error) {
	chainID, err = c.eth.ChainID(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("ChainID: %w", err)
	}
	block, err = c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("BlockNumber: %w", err)
	}
	return chainID, block, nil
}

var weiPerEther = big.NewInt(1_000_000_000_000_000_000)

// FormatEther renders wei as a decimal ether amount without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, weiPerEther).FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
