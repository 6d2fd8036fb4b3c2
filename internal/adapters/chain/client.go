// Package chain implements the control-plane client for a node's RPC
// endpoint using go-ethereum's JSON-RPC client.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// Client wraps a JSON-RPC connection to one node instance. It covers the
// minimal control surface the core needs: liveness queries plus the
// node-native snapshot/revert/impersonation primitives.
type Client struct {
	rpc *rpc.Client
}

// Dial opens a client against an RPC URL.
func Dial(rpcURL string) (*Client, error) {
	c, err := rpc.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return &Client{rpc: c}, nil
}

// ProvideDialer adapts Dial to the usecase.ChainDialer port.
func ProvideDialer() usecase.ChainDialer {
	return func(rpcURL string) (usecase.ChainClient, error) {
		return Dial(rpcURL)
	}
}

// BlockNumber returns the current block height. Used as the liveness probe.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	return uint64(result), nil
}

// ChainID returns the chain identifier reported by the node.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("eth_chainId failed: %w", err)
	}
	return result.ToInt().Uint64(), nil
}

// rpcBlock is the subset of the block header the registry records.
type rpcBlock struct {
	Number    hexutil.Uint64 `json:"number"`
	Hash      common.Hash    `json:"hash"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// LatestBlock returns the chain position of the latest block.
func (c *Client) LatestBlock(ctx context.Context) (*domain.BlockInfo, error) {
	var block rpcBlock
	if err := c.rpc.CallContext(ctx, &block, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber failed: %w", err)
	}
	return &domain.BlockInfo{
		Number:    uint64(block.Number),
		Hash:      block.Hash,
		Timestamp: uint64(block.Timestamp),
	}, nil
}

// BalanceAt returns the latest balance of an address.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "eth_getBalance", addr, "latest"); err != nil {
		return nil, fmt.Errorf("eth_getBalance failed: %w", err)
	}
	return result.ToInt(), nil
}

// Snapshot invokes the node's native snapshot primitive and returns the
// opaque token it issued.
func (c *Client) Snapshot(ctx context.Context) (string, error) {
	var token string
	if err := c.rpc.CallContext(ctx, &token, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("evm_snapshot failed: %w", err)
	}
	return token, nil
}

// Revert invokes the node's native revert primitive. The node is
// authoritative: a false result means it rejected the token.
func (c *Client) Revert(ctx context.Context, token string) (bool, error) {
	var ok bool
	if err := c.rpc.CallContext(ctx, &ok, "evm_revert", token); err != nil {
		return false, fmt.Errorf("evm_revert failed: %w", err)
	}
	return ok, nil
}

// ImpersonateAccount enables sending transactions from addr without its key.
func (c *Client) ImpersonateAccount(ctx context.Context, addr common.Address) error {
	if err := c.rpc.CallContext(ctx, nil, "anvil_impersonateAccount", addr); err != nil {
		return fmt.Errorf("anvil_impersonateAccount failed: %w", err)
	}
	return nil
}

// StopImpersonating disables impersonation of addr.
func (c *Client) StopImpersonating(ctx context.Context, addr common.Address) error {
	if err := c.rpc.CallContext(ctx, nil, "anvil_stopImpersonatingAccount", addr); err != nil {
		return fmt.Errorf("anvil_stopImpersonatingAccount failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

var _ usecase.ChainClient = (*Client)(nil)
