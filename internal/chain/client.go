// Package chain abstracts the RPC endpoint the sync worker tails and
// decodes its raw logs into the escrow contract's named events.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"synnergy-network/internal/domain"
	"synnergy-network/pkg/utils"
)

// RawLog is the chain-agnostic shape the Chain Client returns, matching
// spec.md §4.1.
type RawLog struct {
	Address     string
	Topics      [][32]byte
	Data        []byte
	BlockNumber uint64
	BlockHash   [32]byte
	TxHash      [32]byte
	LogIndex    uint32
}

// SortLogs orders logs by (block number, log index), since the remote may
// return them in arbitrary order within a block (spec.md §4.1).
func SortLogs(logs []RawLog) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].LogIndex < logs[j].LogIndex
	})
}

// Client is the Chain Client contract from spec.md §4.1.
type Client interface {
	CurrentBlock(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, fromBlock, toBlock uint64, contractAddress string) ([]RawLog, error)
	TopicHashOf(signature string) [32]byte
}

// RPCClient is the production Client backed by an Ethereum-style JSON-RPC
// endpoint via go-ethereum's ethclient, the library every RPC-chain
// consumer in the retrieval pack uses for this job (see DESIGN.md).
type RPCClient struct {
	eth *ethclient.Client
}

// Dial connects to the given RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*RPCClient, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, utils.Wrap(wrapUnavailable(err), "dial rpc")
	}
	return &RPCClient{eth: c}, nil
}

// Close releases the underlying RPC connection.
func (c *RPCClient) Close() {
	c.eth.Close()
}

// CurrentBlock returns the chain's current block height.
func (c *RPCClient) CurrentBlock(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, utils.Wrap(wrapUnavailable(err), "current block")
	}
	return n, nil
}

// maxRangeBlocks bounds a single eth_getLogs call; callers that ask for a
// wider range get RangeTooLarge instead of an unbounded RPC request.
const maxRangeBlocks = 50_000

// GetLogs fetches logs over [fromBlock, toBlock] inclusive, matching
// spec.md §4.1.
func (c *RPCClient) GetLogs(ctx context.Context, fromBlock, toBlock uint64, contractAddress string) ([]RawLog, error) {
	if toBlock < fromBlock {
		return nil, nil
	}
	if toBlock-fromBlock+1 > maxRangeBlocks {
		return nil, fmt.Errorf("%w: requested %d blocks, max %d", domain.ErrRangeTooLarge, toBlock-fromBlock+1, maxRangeBlocks)
	}

	addr := common.HexToAddress(contractAddress)
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{addr},
	}

	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, utils.Wrap(wrapUnavailable(err), "get logs")
	}

	out := make([]RawLog, 0, len(logs))
	for _, l := range logs {
		topics := make([][32]byte, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = t
		}
		out = append(out, RawLog{
			Address:     l.Address.Hex(),
			Topics:      topics,
			Data:        l.Data,
			BlockNumber: l.BlockNumber,
			BlockHash:   l.BlockHash,
			TxHash:      l.TxHash,
			LogIndex:    uint32(l.Index),
		})
	}
	return out, nil
}

// TopicHashOf computes the keccak-256 topic hash of a canonical event
// signature ("Name(type1,type2,...)"). Pure — no network call.
func (c *RPCClient) TopicHashOf(signature string) [32]byte {
	return crypto.Keccak256Hash([]byte(signature))
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrChainUnavailable, err)
}

// LazyClient defers dialing until first use and redials on demand,
// letting the process start even when the RPC endpoint is unreachable at
// boot — that failure is not fatal per spec.md §6, the worker logs and
// retries instead.
type LazyClient struct {
	rpcURL string
	mu     sync.Mutex
	inner  *RPCClient
}

// NewLazyClient returns a Client that dials rpcURL on first use.
func NewLazyClient(rpcURL string) *LazyClient {
	return &LazyClient{rpcURL: rpcURL}
}

func (l *LazyClient) ensure(ctx context.Context) (*RPCClient, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner != nil {
		return l.inner, nil
	}
	c, err := Dial(ctx, l.rpcURL)
	if err != nil {
		return nil, err
	}
	l.inner = c
	return c, nil
}

// CurrentBlock implements Client.
func (l *LazyClient) CurrentBlock(ctx context.Context) (uint64, error) {
	c, err := l.ensure(ctx)
	if err != nil {
		return 0, err
	}
	return c.CurrentBlock(ctx)
}

// GetLogs implements Client.
func (l *LazyClient) GetLogs(ctx context.Context, fromBlock, toBlock uint64, contractAddress string) ([]RawLog, error) {
	c, err := l.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetLogs(ctx, fromBlock, toBlock, contractAddress)
}

// TopicHashOf implements Client. Pure, so it never needs a live dial.
func (l *LazyClient) TopicHashOf(signature string) [32]byte {
	return crypto.Keccak256Hash([]byte(signature))
}
