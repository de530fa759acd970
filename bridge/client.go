// Package bridge provides the per-chain read/write handle the relayer works
// through: event queries over block ranges, receipt lookups for manual
// relays, and signed mint/release submission.
package bridge

import (
	"context"

	"monallobridge/signer"
	"monallobridge/types"

	"github.com/pkg/errors"
)

// ErrNonceProcessed reports that the destination contract rejected the call
// because it has already processed this nonce. The effect happened exactly
// once, so callers treat this as an idempotent success.
var ErrNonceProcessed = errors.New("destination reports nonce already processed")

// Client is one chain seen through its configured RPC endpoints.
type Client interface {
	ChainID() int
	// BlockNumber returns the current head height.
	BlockNumber(ctx context.Context) (uint64, error)
	// FilterEvents queries and decodes bridge events of one direction in
	// [fromBlock, toBlock]. Undecodable logs are skipped with a warning.
	FilterEvents(ctx context.Context, dir types.Direction, fromBlock, toBlock uint64) ([]types.BridgeEvent, error)
	// TransactionEvents decodes bridge events out of a single transaction's
	// receipt. Returns (nil, nil) when the transaction is not on this chain.
	TransactionEvents(ctx context.Context, txHash string) ([]types.BridgeEvent, error)
	// SubmitMint calls mint() on the wrapped token at tokenAddress, waits
	// for confirmation, and returns the destination transaction hash.
	SubmitMint(ctx context.Context, tokenAddress string, ev types.BridgeEvent, sig signer.Signature) (string, error)
	// SubmitRelease calls release() on this chain's bridge-lock contract.
	SubmitRelease(ctx context.Context, ev types.BridgeEvent, sig signer.Signature) (string, error)
}
