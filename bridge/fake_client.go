package bridge

import (
	"context"
	"fmt"
	"strings"

	"monallobridge/signer"
	"monallobridge/types"
)

// FakeClient is an in-memory Client for tests.
type FakeClient struct {
	ChainIDValue int
	Head         uint64
	HeadErr      error
	FilterErr    error

	// next SubmitMint/SubmitRelease call fails with this error, then resets
	MintErr    error
	ReleaseErr error

	MintCalls    []SubmitCall
	ReleaseCalls []SubmitCall

	events   []placedEvent
	txEvents map[string][]types.BridgeEvent
}

type SubmitCall struct {
	TokenAddress string
	Event        types.BridgeEvent
	Sig          signer.Signature
}

type placedEvent struct {
	block uint64
	ev    types.BridgeEvent
}

var _ Client = (*FakeClient)(nil)

func NewFakeClient(chainID int, head uint64) *FakeClient {
	return &FakeClient{
		ChainIDValue: chainID,
		Head:         head,
		txEvents:     make(map[string][]types.BridgeEvent),
	}
}

func (f *FakeClient) ChainID() int {
	return f.ChainIDValue
}

func (f *FakeClient) BlockNumber(_ context.Context) (uint64, error) {
	if f.HeadErr != nil {
		return 0, f.HeadErr
	}
	return f.Head, nil
}

// PlaceEvent makes an event observable at the given block height.
func (f *FakeClient) PlaceEvent(block uint64, ev types.BridgeEvent) {
	f.events = append(f.events, placedEvent{block: block, ev: ev})
	key := strings.ToLower(ev.SourceTxHash)
	f.txEvents[key] = append(f.txEvents[key], ev)
}

func (f *FakeClient) FilterEvents(_ context.Context, dir types.Direction, fromBlock, toBlock uint64) ([]types.BridgeEvent, error) {
	if f.FilterErr != nil {
		return nil, f.FilterErr
	}
	var out []types.BridgeEvent
	for _, pe := range f.events {
		if pe.ev.Direction == dir && pe.block >= fromBlock && pe.block <= toBlock {
			out = append(out, pe.ev)
		}
	}
	return out, nil
}

func (f *FakeClient) TransactionEvents(_ context.Context, txHash string) ([]types.BridgeEvent, error) {
	return f.txEvents[strings.ToLower(txHash)], nil
}

func (f *FakeClient) SubmitMint(_ context.Context, tokenAddress string, ev types.BridgeEvent, sig signer.Signature) (string, error) {
	if err := f.MintErr; err != nil {
		f.MintErr = nil
		return "", err
	}
	f.MintCalls = append(f.MintCalls, SubmitCall{TokenAddress: tokenAddress, Event: ev, Sig: sig})
	return fmt.Sprintf("0xfakemint%d", len(f.MintCalls)), nil
}

func (f *FakeClient) SubmitRelease(_ context.Context, ev types.BridgeEvent, sig signer.Signature) (string, error) {
	if err := f.ReleaseErr; err != nil {
		f.ReleaseErr = nil
		return "", err
	}
	f.ReleaseCalls = append(f.ReleaseCalls, SubmitCall{Event: ev, Sig: sig})
	return fmt.Sprintf("0xfakerelease%d", len(f.ReleaseCalls)), nil
}
