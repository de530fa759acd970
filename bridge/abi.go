package bridge

import (
	"math/big"
	"strings"

	"monallobridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ABI fragments of the bridge-lock and wrapped-token contracts: the two
// events the relayer observes and the two gated calls it authorizes.
const bridgeABIJSON = `[
	{"type":"event","name":"Locked","inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"recipient","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"destinationChainId","type":"uint256","indexed":false},
		{"name":"nonce","type":"uint256","indexed":true}]},
	{"type":"event","name":"UnlockRequested","inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"recipient","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"destinationChainId","type":"uint256","indexed":false},
		{"name":"nonce","type":"uint256","indexed":true}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"sourceChainId","type":"uint256"},
		{"name":"sourceTxHash","type":"bytes32"},
		{"name":"nonce","type":"uint256"},
		{"name":"v","type":"uint8"},
		{"name":"r","type":"bytes32"},
		{"name":"s","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"release","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"sourceChainId","type":"uint256"},
		{"name":"sourceTxHash","type":"bytes32"},
		{"name":"nonce","type":"uint256"},
		{"name":"v","type":"uint8"},
		{"name":"r","type":"bytes32"},
		{"name":"s","type":"bytes32"}],"outputs":[]}
]`

var bridgeABI abi.ABI

var lockedTopic common.Hash
var unlockRequestedTopic common.Hash

func init() {
	parsed, err := abi.JSON(strings.NewReader(bridgeABIJSON))
	if err != nil {
		panic(err)
	}
	bridgeABI = parsed
	lockedTopic = bridgeABI.Events["Locked"].ID
	unlockRequestedTopic = bridgeABI.Events["UnlockRequested"].ID
}

func eventName(dir types.Direction) string {
	if dir == types.DIRECTION_UNLOCK {
		return "UnlockRequested"
	}
	return "Locked"
}

func eventTopic(dir types.Direction) common.Hash {
	if dir == types.DIRECTION_UNLOCK {
		return unlockRequestedTopic
	}
	return lockedTopic
}

// decodeEvent turns one Locked or UnlockRequested log into a BridgeEvent.
// Unparsable logs are a decode error; the scanner skips them with a warning.
func decodeEvent(sourceChain int, dir types.Direction, l ethtypes.Log) (types.BridgeEvent, error) {
	if len(l.Topics) != 4 {
		return types.BridgeEvent{}, errors.Errorf("expected 4 topics, got %d", len(l.Topics))
	}
	if l.Topics[0] != eventTopic(dir) {
		return types.BridgeEvent{}, errors.New("log topic does not match event signature")
	}

	vals, err := bridgeABI.Unpack(eventName(dir), l.Data)
	if err != nil {
		return types.BridgeEvent{}, errors.Wrap(err, "unpacking event data")
	}
	if len(vals) != 2 {
		return types.BridgeEvent{}, errors.Errorf("expected 2 data fields, got %d", len(vals))
	}

	amount, ok := vals[0].(*big.Int)
	if !ok {
		return types.BridgeEvent{}, errors.New("amount is not uint256")
	}
	destChain, ok := vals[1].(*big.Int)
	if !ok {
		return types.BridgeEvent{}, errors.New("destinationChainId is not uint256")
	}

	return types.BridgeEvent{
		Direction:    dir,
		SourceChain:  sourceChain,
		SourceTxHash: l.TxHash.Hex(),
		Sender:       common.HexToAddress(l.Topics[1].Hex()).Hex(),
		Recipient:    common.HexToAddress(l.Topics[2].Hex()).Hex(),
		Amount:       amount,
		DestChain:    int(destChain.Int64()),
		Nonce:        l.Topics[3].Big().Uint64(),
	}, nil
}
