package bridge

import (
	"context"
	"math/big"
	"strings"

	"monallobridge/EVMRPC"
	"monallobridge/config"
	"monallobridge/signer"
	"monallobridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EthClient talks to one configured EVM chain. Connections are established
// per call through the endpoint fallback in EVMRPC, so a dead endpoint only
// costs one failed attempt.
type EthClient struct {
	chainID int
}

func NewEthClient(chainID int) *EthClient {
	return &EthClient{chainID: chainID}
}

func (c *EthClient) ChainID() int {
	return c.chainID
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return EVMRPC.WithClient(c.chainID, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

// eventAddresses returns the contracts that emit the direction's event on
// this chain: the bridge lock for Locked, the wrapped tokens for
// UnlockRequested. Empty when the direction is not configured here.
func (c *EthClient) eventAddresses(dir types.Direction) []common.Address {
	chain := config.EVMChains[c.chainID]
	if dir == types.DIRECTION_LOCK {
		if chain.BridgeAddress == "" {
			return nil
		}
		return []common.Address{common.HexToAddress(chain.BridgeAddress)}
	}

	addresses := make([]common.Address, 0, len(chain.WrappedTokens))
	for _, addr := range chain.WrappedTokens {
		addresses = append(addresses, common.HexToAddress(addr))
	}
	return addresses
}

func (c *EthClient) FilterEvents(ctx context.Context, dir types.Direction, fromBlock, toBlock uint64) ([]types.BridgeEvent, error) {
	addresses := c.eventAddresses(dir)
	if len(addresses) == 0 {
		return nil, nil
	}

	logs, err := EVMRPC.WithClient(c.chainID, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: addresses,
			Topics:    [][]common.Hash{{eventTopic(dir)}},
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s logs on chain %d", eventName(dir), c.chainID)
	}

	events := make([]types.BridgeEvent, 0, len(logs))
	for _, l := range logs {
		ev, err := decodeEvent(c.chainID, dir, l)
		if err != nil {
			log.WithFields(log.Fields{"chain": c.chainID, "tx": l.TxHash.Hex()}).
				Warnf("skipping undecodable %s log: %s", eventName(dir), err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *EthClient) TransactionEvents(ctx context.Context, txHash string) ([]types.BridgeEvent, error) {
	receipt, err := EVMRPC.WithClient(c.chainID, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, common.HexToHash(txHash))
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching receipt on chain %d", c.chainID)
	}

	known := make(map[common.Address]types.Direction)
	for _, addr := range c.eventAddresses(types.DIRECTION_LOCK) {
		known[addr] = types.DIRECTION_LOCK
	}
	for _, addr := range c.eventAddresses(types.DIRECTION_UNLOCK) {
		known[addr] = types.DIRECTION_UNLOCK
	}

	var events []types.BridgeEvent
	for _, l := range receipt.Logs {
		dir, ok := known[l.Address]
		if !ok || len(l.Topics) == 0 || l.Topics[0] != eventTopic(dir) {
			continue
		}
		ev, err := decodeEvent(c.chainID, dir, *l)
		if err != nil {
			log.WithFields(log.Fields{"chain": c.chainID, "tx": txHash}).
				Warnf("skipping undecodable %s log: %s", eventName(dir), err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *EthClient) SubmitMint(ctx context.Context, tokenAddress string, ev types.BridgeEvent, sig signer.Signature) (string, error) {
	return c.submit(ctx, common.HexToAddress(tokenAddress), "mint", ev, sig)
}

func (c *EthClient) SubmitRelease(ctx context.Context, ev types.BridgeEvent, sig signer.Signature) (string, error) {
	bridgeAddress := config.BridgeAddress(c.chainID)
	if bridgeAddress == "" {
		return "", errors.Errorf("no bridge contract configured on chain %d", c.chainID)
	}
	return c.submit(ctx, common.HexToAddress(bridgeAddress), "release", ev, sig)
}

// submitOutcome carries mined results out of the endpoint-fallback closure;
// only pre-broadcast failures are returned as errors so that WithClient does
// not resubmit a transaction that already reached the chain.
type submitOutcome struct {
	txHash   string
	reverted bool
	reason   string
	waitErr  error
}

func (c *EthClient) submit(ctx context.Context, to common.Address, method string, ev types.BridgeEvent, sig signer.Signature) (string, error) {
	key, err := crypto.HexToECDSA(config.Config.Relayer.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "instantiating private key")
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	args := []interface{}{
		common.HexToAddress(ev.Recipient),
		new(big.Int).Set(ev.Amount),
		big.NewInt(int64(ev.SourceChain)),
		[32]byte(common.HexToHash(ev.SourceTxHash)),
		new(big.Int).SetUint64(ev.Nonce),
		sig.V,
		sig.R,
		sig.S,
	}

	outcome, err := EVMRPC.WithClient(c.chainID, func(client *ethclient.Client) (submitOutcome, error) {
		nonce, err := client.PendingNonceAt(ctx, from)
		if err != nil {
			return submitOutcome{}, errors.Wrap(err, "getting wallet nonce")
		}
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return submitOutcome{}, errors.Wrap(err, "getting suggested gas price")
		}

		auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(int64(c.chainID)))
		if err != nil {
			return submitOutcome{}, errors.Wrap(err, "instantiating transactor")
		}
		auth.Nonce = big.NewInt(int64(nonce))
		auth.Value = big.NewInt(0)
		auth.GasLimit = uint64(300000)
		auth.GasPrice = gasPrice
		auth.Context = ctx

		contract := bind.NewBoundContract(to, bridgeABI, client, client, client)
		tx, err := contract.Transact(auth, method, args...)
		if err != nil {
			return submitOutcome{}, errors.Wrapf(err, "calling %s", method)
		}

		log.WithFields(log.Fields{"chain": c.chainID, "tx": tx.Hash().Hex()}).
			Infof("submitted %s, waiting for confirmation", method)

		waitCtx, cancel := context.WithTimeout(ctx, config.CONFIRM_TIMEOUT)
		defer cancel()

		receipt, err := bind.WaitMined(waitCtx, client, tx)
		if err != nil {
			// the transaction may still mine; do not resubmit on another
			// endpoint, the look-back re-scan recovers this event
			return submitOutcome{txHash: tx.Hash().Hex(), waitErr: err}, nil
		}

		if receipt.Status == ethtypes.ReceiptStatusFailed {
			return submitOutcome{
				txHash:   tx.Hash().Hex(),
				reverted: true,
				reason:   c.revertReason(waitCtx, client, from, tx, receipt.BlockNumber),
			}, nil
		}
		return submitOutcome{txHash: tx.Hash().Hex()}, nil
	})
	if err != nil {
		return "", err
	}
	if outcome.waitErr != nil {
		return "", errors.Wrapf(outcome.waitErr, "waiting for %s confirmation of %s", method, outcome.txHash)
	}
	if outcome.reverted {
		if nonceAlreadyProcessed(outcome.reason) {
			return outcome.txHash, ErrNonceProcessed
		}
		return "", errors.Errorf("%s transaction %s reverted: %s", method, outcome.txHash, outcome.reason)
	}
	return outcome.txHash, nil
}

// revertReason replays the call at the failing block to extract the revert
// string. Best effort: endpoints differ in what they return.
func (c *EthClient) revertReason(ctx context.Context, client *ethclient.Client, from common.Address, tx *ethtypes.Transaction, blockNum *big.Int) string {
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	res, err := client.CallContract(ctx, msg, blockNum)
	if err != nil {
		// some endpoints put the revert data into the error itself
		return err.Error()
	}
	reason, err := abi.UnpackRevert(res)
	if err != nil {
		return ""
	}
	return reason
}

func nonceAlreadyProcessed(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "processed")
}
