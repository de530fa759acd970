package EVMRPC

import (
	"net/http"

	"monallobridge/config"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

// WithClient runs f against the chain's endpoints in configured order,
// returning the first successful result. Connectivity errors are transient:
// callers retry on the next cycle rather than treating them as fatal.
func WithClient[T any](chainID int, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	var client *ethclient.Client
	for _, url := range config.EVMChains[chainID].RPCList {
		client, err = ethclient.Dial(url)
		if err != nil {
			log.WithFields(log.Fields{"chain": chainID, "url": url}).
				Warnf("error connecting: %s", err.Error())
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
		log.WithFields(log.Fields{"chain": chainID, "url": url}).
			Warnf("RPC call failed: %s", err.Error())
	}
	if err == nil {
		err = errors.Errorf("no RPC endpoint configured for chain %d", chainID)
	}
	return
}

// Probe checks endpoint liveness with a raw eth_blockNumber call under a
// bounded timeout and returns the current head reported by the first
// endpoint that answers. Fails only when all endpoints are exhausted.
func Probe(chainID int) (uint64, error) {
	httpClient := &http.Client{Timeout: config.RPC_TIMEOUT}

	var lastErr error
	for _, url := range config.EVMChains[chainID].RPCList {
		rpc := jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{HTTPClient: httpClient})

		resp, err := rpc.Call("eth_blockNumber")
		if err != nil {
			lastErr = err
			log.WithFields(log.Fields{"chain": chainID, "url": url}).
				Warnf("liveness probe failed: %s", err.Error())
			continue
		}
		if resp.Error != nil {
			lastErr = errors.Errorf("RPC error %d: %s", resp.Error.Code, resp.Error.Message)
			continue
		}

		blockHex, err := resp.GetString()
		if err != nil {
			lastErr = err
			continue
		}
		head, err := hexutil.DecodeUint64(blockHex)
		if err != nil {
			lastErr = errors.Wrap(err, "decoding block number")
			continue
		}
		return head, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no RPC endpoints configured")
	}
	return 0, errors.Wrapf(lastErr, "all RPC endpoints failed for chain %d", chainID)
}
