package config

import "time"

type Configuration struct {
	// Server config
	Server struct {
		Port      int    `yaml:"port"`
		RedisPort int    `yaml:"redis_port"`
		RedisHost string `yaml:"redis_host"`
	} `yaml:"server"`
	// Relayer config
	Relayer struct {
		// important private stuff
		PrivateKey   string `yaml:"private_key" envconfig:"RELAYER_PRIVATE_KEY"`
		PollInterval int    `yaml:"poll_interval"` // seconds, per chain
	} `yaml:"relayer"`
	// Bridge contract addresses, filled into the chain table on Init
	Bridge struct {
		LockSepolia           string `yaml:"lock_sepolia" envconfig:"BRIDGE_LOCK_SEPOLIA"`
		LockPolkadotHub       string `yaml:"lock_polkadot_hub" envconfig:"BRIDGE_LOCK_POLKADOT_HUB"`
		WrappedEthPolkadotHub string `yaml:"wrapped_eth_polkadot_hub" envconfig:"WRAPPED_ETH_POLKADOT_HUB"`
		WrappedPasSepolia     string `yaml:"wrapped_pas_sepolia" envconfig:"WRAPPED_PAS_SEPOLIA"`
	} `yaml:"bridge"`
	// Optional RPC overrides, prepended to the builtin endpoint lists
	RPC struct {
		Sepolia     string `yaml:"sepolia" envconfig:"RPC_SEPOLIA"`
		PolkadotHub string `yaml:"polkadot_hub" envconfig:"RPC_POLKADOT_HUB"`
	} `yaml:"rpc"`
}

var Config Configuration

const CHAIN_SEPOLIA = 11155111
const CHAIN_POLKADOT_HUB = 420420417

// blocks re-scanned on a triggered run to recover failed relay attempts
const LOOKBACK_BLOCKS = 20

// endpoint liveness probe / per-call RPC timeout
const RPC_TIMEOUT = 10 * time.Second

// how long to wait for a destination transaction to be mined
const CONFIRM_TIMEOUT = 2 * time.Minute

// EVM-chains configs
type ChainConfig struct {
	Name    string
	ChainID int
	RPCList []string
	// bridge lock contract, emits Locked and accepts release()
	BridgeAddress string
	// wrapped tokens deployed on this chain, keyed by source chain id;
	// they emit UnlockRequested and accept mint()
	WrappedTokens map[int]string
}

var EVMChains = map[int]ChainConfig{
	CHAIN_SEPOLIA: {
		Name:    "Sepolia",
		ChainID: CHAIN_SEPOLIA,
		RPCList: []string{
			"https://rpc.sepolia.org",
			"https://ethereum-sepolia-rpc.publicnode.com",
			"https://sepolia.drpc.org",
		},
		WrappedTokens: map[int]string{},
	},
	CHAIN_POLKADOT_HUB: {
		Name:    "PolkadotHub",
		ChainID: CHAIN_POLKADOT_HUB,
		RPCList: []string{
			"https://eth-rpc-testnet.polkadot.io",
		},
		WrappedTokens: map[int]string{},
	},
}

// WrappedToken resolves the wrapped-token contract on destChain minting for
// assets locked on sourceChain. Empty string when the pair is not configured.
func WrappedToken(destChain, sourceChain int) string {
	chain, ok := EVMChains[destChain]
	if !ok {
		return ""
	}
	return chain.WrappedTokens[sourceChain]
}

func BridgeAddress(chainID int) string {
	return EVMChains[chainID].BridgeAddress
}
