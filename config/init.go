package config

import (
	"os"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

func readFile(cfg *Configuration, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			// env-only configuration is fine
			log.WithField("path", path).Debug("no config file, using environment only")
			return nil
		}
		return errors.Wrap(err, "opening config file")
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return errors.Wrap(err, "decoding config file")
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	return errors.Wrap(envconfig.Process("", cfg), "reading config from environment")
}

// Init loads configuration from the YAML file at path (if present) with
// environment overrides, applies defaults and fills the chain table.
func Init(path string) error {
	if err := readFile(&Config, path); err != nil {
		return err
	}
	if err := readEnv(&Config); err != nil {
		return err
	}

	if Config.Server.Port == 0 {
		Config.Server.Port = 8080
	}
	if Config.Server.RedisHost == "" {
		Config.Server.RedisHost = "127.0.0.1"
	}
	if Config.Server.RedisPort == 0 {
		Config.Server.RedisPort = 6379
	}
	if Config.Relayer.PollInterval == 0 {
		Config.Relayer.PollInterval = 10
	}

	applyChainOverrides()
	return validate()
}

// applyChainOverrides wires the configured contract addresses and RPC
// endpoints into the static chain table.
func applyChainOverrides() {
	sepolia := EVMChains[CHAIN_SEPOLIA]
	hub := EVMChains[CHAIN_POLKADOT_HUB]

	if Config.RPC.Sepolia != "" {
		sepolia.RPCList = append([]string{Config.RPC.Sepolia}, sepolia.RPCList...)
	}
	if Config.RPC.PolkadotHub != "" {
		hub.RPCList = append([]string{Config.RPC.PolkadotHub}, hub.RPCList...)
	}

	sepolia.BridgeAddress = Config.Bridge.LockSepolia
	hub.BridgeAddress = Config.Bridge.LockPolkadotHub

	sepolia.WrappedTokens = map[int]string{}
	hub.WrappedTokens = map[int]string{}
	if Config.Bridge.WrappedEthPolkadotHub != "" {
		hub.WrappedTokens[CHAIN_SEPOLIA] = Config.Bridge.WrappedEthPolkadotHub
	}
	if Config.Bridge.WrappedPasSepolia != "" {
		sepolia.WrappedTokens[CHAIN_POLKADOT_HUB] = Config.Bridge.WrappedPasSepolia
	}

	EVMChains[CHAIN_SEPOLIA] = sepolia
	EVMChains[CHAIN_POLKADOT_HUB] = hub
}

func validate() error {
	if Config.Relayer.PrivateKey == "" {
		return errors.New("missing RELAYER_PRIVATE_KEY")
	}
	if Config.Bridge.LockSepolia == "" || Config.Bridge.LockPolkadotHub == "" {
		return errors.New("missing BRIDGE_LOCK_SEPOLIA or BRIDGE_LOCK_POLKADOT_HUB")
	}

	// a missing wrapped mapping is reported per event at relay time, but a
	// malformed address is a hard configuration error
	addresses := []string{Config.Bridge.LockSepolia, Config.Bridge.LockPolkadotHub}
	if Config.Bridge.WrappedEthPolkadotHub != "" {
		addresses = append(addresses, Config.Bridge.WrappedEthPolkadotHub)
	}
	if Config.Bridge.WrappedPasSepolia != "" {
		addresses = append(addresses, Config.Bridge.WrappedPasSepolia)
	}
	for _, addr := range addresses {
		if !common.IsHexAddress(addr) {
			return errors.Errorf("invalid contract address '%s'", addr)
		}
		if err := ethav.Validate(common.HexToAddress(addr).Hex()); err != nil {
			return errors.Wrapf(err, "invalid contract address '%s'", addr)
		}
	}
	return nil
}
