package main

import (
	"context"
	"os"

	"monallobridge/bridge"
	"monallobridge/config"
	"monallobridge/signer"
	"monallobridge/store"
	"monallobridge/workers"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "path to the YAML config file",
	Value: "config.yml",
}

var verbosityFlag = &cli.StringFlag{
	Name:  "verbosity",
	Usage: "log level (debug, info, warn, error)",
	Value: "info",
}

var triggerFlag = &cli.StringFlag{
	Name:  "trigger",
	Usage: "run one look-back relay pass for a chain id, or \"all\"",
}

var txFlag = &cli.StringFlag{
	Name:  "tx",
	Usage: "relay a single lock/unlock transaction by hash",
}

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "run the relayer continuously with the HTTP API",
	Action: handleServe,
}

var relayCommand = &cli.Command{
	Name:   "relay",
	Usage:  "run one relay pass and exit",
	Flags:  []cli.Flag{triggerFlag, txFlag},
	Action: handleRelay,
}

func main() {
	app := &cli.App{
		Name:     "monallobridge",
		Usage:    "lock-mint / burn-release bridge relayer between Sepolia and Polkadot Hub",
		Flags:    []cli.Flag{configFlag, verbosityFlag},
		Commands: []*cli.Command{serveCommand, relayCommand},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(ctx *cli.Context) (*workers.Relayer, *store.RedisStore, error) {
	level, err := log.ParseLevel(ctx.String("verbosity"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing log level")
	}
	log.SetLevel(level)

	if err := config.Init(ctx.String("config")); err != nil {
		return nil, nil, err
	}

	// connect to Redis, without persistence do not continue
	st := store.NewRedisStore()
	if err := st.Ping(); err != nil {
		return nil, nil, err
	}

	sg, err := signer.NewKeySigner(config.Config.Relayer.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("relayer signing address: %s", sg.Address().Hex())

	clients := make(map[int]bridge.Client, len(config.EVMChains))
	for chainID := range config.EVMChains {
		clients[chainID] = bridge.NewEthClient(chainID)
	}

	relayer := workers.NewRelayer(st, sg, clients)
	relayer.Connect()
	return relayer, st, nil
}

func handleServe(ctx *cli.Context) error {
	relayer, st, err := setup(ctx)
	if err != nil {
		return err
	}

	for chainID := range config.EVMChains {
		go relayer.Worker_scanChain(chainID)
	}
	go workers.Worker_metrics(st)

	// serves as the main worker thread
	workers.Worker_HTTP(relayer, st)
	return nil
}

func handleRelay(ctx *cli.Context) error {
	relayer, _, err := setup(ctx)
	if err != nil {
		return err
	}

	if txHash := ctx.String("tx"); txHash != "" {
		return relayer.RelayTransaction(context.Background(), txHash)
	}
	if trigger := ctx.String("trigger"); trigger != "" {
		return relayer.RunOnce(context.Background(), trigger)
	}
	return errors.New("either --trigger or --tx is required")
}
