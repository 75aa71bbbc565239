// Command nhznode runs the transaction-pool and peer-overlay data plane
// as a standalone process: parse flags, load a TOML config, assemble a
// stack, start it, and wait for a termination signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/nhzfoundation/nhzd/internal/nlog"
	"github.com/nhzfoundation/nhzd/node"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
		Value: "nhznode.toml",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level: trace, debug, info, warn, error, crit",
		Value: "info",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "nhznode"
	app.Usage = "mempool and peer overlay for a Nhz-style full node"
	app.Flags = []cli.Flag{configFileFlag, verbosityFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log := nlog.New("module", "nhznode")

	n, err := node.New(ctx.String(configFileFlag.Name), node.Deps{
		Chain:    noopChainStore{},
		Ledger:   noopLedger{},
		Balances: noopBalances{},
		Blocks:   noopBlockSink{},
	}, log)
	if err != nil {
		return fmt.Errorf("assemble node: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n.Start(runCtx)
	log.Info("nhznode started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	n.Stop()
	return nil
}
