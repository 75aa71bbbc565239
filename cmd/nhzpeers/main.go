// Command nhzpeers is a read-only diagnostic CLI: point it at a running
// node's peer store and it prints the known peer addresses as a table
// for a human operator.
package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/nhzfoundation/nhzd/p2p"
)

var dbPathFlag = cli.StringFlag{
	Name:  "db",
	Usage: "path to the node's peer store",
	Value: "peers.db",
}

func main() {
	app := cli.NewApp()
	app.Name = "nhzpeers"
	app.Usage = "list peer addresses persisted by a node's peer store"
	app.Flags = []cli.Flag{dbPathFlag}
	app.Action = list

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func list(ctx *cli.Context) error {
	store, err := p2p.OpenPeerStore(ctx.String(dbPathFlag.Name))
	if err != nil {
		return fmt.Errorf("open peer store: %w", err)
	}
	defer store.Close()

	addrs, err := store.All()
	if err != nil {
		return fmt.Errorf("read peer store: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"address"})
	for addr := range addrs {
		table.Append([]string{addr})
	}
	table.Render()
	return nil
}
