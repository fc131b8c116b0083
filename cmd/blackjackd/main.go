// Command blackjackd serves and audits provably fair blackjack hands.
package main

import (
	"github.com/alecthomas/kong"

	"github.com/MJE43/pf-blackjack/internal/api"
)

// Globals are flags shared by every subcommand.
type Globals struct {
	Config string `kong:"default='blackjackd.hcl',type='path',help='HCL configuration file (missing file means defaults)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the blackjack HTTP server"`
	Verify   VerifyCmd        `cmd:"" help:"Recompute a deck from revealed seeds or a stored hand"`
	Hash     HashCmd          `cmd:"" help:"Hash a server seed or generate a fresh commitment"`
	Credit   CreditCmd        `cmd:"" help:"Credit ether to a player balance"`
	Simulate SimulateCmd      `cmd:"" help:"Play scripted hands against an in-memory table"`
	Scan     ScanCmd          `cmd:"" help:"Search revealed seeds for matching opening deals"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjackd"),
		kong.Description("Provably fair blackjack engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": api.EngineVersion,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
