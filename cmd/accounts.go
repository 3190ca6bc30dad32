package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// accountsCmd lists the accounts of the configured site.
type accountsCmd struct {
	json bool
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the accounts with their balance and liquidity" }
func (*accountsCmd) Usage() string {
	return `hold accounts [-json]

  Lists the accounts of the configured site. Fields the dashboard did not
  provide are reported as defaulted.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print one JSON object per account instead of a table")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close(ctx)

	var accounts []holdings.Account
	for acc, err := range a.scraper.Accounts(ctx) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading accounts: %v\n", err)
			return subcommands.ExitFailure
		}
		accounts = append(accounts, acc)
	}

	if c.json {
		enc := json.NewEncoder(os.Stdout)
		for _, acc := range accounts {
			if err := enc.Encode(acc); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding account: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderAccounts(renderer.NewAccounts(a.cfg.Site, accounts)))
	return subcommands.ExitSuccess
}
