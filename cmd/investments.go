package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// investmentsCmd lists the holdings of an account.
type investmentsCmd struct {
	account string
	json    bool
	output  string
}

func (*investmentsCmd) Name() string     { return "investments" }
func (*investmentsCmd) Synopsis() string { return "list the holdings of an account" }
func (*investmentsCmd) Usage() string {
	return `hold investments [-a <account>] [-json] [-o <file.jsonl>]

  Walks the holdings listing of the account, merges lines of the same product
  and adds the account liquidity as a cash holding. Rows that could not be
  read are reported after the table.

  With -o, the holdings are appended to the file, one JSON object per line,
  stamped with the date, site and account.
`
}

func (c *investmentsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "account id, defaults to the first account")
	f.BoolVar(&c.json, "json", false, "print one JSON object per holding instead of a table")
	f.StringVar(&c.output, "o", "", "append the holdings to this JSONL file")
}

func (c *investmentsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close(ctx)

	acc, err := c.resolve(ctx, a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading account: %v\n", err)
		return subcommands.ExitFailure
	}

	var hs []holdings.Holding
	for h, err := range a.scraper.Investments(ctx, acc) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading holdings: %v\n", err)
			return subcommands.ExitFailure
		}
		hs = append(hs, h)
	}

	if c.output != "" {
		if status := appendRecords(c.output, a.cfg.Site, acc, hs); status != subcommands.ExitSuccess {
			return status
		}
	}
	if c.json {
		if err := encodeRecords(os.Stdout, "", acc, hs); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding holdings: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderInvestments(renderer.NewInvestments(a.cfg.Site, acc, hs, a.scraper.Skipped())))
	return subcommands.ExitSuccess
}

// resolve returns the account selected by -a, or the first one.
func (c *investmentsCmd) resolve(ctx context.Context, a *app) (holdings.Account, error) {
	if c.account != "" {
		return a.scraper.Account(ctx, c.account)
	}
	for acc, err := range a.scraper.Accounts(ctx) {
		return acc, err
	}
	return holdings.Account{}, holdings.ErrUnknownAccount
}

// record is one line of a holdings JSONL file.
type record struct {
	Date    string           `json:"date,omitempty"`
	Site    string           `json:"site,omitempty"`
	Account string           `json:"account"`
	Holding holdings.Holding `json:"holding"`
}

// encodeRecords writes one record per holding. An empty site leaves the
// record unstamped.
func encodeRecords(w io.Writer, site string, acc holdings.Account, hs []holdings.Holding) error {
	var date string
	if site != "" {
		date = time.Now().Format(time.DateOnly)
	}
	enc := json.NewEncoder(w)
	for _, h := range hs {
		if err := enc.Encode(record{Date: date, Site: site, Account: acc.ID, Holding: h}); err != nil {
			return err
		}
	}
	return nil
}

// appendRecords appends the holdings to filename.
func appendRecords(filename, site string, acc holdings.Account, hs []holdings.Holding) subcommands.ExitStatus {
	// Open the file in append mode, creating it if it doesn't exist.
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening holdings file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := encodeRecords(f, site, acc, hs); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to holdings file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Appended %d holdings to %s\n", len(hs), filename)
	return subcommands.ExitSuccess
}
