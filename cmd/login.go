package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// loginCmd checks the configured credentials.
type loginCmd struct{}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in to the configured site and log out" }
func (*loginCmd) Usage() string {
	return `hold login

  Logs in to the configured site with the configured credentials, reports the
  outcome and logs out.
`
}

func (*loginCmd) SetFlags(*flag.FlagSet) {}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close(ctx)

	state, err := a.scraper.Login(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error logging in to %s: %v\n", a.cfg.Site, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: %s\n", a.cfg.Site, state)
	return subcommands.ExitSuccess
}
