// Command hold reads the holdings of a precious metals dealer account.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"

	"github.com/etnz/holdings/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(int(commander.Execute(ctx)))
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.toml"),
			"v":      predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"login":    {},
			"accounts": {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
			"investments": {Flags: map[string]complete.Predictor{
				"a":    predict.Something,
				"json": predict.Nothing,
				"o":    predict.Files("*.jsonl"),
			}},
			"help":     {Args: predict.Set{"login", "accounts", "investments"}},
			"flags":    {},
			"commands": {},
		},
	}
}
