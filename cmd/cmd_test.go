package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/config"
	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

func TestSites(t *testing.T) {
	var names []string
	for name, site := range Sites {
		names = append(names, name)
		s := site()
		if s.Name != name {
			t.Errorf("Sites[%q]().Name = %q", name, s.Name)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("Sites[%q]().Validate() = %v", name, err)
		}
	}
	sort.Strings(names)
	if diff := cmp.Diff(config.Sites, names); diff != "" {
		t.Errorf("registered sites differ from the configurable ones (-config +cmd):\n%s", diff)
	}
}

func TestRegister(t *testing.T) {
	c := subcommands.NewCommander(flag.NewFlagSet("hold", flag.ContinueOnError), "hold")
	Register(c)
	var got []string
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		switch cmd.Name() {
		case "help", "flags", "commands":
		default:
			got = append(got, cmd.Name())
		}
	})
	sort.Strings(got)
	want := []string{"accounts", "investments", "login"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func testHoldings() (holdings.Account, []holdings.Holding) {
	eur := func(v string) holdings.Money { return holdings.M(decimal.RequireFromString(v), "EUR") }
	acc := holdings.Account{ID: "100234", Label: "Jane Doe", Balance: eur("1010"), Liquidity: eur("10")}
	return acc, []holdings.Holding{
		{Label: "Gold Maple Leaf 1 oz", Quantity: holdings.Q(decimal.NewFromInt(1)), UnitPrice: eur("1000"), Valuation: eur("1000")},
		holdings.Cash(eur("10")),
	}
}

func TestEncodeRecords(t *testing.T) {
	acc, hs := testHoldings()
	var buf bytes.Buffer
	if err := encodeRecords(&buf, "", acc, hs); err != nil {
		t.Fatal(err)
	}
	want := `{"account":"100234","holding":{"label":"Gold Maple Leaf 1 oz","quantity":"1","unitPrice":{"currency":"EUR","amount":"1000"},"valuation":{"currency":"EUR","amount":"1000"}}}
{"account":"100234","holding":{"label":"Liquidités","code":"XX-liquidity","quantity":"1","unitPrice":{"currency":"EUR","amount":"10"},"valuation":{"currency":"EUR","amount":"10"}}}
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("encodeRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendRecords(t *testing.T) {
	acc, hs := testHoldings()
	file := filepath.Join(t.TempDir(), "holdings.jsonl")
	for range 2 {
		if status := appendRecords(file, "bullionstar", acc, hs); status != subcommands.ExitSuccess {
			t.Fatalf("appendRecords() = %v", status)
		}
	}

	f, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var n int
	for sc := bufio.NewScanner(f); sc.Scan(); n++ {
		var r struct {
			Date, Site, Account string
		}
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %d: %v", n+1, err)
		}
		if r.Date == "" || r.Site != "bullionstar" || r.Account != "100234" {
			t.Errorf("line %d = %+v, want a stamped record", n+1, r)
		}
	}
	if n != 4 {
		t.Errorf("file has %d lines, want 4", n)
	}
}
