// Command fundctl drives the fund ledger API from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"

	"fundledger/internal/domain"
	"fundledger/internal/middleware"
)

const usage = `usage: fundctl [-server URL] [-token JWT] <command> [flags]

commands:
  token    sign a caller token (needs JWT_SECRET)
  create   register a fund
  donate   donate to a fund
  close    close a fund and sweep it to the receiver
  get      show one fund
  list     list funds
  rewards  show a reward balance
  wallet   show a wallet balance
  faucet   mint development funds into a wallet
`

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("fundctl", flag.ContinueOnError)
	global.SetOutput(out)
	global.Usage = func() { fmt.Fprint(out, usage) }
	server := global.String("server", envOr("FUNDLEDGER_URL", "http://localhost:8080"), "API base URL")
	token := global.String("token", os.Getenv("FUNDLEDGER_TOKEN"), "bearer token")
	lang := global.String("lang", envOr("FUNDLEDGER_LANG", "en"), "output language tag")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	c := newClient(*server, *token)
	r := newRenderer(out, *lang)
	cmd, rest := global.Arg(0), global.Args()[1:]

	switch cmd {
	case "token":
		return cmdToken(rest, out)
	case "create":
		return cmdCreate(ctx, c, r, rest)
	case "donate":
		return cmdDonate(ctx, c, r, rest)
	case "close":
		return cmdClose(ctx, c, r, rest)
	case "get":
		return cmdGet(ctx, c, r, rest)
	case "list":
		funds, err := c.listFunds(ctx)
		if err != nil {
			return err
		}
		return r.fundTable(funds)
	case "rewards":
		fs := flag.NewFlagSet("rewards", flag.ContinueOnError)
		addr := fs.String("address", "", "account (default: token caller)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		b, err := c.rewards(ctx, *addr)
		if err != nil {
			return err
		}
		return r.balance("rewards", b)
	case "wallet":
		fs := flag.NewFlagSet("wallet", flag.ContinueOnError)
		addr := fs.String("address", "", "account")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		b, err := c.wallet(ctx, *addr)
		if err != nil {
			return err
		}
		return r.balance("wallet", b)
	case "faucet":
		fs := flag.NewFlagSet("faucet", flag.ContinueOnError)
		addr := fs.String("address", "", "account to fund")
		value := fs.String("value", "", "amount in base units")
		ether := fs.String("ether", "", "amount in whole units")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		v, err := amountArg(*value, *ether)
		if err != nil {
			return err
		}
		b, err := c.faucet(ctx, *addr, v)
		if err != nil {
			return err
		}
		return r.balance("wallet", b)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	caller := fs.String("caller", "", "caller address (default: random)")
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "signing secret")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("token: JWT_SECRET or -secret is required")
	}
	addr := domain.RandomAddress()
	if *caller != "" {
		parsed, err := domain.RequireAddress(*caller)
		if err != nil {
			return err
		}
		addr = parsed
	}
	signed, err := middleware.SignToken(*secret, addr, *ttl, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "caller %s\n%s\n", addr, signed)
	return err
}

func cmdCreate(ctx context.Context, c *client, r *renderer, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var in createFundInput
	fs.StringVar(&in.Name, "name", "", "fund name")
	fs.StringVar(&in.Description, "description", "", "fund description")
	fs.StringVar(&in.MetadataRef, "metadata", "", "external metadata reference")
	fs.StringVar(&in.Owner, "owner", "", "owner address (default: token caller)")
	fs.StringVar(&in.Receiver, "receiver", "", "receiver address (default: owner)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := c.createFund(ctx, in)
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(r.out).Printfln("fund %d created", f.ID)
	return r.fund(f)
}

func cmdDonate(ctx context.Context, c *client, r *renderer, args []string) error {
	fs := flag.NewFlagSet("donate", flag.ContinueOnError)
	id := fs.Uint64("fund", 0, "fund id")
	value := fs.String("value", "", "amount in base units")
	ether := fs.String("ether", "", "amount in whole units")
	if err := fs.Parse(args); err != nil {
		return err
	}
	v, err := amountArg(*value, *ether)
	if err != nil {
		return err
	}
	f, reward, err := c.donate(ctx, *id, v)
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(r.out).Printfln("donated %s to fund %d, reward balance %s", r.units(v), f.ID, r.units(reward))
	return nil
}

func cmdClose(ctx context.Context, c *client, r *renderer, args []string) error {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	id := fs.Uint64("fund", 0, "fund id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, rc, err := c.closeFund(ctx, *id)
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(r.out).Printfln("fund %d closed", f.ID)
	return r.receipt(rc)
}

func cmdGet(ctx context.Context, c *client, r *renderer, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	id := fs.Uint64("fund", 0, "fund id")
	tuple := fs.Bool("tuple", false, "print the ordered 7-field record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tuple {
		t, err := c.getFundTuple(ctx, *id)
		if err != nil {
			return err
		}
		return r.tuple(t)
	}
	f, err := c.getFund(ctx, *id)
	if err != nil {
		return err
	}
	return r.fund(f)
}

// amountArg returns a base-unit amount from either flag.
func amountArg(value, ether string) (string, error) {
	switch {
	case value != "" && ether != "":
		return "", errors.New("use -value or -ether, not both")
	case ether != "":
		d, err := domain.ParseEther(ether)
		if err != nil {
			return "", err
		}
		return d.String(), nil
	case value != "":
		d, err := domain.ParseAmount(value)
		if err != nil {
			return "", err
		}
		return d.String(), nil
	default:
		return "", errors.New("an amount is required (-value or -ether)")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
