// ssctl is a terminal client for the SmartSelling API. Credentials come
// from SMARTSELLING_USERNAME / SMARTSELLING_PASSWORD; each invocation is
// one session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/yerna09/smartselling/internal/accounts"
	"github.com/yerna09/smartselling/internal/client"
	"github.com/yerna09/smartselling/internal/config"
	"github.com/yerna09/smartselling/internal/domain"
	"github.com/yerna09/smartselling/internal/service/aggregate"
	"github.com/yerna09/smartselling/internal/service/refresh"
	"github.com/yerna09/smartselling/internal/session"
)

const usage = `usage: ssctl <command> [args]

commands:
  register <username> <password>   create an account and show the session
  accounts                         list linked marketplace accounts
  dashboard [account-id]           combined metrics, optionally one account
  edit <account-id> [flags]        change alias / active flag
  unlink <account-id>              remove a linked account
  refresh [account-id]             re-pull metrics for one account or all
  history <account-id>             daily metrics series
  link                             print the marketplace authorization URL
  link-complete <code> <state>     finish the authorization flow
`

type app struct {
	sess *session.Store
	coll *accounts.Store
	orch *refresh.Orchestrator
}

func main() {
	log.SetFlags(0)
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	api := client.New(cfg.APIBaseURL, cfg.RequestTimeout)
	coll := accounts.NewStore()
	orch := refresh.NewOrchestrator(api, coll)
	a := &app{
		sess: session.NewStore(api, orch),
		coll: coll,
		orch: orch,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "register":
		err = a.register(ctx, rest)
	case "accounts":
		err = a.authed(ctx, func() error { return a.printAccounts() })
	case "dashboard":
		err = a.authed(ctx, func() error { return a.dashboard(rest) })
	case "edit":
		err = a.authed(ctx, func() error { return a.edit(ctx, rest) })
	case "unlink":
		err = a.authed(ctx, func() error { return a.unlink(ctx, rest) })
	case "refresh":
		err = a.authed(ctx, func() error { return a.refresh(ctx, rest) })
	case "history":
		err = a.authed(ctx, func() error { return a.history(ctx, rest) })
	case "link":
		err = a.authed(ctx, func() error { return a.link(ctx) })
	case "link-complete":
		err = a.authed(ctx, func() error { return a.linkComplete(ctx, rest) })
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("ssctl %s: %v", cmd, explain(err))
	}
	a.sess.Logout(ctx)
}

// explain turns the client's error taxonomy into something readable on a
// terminal.
func explain(err error) string {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case client.KindConnection:
			return fmt.Sprintf("cannot reach the server (%v)", apiErr)
		case client.KindHTTP:
			return apiErr.Error()
		case client.KindMalformed:
			return fmt.Sprintf("server sent an unreadable response (%v)", apiErr)
		}
	}
	return err.Error()
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: register <username> <password>")
	}
	if err := a.sess.Register(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("registered %s (user id %d)\n", a.sess.User().Username, a.sess.User().ID)
	return nil
}

// authed logs in with the environment credentials and runs fn.
func (a *app) authed(ctx context.Context, fn func() error) error {
	username := os.Getenv("SMARTSELLING_USERNAME")
	password := os.Getenv("SMARTSELLING_PASSWORD")
	if username == "" || password == "" {
		return errors.New("set SMARTSELLING_USERNAME and SMARTSELLING_PASSWORD")
	}
	if err := a.sess.Login(ctx, username, password); err != nil {
		return err
	}
	return fn()
}

func (a *app) printAccounts() error {
	list := a.coll.List()
	if len(list) == 0 {
		fmt.Println("no linked accounts")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACCOUNT\tACTIVE\tSALES\tORDERS\tLISTINGS\tUPDATED")
	for _, acc := range list {
		updated := "never"
		if acc.LastMetricsUpdate != nil {
			updated = acc.LastMetricsUpdate.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%v\t%.2f\t%d\t%d\t%s\n",
			acc.ID, acc.DisplayName(), acc.IsActive,
			acc.TotalSales, acc.TotalOrders, acc.ActiveListings, updated)
	}
	return w.Flush()
}

func (a *app) dashboard(args []string) error {
	scope := aggregate.ScopeAll
	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad account id %q", args[0])
		}
		scope = id
	}
	totals := aggregate.Aggregate(a.coll.List(), scope)
	fmt.Printf("accounts:        %d\n", totals.AccountsCount)
	fmt.Printf("total sales:     %.2f\n", totals.TotalSales)
	fmt.Printf("total orders:    %d\n", totals.TotalOrders)
	fmt.Printf("active listings: %d\n", totals.ActiveListings)
	fmt.Printf("avg order value: %.2f\n", totals.AverageOrderValue)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	alias := fs.String("alias", "", "display alias for the account")
	active := fs.String("active", "", "true or false")
	if len(args) < 1 {
		return errors.New("usage: edit <account-id> [-alias name] [-active true|false]")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad account id %q", args[0])
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var update domain.AccountUpdate
	if *alias != "" {
		update.Alias = alias
	}
	if *active != "" {
		b, err := strconv.ParseBool(*active)
		if err != nil {
			return fmt.Errorf("bad -active value %q", *active)
		}
		update.IsActive = &b
	}
	if update.Alias == nil && update.IsActive == nil {
		return errors.New("nothing to change")
	}
	updated, err := a.orch.EditAccount(ctx, id, update)
	if err != nil {
		return err
	}
	fmt.Printf("updated %s (active=%v)\n", updated.DisplayName(), updated.IsActive)
	return nil
}

func (a *app) unlink(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: unlink <account-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad account id %q", args[0])
	}
	if err := a.orch.Unlink(ctx, id); err != nil {
		return err
	}
	fmt.Printf("account %d removed\n", id)
	return nil
}

func (a *app) refresh(ctx context.Context, args []string) error {
	if len(args) == 0 {
		count, err := a.orch.RefreshAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("refreshed %d accounts\n", count)
		return a.printAccounts()
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad account id %q", args[0])
	}
	if err := a.orch.RefreshOne(ctx, id); err != nil {
		return err
	}
	return a.printAccounts()
}

func (a *app) history(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: history <account-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad account id %q", args[0])
	}
	series, err := a.orch.DailyMetrics(ctx, id)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		fmt.Println("no daily metrics yet")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSALES\tORDERS")
	for _, day := range series {
		fmt.Fprintf(w, "%s\t%.2f\t%d\n", day.Date, day.DailySales, day.DailyOrders)
	}
	return w.Flush()
}

func (a *app) link(ctx context.Context) error {
	authURL, err := a.orch.BeginLink(ctx)
	if err != nil {
		return err
	}
	fmt.Println("authorize at:")
	fmt.Println("  " + authURL)
	fmt.Println("then run: ssctl link-complete <code> <state>")
	return nil
}

func (a *app) linkComplete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: link-complete <code> <state>")
	}
	if err := a.orch.CompleteLink(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("linked, %d accounts now connected\n", a.coll.Len())
	return a.printAccounts()
}
