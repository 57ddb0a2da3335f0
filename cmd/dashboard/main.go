package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"go-dispatch-ws/internal/form"
	"go-dispatch-ws/internal/localstore"
	"go-dispatch-ws/internal/model"
	"go-dispatch-ws/internal/remote"
	"go-dispatch-ws/internal/store"
	"go-dispatch-ws/pkg/config"
	"go-dispatch-ws/pkg/logger"

	"github.com/docopt/docopt-go"
)

const usage = `Dispatch dashboard client.

Usage:
    dashboard watch [options]
    dashboard products [options] [--search=<query>] [--page=<n>]
    dashboard orders [options] [--filter=<status>] [--page=<n>]
    dashboard create-product [options] --name=<name> --measurement=<unit> --quantity=<n> [--photo=<file>]
    dashboard place-order [options] --contractor=<name> <product=qty>...
    dashboard complete-order [options] <order-id>
    dashboard sign-up [options] --new-email=<email> --new-password=<password> --first-name=<name> --last-name=<name> --identification=<id> [--role=<role>]

Options:
    -h --help                   Show this screen.
    --email=<email>             Sign in as this account.
    --password=<password>       Password for --email.
    --search=<query>            Filter products by name.
    --filter=<status>           all, pending or completed [default: all].
    --page=<n>                  Page to show, starting at 1 [default: 1].
    --role=<role>               admin or user [default: user].`

const pageSize = 10

type app struct {
	log    *logger.Logger
	client *remote.Client
	kv     *localstore.KV
	store  *store.Store
}

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup")
	}
	defer a.kv.Close()

	email, _ := opts.String("--email")
	password, _ := opts.String("--password")
	if err := a.signIn(ctx, email, password); err != nil {
		log.Fatal().Err(err).Msg("sign in")
	}

	switch {
	case flag(opts, "watch"):
		err = a.watch(ctx)
	case flag(opts, "products"):
		query, _ := opts.String("--search")
		err = a.listProducts(query, intOpt(opts, "--page"))
	case flag(opts, "orders"):
		filter, _ := opts.String("--filter")
		err = a.listOrders(store.OrderFilter(filter), intOpt(opts, "--page"))
	case flag(opts, "create-product"):
		err = a.createProduct(ctx, opts)
	case flag(opts, "place-order"):
		err = a.placeOrder(ctx, opts)
	case flag(opts, "complete-order"):
		id, _ := opts.String("<order-id>")
		err = a.completeOrder(ctx, id)
	case flag(opts, "sign-up"):
		err = a.signUp(ctx, opts)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func flag(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func intOpt(opts docopt.Opts, name string) int {
	s, _ := opts.String(name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return n
}

func setup(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	client := remote.NewClient(cfg.Client.APIURL,
		remote.WithTimeout(cfg.Client.RequestTimeout),
		remote.WithLogger(log.Named("remote")),
	)
	kv, err := localstore.Open(cfg.Client.LocalDBPath)
	if err != nil {
		return nil, err
	}
	s := store.New(
		store.WithRemote(client),
		store.WithAuth(client),
		store.WithStorage(client),
		store.WithPersister(kv),
		store.WithLogger(log.Named("store")),
		store.WithOrphanTTL(cfg.Client.OrphanTTL),
	)
	if err := s.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("restore local snapshot")
	}
	return &app{log: log, client: client, kv: kv, store: s}, nil
}

// signIn validates the credentials, signs in and loads the tables the
// session may see.
func (a *app) signIn(ctx context.Context, email, password string) error {
	if errs := (form.LoginForm{Email: email, Password: password}).Validate(); !errs.Valid() {
		return formError(errs)
	}
	session, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	a.store.Bootstrap(ctx, session)
	return nil
}

func formError(errs form.Errors) error {
	var msgs []string
	for field, msg := range errs {
		if msg != "" {
			msgs = append(msgs, field+": "+msg)
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// watch follows the change feed until interrupted, logging every change.
func (a *app) watch(ctx context.Context) error {
	unsubscribe := a.store.Subscribe(func(c store.Change) {
		a.log.Info().
			Str("table", string(c.Table)).
			Str("kind", string(c.Kind)).
			Int("products", len(a.store.Products())).
			Int("orders", len(a.store.Orders())).
			Int("users", len(a.store.Users())).
			Msg("store changed")
	})
	defer unsubscribe()

	stopSession := a.store.WatchSession(ctx)
	defer stopSession()

	teardown := a.store.SubscribeToChanges(ctx)
	defer teardown()

	a.log.Info().Msg("watching for changes, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

func (a *app) listProducts(query string, page int) error {
	rows, pages := store.Page(store.SearchProducts(a.store.Products(), query), page, pageSize)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUNIT\tQUANTITY")
	for _, p := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.ProductName, p.ProductMeasurement, p.Quantity)
	}
	fmt.Fprintf(w, "page %d of %d\n", page, pages)
	return w.Flush()
}

func (a *app) listOrders(filter store.OrderFilter, page int) error {
	orders := store.SortOrdersByCreated(store.FilterOrders(a.store.Orders(), filter), true)
	rows, pages := store.Page(orders, page, pageSize)
	users := a.store.Users()
	products := a.store.Products()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCONTRACTOR\tRESPONSIBLE\tITEMS")
	for _, o := range rows {
		var items []string
		for _, item := range store.ResolveOrderItems(o, products) {
			items = append(items, fmt.Sprintf("%s x%d", item.ProductName, item.Quantity))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.Status, o.Contractor,
			store.UserName(users, o.Responsible), strings.Join(items, ", "))
	}
	fmt.Fprintf(w, "page %d of %d\n", page, pages)
	return w.Flush()
}

func (a *app) createProduct(ctx context.Context, opts docopt.Opts) error {
	name, _ := opts.String("--name")
	unit, _ := opts.String("--measurement")
	photo, _ := opts.String("--photo")
	f := form.ProductForm{
		ProductName:        name,
		ProductMeasurement: unit,
		Quantity:           intOpt(opts, "--quantity"),
		HasFile:            photo != "",
	}
	if errs := f.Validate(); !errs.Valid() {
		return formError(errs)
	}

	file, err := os.Open(photo)
	if err != nil {
		return err
	}
	defer file.Close()
	url, err := a.store.UploadPhoto(ctx, filepath.Base(photo), file)
	if err != nil {
		return err
	}
	f.Photo = url

	p, err := a.store.CreateProduct(ctx, f.ToProduct())
	if err != nil {
		return err
	}
	a.log.Info().Str("id", p.ID).Str("photo", p.Photo).Msg("product created")
	return nil
}

// placeOrder reads <product=qty> pairs, where product is an id or a name.
func (a *app) placeOrder(ctx context.Context, opts docopt.Opts) error {
	active, _ := a.store.ActiveUser()
	f := form.NewOrderForm(&active)
	f.Contractor, _ = opts.String("--contractor")

	products := a.store.Products()
	pairs, _ := opts["<product=qty>"].([]string)
	for _, pair := range pairs {
		key, qty, ok := strings.Cut(pair, "=")
		n, err := strconv.Atoi(qty)
		if !ok || err != nil {
			return fmt.Errorf("invalid item %q, want product=qty", pair)
		}
		p, found := lookupProduct(products, key)
		if !found {
			return fmt.Errorf("unknown product %q", key)
		}
		f.Toggle(p.ID)
		if !f.SetQuantity(products, p.ID, n) {
			return fmt.Errorf("%s: only %d %s in stock", p.ProductName, p.Quantity, p.ProductMeasurement)
		}
	}
	if errs := f.Validate(products); !errs.Valid() {
		return formError(errs)
	}

	req := f.Request()
	order, err := a.store.PlaceOrder(ctx, req.Contractor, req.Products)
	if err != nil {
		return err
	}
	a.log.Info().Str("id", order.ID).Str("contractor", order.Contractor).Msg("order placed")
	return nil
}

func lookupProduct(products []model.Product, key string) (model.Product, bool) {
	if p, ok := store.FindProduct(products, key); ok {
		return p, true
	}
	for _, p := range products {
		if strings.EqualFold(p.ProductName, key) {
			return p, true
		}
	}
	return model.Product{}, false
}

func (a *app) completeOrder(ctx context.Context, id string) error {
	order, err := a.store.CompleteOrder(ctx, id)
	if err != nil {
		return err
	}
	a.log.Info().Str("id", order.ID).Str("dispatcher", order.Dispatcher).Msg("order completed")
	return nil
}

func (a *app) signUp(ctx context.Context, opts docopt.Opts) error {
	if !a.store.IsAdmin() {
		return remote.ErrForbidden
	}
	var f form.SignUpForm
	f.Email, _ = opts.String("--new-email")
	f.Password, _ = opts.String("--new-password")
	f.FirstName, _ = opts.String("--first-name")
	f.LastName, _ = opts.String("--last-name")
	f.Identification, _ = opts.String("--identification")
	role, _ := opts.String("--role")
	f.Role = model.Role(role)
	if errs := f.Validate(); !errs.Valid() {
		return formError(errs)
	}

	user, err := a.store.CreateUser(ctx, f.Request())
	if err != nil {
		return err
	}
	a.log.Info().Str("id", user.ID).Str("name", user.FullName).Msg("user created")
	return nil
}
