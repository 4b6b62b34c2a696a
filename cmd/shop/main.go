package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-client/internal/app"
	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/checkout"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/present"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

const usage = `usage: shop <command> [flags] [args]

commands:
  products [-q query] [-page n] [-limit n]
  product <id>
  register <name> <email> <password>
  login <email> <password>
  logout
  whoami
  cart
  cart-add [-size M] [-color c] <product-id> <qty>
  cart-set [-size M] [-color c] <product-id> <qty>
  cart-remove [-size M] [-color c] <product-id>
  cart-clear
  checkout -street s -number n -neighborhood n -city c -state s -postal p -method pix|boleto|credit_card
  orders [-page n] [-limit n]
  order <id>
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "shop"})
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "shop",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.API.Timeout+5*time.Second)
	defer cancel()

	console := present.NewConsole(os.Stdout, logg)
	container, err := app.New(ctx, app.Params{
		Config:    cfg,
		Logger:    logg,
		Navigator: console,
		Notifier:  console,
	})
	requireResource(logg, "app", err)
	requireResource(logg, "hydrate", container.Start(ctx))

	runErr := run(ctx, container, os.Args[1], os.Args[2:])
	if err := container.Close(); err != nil {
		logg.Error(ctx, "failed to flush local state", err)
	}
	if code := report(os.Stderr, runErr); code != 0 {
		os.Exit(code)
	}
}

// shown marks an error the console already presented as a notice or redirect.
type shown struct{ error }

func (s shown) Unwrap() error { return s.error }

// report prints err unless the shopper has already seen it and returns the
// process exit code.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var seen shown
	if !errors.As(err, &seen) && !gateway.Surfaced(err) {
		fmt.Fprintf(w, "%v\n", err)
	}
	return 1
}

func run(ctx context.Context, c *app.Container, cmd string, args []string) error {
	switch cmd {
	case "products":
		return listProducts(ctx, c, args)
	case "product":
		if len(args) != 1 {
			return fmt.Errorf("usage: shop product <id>")
		}
		p, err := c.Gateway.GetProduct(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s  stock=%d\n%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.StockQuantity, p.Description)
		return nil
	case "register":
		if len(args) != 3 {
			return fmt.Errorf("usage: shop register <name> <email> <password>")
		}
		return c.Session.Register(ctx, args[0], args[1], args[2])
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: shop login <email> <password>")
		}
		return c.Session.Login(ctx, args[0], args[1])
	case "logout":
		c.Session.Logout(ctx)
		return nil
	case "whoami":
		if user := c.Session.User(); user != nil {
			fmt.Printf("%s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		}
		fmt.Println("anonymous")
		return nil
	case "cart":
		printCart(c)
		return nil
	case "cart-add", "cart-set", "cart-remove":
		return editCart(ctx, c, cmd, args)
	case "cart-clear":
		c.Cart.Clear()
		return nil
	case "checkout":
		return placeOrder(ctx, c, args)
	case "orders":
		return listOrders(ctx, c, args)
	case "order":
		if len(args) != 1 {
			return fmt.Errorf("usage: shop order <id>")
		}
		o, err := c.Orders.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s  total=%s\n", o.OrderNumber, o.Status, o.CreatedAt.Format(time.DateOnly), o.Total.StringFixed(2))
		for _, item := range o.Items {
			fmt.Printf("  %dx %s @ %s\n", item.Quantity, item.ProductName, item.PriceAtTime.StringFixed(2))
		}
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func listProducts(ctx context.Context, c *app.Container, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	query := fs.String("q", "", "search text")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		res gateway.Page[gateway.Product]
		err error
	)
	if q := strings.TrimSpace(*query); q != "" {
		res, err = c.Gateway.SearchProducts(ctx, q, *page, *limit)
	} else {
		res, err = c.Gateway.ListProducts(ctx, *page, *limit)
	}
	if err != nil {
		return err
	}
	for _, p := range res.Items {
		fmt.Printf("%s  %-28s %10s  stock=%d\n", p.ID, p.Name, p.Price.StringFixed(2), p.StockQuantity)
	}
	fmt.Printf("page %d/%d (%d products)\n", res.Pagination.Page, res.Pagination.TotalPages, res.Pagination.Total)
	return nil
}

func editCart(ctx context.Context, c *app.Container, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	sizeFlag := fs.String("size", "", "size variant")
	colorFlag := fs.String("color", "", "color variant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("product id required")
	}

	var size *enums.Size
	if *sizeFlag != "" {
		parsed, err := enums.ParseSize(*sizeFlag)
		if err != nil {
			return err
		}
		size = &parsed
	}
	var color *string
	if *colorFlag != "" {
		color = colorFlag
	}

	if cmd == "cart-remove" {
		c.Cart.RemoveItem(rest[0], size, color)
		printCart(c)
		return nil
	}
	if len(rest) != 2 {
		return fmt.Errorf("usage: shop %s <product-id> <qty>", cmd)
	}
	qty, err := strconv.Atoi(rest[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", rest[1])
	}

	if cmd == "cart-set" {
		c.Cart.UpdateQuantity(rest[0], size, color, qty)
		printCart(c)
		return nil
	}
	product, err := c.Gateway.GetProduct(ctx, rest[0])
	if err != nil {
		return err
	}
	c.Cart.AddItem(cart.ItemFromProduct(*product, qty, size, color))
	printCart(c)
	return nil
}

func printCart(c *app.Container) {
	summary := c.Checkout.Summary()
	if summary.Count == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, item := range summary.Items {
		variant := ""
		if item.Size != nil {
			variant += " size=" + item.Size.String()
		}
		if item.Color != nil {
			variant += " color=" + *item.Color
		}
		fmt.Printf("%dx %s%s  %s\n", item.Quantity, item.Product.Name, variant, item.LineTotal().StringFixed(2))
	}
	fmt.Printf("%d items, total %s\n", summary.Count, summary.Formatted)
}

func placeOrder(ctx context.Context, c *app.Container, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	var addr checkout.Address
	fs.StringVar(&addr.Street, "street", "", "street")
	fs.StringVar(&addr.Number, "number", "", "number")
	fs.StringVar(&addr.Complement, "complement", "", "complement")
	fs.StringVar(&addr.Neighborhood, "neighborhood", "", "neighborhood")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.State, "state", "", "state")
	fs.StringVar(&addr.PostalCode, "postal", "", "postal code")
	fs.StringVar(&addr.Country, "country", "", "country")
	method := fs.String("method", string(enums.PaymentMethodPix), "payment method")
	var payment checkout.Payment
	fs.StringVar(&payment.CardNumber, "card-number", "", "card number")
	fs.StringVar(&payment.CardName, "card-name", "", "name on card")
	fs.StringVar(&payment.CardExpiry, "card-expiry", "", "card expiry MM/YY")
	fs.StringVar(&payment.CardCVV, "card-cvv", "", "card security code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := c.Checkout.Enter(ctx)
	if err != nil {
		return shown{err}
	}
	defer flow.Discard()

	if fieldErrs := flow.SubmitAddress(addr); !fieldErrs.Empty() {
		return fieldErrs.Err()
	}
	payment.Method = enums.PaymentMethod(strings.ToLower(strings.TrimSpace(*method)))
	order, err := flow.SubmitPayment(ctx, payment)
	if err != nil {
		if last := flow.Draft().LastError; last != nil && errors.Is(err, last) {
			return shown{err}
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return shown{err}
		}
		return err
	}
	fmt.Printf("order %s placed, total %s\n", order.OrderNumber, order.Total.StringFixed(2))
	c.Orders.Invalidate()
	return nil
}

func listOrders(ctx context.Context, c *app.Container, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := c.Orders.MyOrders(ctx, *page, *limit)
	if err != nil {
		return err
	}
	for _, o := range res.Items {
		fmt.Printf("%s  %-10s %s  %s\n", o.OrderNumber, o.Status, o.CreatedAt.Format(time.DateOnly), o.Total.StringFixed(2))
	}
	fmt.Printf("page %d/%d (%d orders)\n", res.Pagination.Page, res.Pagination.TotalPages, res.Pagination.Total)
	return nil
}

func requireResource(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("failed to initialize %s", name), err)
	os.Exit(1)
}
