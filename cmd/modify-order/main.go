package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/uhyunpark/hlsdk/params"
	"github.com/uhyunpark/hlsdk/pkg/client"
	"github.com/uhyunpark/hlsdk/pkg/crypto"
	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/util"
)

func main() {
	var (
		ref        = flag.String("oid", "", "order to modify: exchange oid (number) or cloid (0x + 32 hex)")
		coin       = flag.String("coin", "BTC", "asset of the replacement order")
		px         = flag.Float64("px", 0, "limit price")
		sz         = flag.Float64("sz", 0, "size")
		buy        = flag.Bool("buy", true, "buy (true) or sell (false)")
		tif        = flag.String("tif", string(exchange.TifGtc), "time in force: Alo, Ioc or Gtc")
		reduceOnly = flag.Bool("reduce-only", false, "only reduce an open position")
		cloid      = flag.String("cloid", "", "client order id for the replacement order; \"new\" generates one")
		submit     = flag.Bool("submit", false, "send the signed action instead of printing it")
		envFile    = flag.String("env", "", ".env file to load (default: ./.env)")
	)
	flag.Parse()

	cfg := params.LoadFromEnv(*envFile)

	if *ref == "" {
		fail("-oid is required")
	}
	oid, err := exchange.ParseRef(*ref)
	if err != nil {
		fail("invalid -oid: %v", err)
	}

	order := exchange.ClientOrderRequest{
		Asset:      *coin,
		IsBuy:      *buy,
		ReduceOnly: *reduceOnly,
		LimitPx:    *px,
		Sz:         *sz,
		OrderType:  exchange.NewLimitOrder(exchange.Tif(*tif)),
	}
	switch *cloid {
	case "":
	case "new":
		id := exchange.NewRandomCloid()
		order.Cloid = &id
	default:
		id, err := exchange.ParseCloid(*cloid)
		if err != nil {
			fail("invalid -cloid: %v", err)
		}
		order.Cloid = &id
	}
	switch exchange.Tif(*tif) {
	case exchange.TifAlo, exchange.TifIoc, exchange.TifGtc:
	default:
		fail("invalid -tif %q: want Alo, Ioc or Gtc", *tif)
	}
	req := exchange.ClientModifyRequest{Oid: oid, Order: order}

	logger, err := util.NewLogger()
	if err != nil {
		fail("logger: %v", err)
	}
	defer logger.Sync()
	flush = func() { _ = logger.Sync() }

	opts := []client.Option{client.WithLogger(logger.Sugar())}
	switch {
	case cfg.AssetsFile != "":
		assets, err := params.LoadAssets(cfg.AssetsFile)
		if err != nil {
			fail("%v", err)
		}
		opts = append(opts, client.WithAssets(assets))
	case !*submit:
		// offline signing has no meta endpoint to ask
		opts = append(opts, client.WithAssets(params.DefaultAssets()))
	}

	if cfg.Client.PrivateKey == "" {
		fmt.Fprintln(os.Stderr, "HL_PRIVATE_KEY not set, signing with a throwaway key")
		signer, err := crypto.GenerateKey()
		if err != nil {
			fail("%v", err)
		}
		cfg.Client.PrivateKey = signer.PrivateKeyHex()
	}
	c, err := client.New(cfg.Client, opts...)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *submit {
		res, err := c.Modify(ctx, req)
		if err != nil {
			fail("modify failed: %v", err)
		}
		printJSON(res)
		return
	}

	assets, err := c.Assets(ctx)
	if err != nil {
		fail("%v", err)
	}
	wire, err := req.Convert(assets)
	if err != nil {
		fail("%v", err)
	}
	payload, err := c.SignAction(exchange.NewModify(wire))
	if err != nil {
		fail("%v", err)
	}

	fmt.Fprintf(os.Stderr, "Signer: %s\n", c.Address().Hex())
	printJSON(payload)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("marshal: %v", err)
	}
	fmt.Println(string(out))
}

// flush is replaced by main once the logger exists; os.Exit skips defers.
var flush = func() {}

func fail(format string, args ...any) {
	flush()
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
