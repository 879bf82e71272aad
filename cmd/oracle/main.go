// Command oracle is the operator CLI for the prediction ledger. It runs the
// ledger operations directly against the store: initializing an oracle,
// recording predictions, settling them against a supplied outcome price, and
// reading the track record.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"alpha-oracle/internal/domain"
	"alpha-oracle/internal/ledger"
	"alpha-oracle/internal/stats"
	"alpha-oracle/internal/storage/migrations"
	pgstore "alpha-oracle/internal/storage/postgres"
)

const usage = `Usage: oracle <command> [flags]

Commands:
  init     Initialize an oracle for an authority
  predict  Record a new prediction under an authority's oracle
  verify   Settle an expired prediction against a result price
  stats    Show an oracle's aggregate track record
  list     List all predictions under an oracle
`

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().
		Logger()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(ctx, os.Args[2:], logger)
	case "predict":
		err = runPredict(ctx, os.Args[2:], logger)
	case "verify":
		err = runVerify(ctx, os.Args[2:], logger)
	case "stats":
		err = runStats(ctx, os.Args[2:], logger)
	case "list":
		err = runList(ctx, os.Args[2:], logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

// newService connects to Postgres and builds the ledger service.
func newService(ctx context.Context, fs *flag.FlagSet, logger zerolog.Logger) (*ledger.Service, func(), error) {
	dsn := fs.Lookup("postgres-dsn").Value.String()
	if dsn == "" {
		return nil, nil, fmt.Errorf("--postgres-dsn is required")
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	svc, err := ledger.New(ledger.Config{
		Store:  pgstore.NewLedgerStore(pool),
		Logger: logger,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}

func commonFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	return fs
}

func runInit(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := commonFlags("init")
	authority := fs.String("authority", "", "Authority key (base58)")
	name := fs.String("name", "", "Oracle display name")
	fs.Parse(args)

	svc, cleanup, err := newService(ctx, fs, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	o, err := svc.InitializeOracle(ctx, *authority, *name)
	if err != nil {
		return err
	}
	return printJSON(o)
}

func runPredict(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := commonFlags("predict")
	authority := fs.String("authority", "", "Authority key (base58)")
	asset := fs.String("asset", "", "Asset symbol, e.g. BTC")
	direction := fs.String("direction", "", "LONG or SHORT")
	entry := fs.Float64("entry", 0, "Entry price (decimal)")
	takeProfit := fs.Float64("take-profit", 0, "Take-profit price (decimal)")
	stopLoss := fs.Float64("stop-loss", 0, "Stop-loss price (decimal)")
	timeframe := fs.Int("timeframe-hours", 24, "Hours until the prediction expires")
	fs.Parse(args)

	entryMicro, err := domain.PriceToMicro(*entry)
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	tpMicro, err := domain.PriceToMicro(*takeProfit)
	if err != nil {
		return fmt.Errorf("take-profit: %w", err)
	}
	slMicro, err := domain.PriceToMicro(*stopLoss)
	if err != nil {
		return fmt.Errorf("stop-loss: %w", err)
	}

	svc, cleanup, err := newService(ctx, fs, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := svc.CreatePrediction(ctx, *authority, ledger.CreatePredictionRequest{
		Asset:          *asset,
		Direction:      domain.Direction(*direction),
		EntryPrice:     entryMicro,
		TakeProfit:     tpMicro,
		StopLoss:       slMicro,
		TimeframeHours: *timeframe,
	})
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runVerify(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := commonFlags("verify")
	authority := fs.String("authority", "", "Authority key of the oracle (base58)")
	id := fs.Uint64("id", 0, "Prediction id")
	resultPrice := fs.Float64("result-price", 0, "Observed outcome price (decimal)")
	fs.Parse(args)

	resultMicro, err := domain.PriceToMicro(*resultPrice)
	if err != nil {
		return fmt.Errorf("result-price: %w", err)
	}

	svc, cleanup, err := newService(ctx, fs, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	o, err := svc.GetOracle(ctx, *authority)
	if err != nil {
		return err
	}
	p, err := svc.VerifyPrediction(ctx, o.Address, *id, resultMicro)
	if err != nil {
		return err
	}
	return printJSON(p)
}

func runStats(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := commonFlags("stats")
	authority := fs.String("authority", "", "Authority key (base58)")
	fs.Parse(args)

	svc, cleanup, err := newService(ctx, fs, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	o, err := svc.GetOracle(ctx, *authority)
	if err != nil {
		return err
	}
	return printJSON(stats.Compute(o))
}

func runList(ctx context.Context, args []string, logger zerolog.Logger) error {
	fs := commonFlags("list")
	authority := fs.String("authority", "", "Authority key (base58)")
	fs.Parse(args)

	svc, cleanup, err := newService(ctx, fs, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := svc.ListPredictions(ctx, *authority)
	if err != nil {
		return err
	}
	return printJSON(list)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
