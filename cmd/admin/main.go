package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/domain/recurring"
	"fintrack/internal/domain/transaction"
	"fintrack/internal/domain/user"
	"fintrack/internal/infrastructure/amqp"
	"fintrack/internal/infrastructure/postgres"
	"fintrack/internal/shared/config"
	applog "fintrack/internal/shared/log"
)

const usage = `fintrack admin - maintenance commands

Usage:
  admin <command> [options]

Commands:
  migrate       Apply pending database migrations
  materialize   Materialize due recurring templates now, in this process
  enqueue       Publish materialization requests to the worker queue

Examples:
  admin migrate
  admin materialize --user-id=1
  admin materialize --all --as-of=2024-05-31 --workers=8
  admin enqueue --user-id=1,2,3
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage, "\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	var err error
	switch cmd := os.Args[1]; cmd {
	case "migrate":
		err = runMigrate()
	case "materialize":
		err = runMaterialize(os.Args[2:])
	case "enqueue":
		err = runEnqueue(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage, "\n")
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		fmt.Print(usage, "\n")
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	logger := applog.New(applog.Config{Level: cfg.Log.Level, Format: "console", Service: "fintrack-admin"})
	return cfg, logger, nil
}

func runMigrate() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := postgres.Migrate(cfg.Database.ConnectionString()); err != nil {
		return err
	}
	logger.Info().Msg("migrations applied")
	return nil
}

// targetFlags are shared by the commands that act on a set of users.
type targetFlags struct {
	fs      *flag.FlagSet
	userIDs *string
	all     *bool
	asOf    *string
	timeout *time.Duration
}

func newTargetFlags(name string) *targetFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &targetFlags{
		fs:      fs,
		userIDs: fs.String("user-id", "", "User ID(s) to process (comma-separated for multiple)"),
		all:     fs.Bool("all", false, "Process every user with due templates"),
		asOf:    fs.String("as-of", "", "Materialize up to this date, YYYY-MM-DD (default today)"),
		timeout: fs.Duration("timeout", 30*time.Minute, "Timeout for the operation"),
	}
}

func (t *targetFlags) parse(args []string) (asOf civil.Date, err error) {
	if err := t.fs.Parse(args); err != nil {
		return civil.Date{}, err
	}
	if *t.userIDs == "" && !*t.all {
		t.fs.Usage()
		return civil.Date{}, fmt.Errorf("must specify --user-id or --all")
	}
	return parseAsOf(*t.asOf, time.Now())
}

func (t *targetFlags) resolveUsers(ctx context.Context, m *recurring.Materializer, asOf civil.Date) ([]int64, error) {
	if *t.all {
		return m.UsersWithDueTemplates(ctx, asOf)
	}
	return parseUserIDs(*t.userIDs)
}

func runMaterialize(args []string) error {
	flags := newTargetFlags("materialize")
	workers := flags.fs.Int("workers", 4, "Number of users processed concurrently")
	asOf, err := flags.parse(args)
	if err != nil {
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{})
	if err != nil {
		return err
	}
	defer db.Close()

	users := user.NewService(postgres.NewUserRepository(db))
	ledger := transaction.NewService(postgres.NewTransactionStore(db), users, logger)
	materializer := recurring.NewMaterializer(postgres.NewRecurringRepository(db), ledger, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *flags.timeout)
	defer cancel()

	userIDs, err := flags.resolveUsers(ctx, materializer, asOf)
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		logger.Info().Msg("no users to process")
		return nil
	}

	logger.Info().Int("users", len(userIDs)).Int("workers", *workers).Str(applog.FieldAsOf, asOf.String()).Msg("starting materialization")
	start := time.Now()

	var (
		mu      sync.Mutex
		results []*recurring.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, id := range userIDs {
		g.Go(func() error {
			result, err := materializer.ProcessDue(gctx, id, asOf)
			if err != nil {
				return fmt.Errorf("user %d: %w", id, err)
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].UserID < results[j].UserID })
	for _, r := range results {
		printResult(r)
	}
	logger.Info().Dur(applog.FieldDuration, time.Since(start)).Msg("materialization completed")
	return err
}

func runEnqueue(args []string) error {
	flags := newTargetFlags("enqueue")
	asOf, err := flags.parse(args)
	if err != nil {
		return err
	}
	if *flags.all {
		return fmt.Errorf("enqueue needs explicit --user-id; the worker's scheduler covers --all")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if !cfg.AMQP.Enabled() {
		return fmt.Errorf("AMQP_URL is not set")
	}

	userIDs, err := parseUserIDs(*flags.userIDs)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *flags.timeout)
	defer cancel()

	for _, id := range userIDs {
		if err := client.PublishMaterializeRequest(ctx, id, asOf); err != nil {
			return fmt.Errorf("user %d: %w", id, err)
		}
	}
	logger.Info().Int("users", len(userIDs)).Str(applog.FieldAsOf, asOf.String()).Msg("materialization requests published")
	return nil
}

func printResult(r *recurring.Result) {
	fmt.Printf("\n=== User %d (as of %s) ===\n", r.UserID, r.AsOf)
	fmt.Printf("  Templates processed:  %d\n", r.Templates)
	fmt.Printf("  Transactions created: %d\n", r.Created)
	fmt.Printf("  Templates completed:  %d\n", r.Completed)

	if len(r.Errors) > 0 {
		fmt.Printf("  Errors:               %d\n", len(r.Errors))
		for i, e := range r.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(r.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}
