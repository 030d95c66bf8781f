// Command cheese-frames serves shared chess sessions over a JSON API and
// frame endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/park285/cheese-frames/internal/app"
	"github.com/park285/cheese-frames/internal/config"
	"github.com/park285/cheese-frames/internal/obslog"
	"github.com/park285/cheese-frames/internal/orchestrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := &cli.Command{
		Name:  "cheese-frames",
		Usage: "chess sessions for frames and token clients",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "optional dotenv file"},
			&cli.StringFlag{Name: "backend", Usage: "override PERSIST_BACKEND"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "override LISTEN_ADDR"},
				},
				Action: serve,
			},
			{
				Name:   "sessions",
				Usage:  "list persisted sessions",
				Action: listSessions,
			},
			{
				Name:      "pgn",
				Usage:     "print the current game of a session as PGN",
				ArgsUsage: "<session-id>",
				Action:    printPGN,
			},
		},
		Action: serve,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the dotenv file, logger and config shared by every command.
func setup(cmd *cli.Command) (*config.AppConfig, *zap.Logger, error) {
	if path := cmd.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := obslog.InitFromEnv(); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if b := cmd.String("backend"); b != "" {
		cfg.PersistBackend = b
	}
	if cmd.IsSet("listen") {
		cfg.ListenAddr = cmd.String("listen")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, obslog.L(), nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr), zap.String("public_url", cfg.PublicURL))
		return deps.HTTP.Listen(cfg.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown_begin")
		return deps.HTTP.ShutdownWithTimeout(cfg.ShutdownTimeout)
	})
	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := deps.Close(closeCtx); err != nil {
		logger.Warn("shutdown_close_failed", zap.Error(err))
	}
	writes, failures := deps.Persister.Stats()
	logger.Info("shutdown_complete", zap.Int64("writes", writes), zap.Int64("failures", failures))
	return runErr
}

func listSessions(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	store, _, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTURN\tMOVES")
	for _, s := range store.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.ID, s.Status, s.Turn, s.Moves)
	}
	return tw.Flush()
}

func printPGN(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: cheese-frames pgn <session-id>")
	}
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	store, _, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pgn, err := orchestrator.New(store, orchestrator.WithLogger(logger)).History(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(pgn)
	return nil
}
