// ordkv is an in-memory ordered key-value store driven by a
// line-based command protocol over stdin/stdout, durable via an
// append-only command log replayed on startup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wegjgwioj/ordkv/internal/config"
	"github.com/wegjgwioj/ordkv/internal/ioloop"
	"github.com/wegjgwioj/ordkv/internal/logging"
	"github.com/wegjgwioj/ordkv/internal/store"
)

var (
	dbPath     string
	configFile string
	fsyncEach  bool
	logLevel   string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ordkv",
		Short: "An ordered key-value store with TTLs and a durable command log",
		Long: `ordkv reads SET/GET/DEL/... commands one per line from stdin and
writes their replies to stdout, exactly as described by the wire
protocol. State is durable across restarts via an append-only log that
is replayed before the first command is accepted.`,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "durability log path (overrides config)")
	cmd.Flags().StringVar(&configFile, "config", "", "optional TOML config file")
	cmd.Flags().BoolVar(&fsyncEach, "fsync", false, "fsync the log after every write")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if fsyncEach {
		cfg.FsyncEach = true
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	engine, err := store.Open(store.Config{LogPath: cfg.DBPath, FsyncEach: cfg.FsyncEach})
	if err != nil {
		return fmt.Errorf("opening store at %q: %w", cfg.DBPath, err)
	}
	logger.Infow("replay complete, accepting commands", "db_path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Infow("shutting down")
		_ = engine.Close()
	}()

	dispatcher := store.NewDispatcher(engine)
	err = ioloop.Run(cmd.InOrStdin(), cmd.OutOrStdout(), dispatcher)
	closeErr := engine.Close()
	if err != nil {
		return err
	}
	return closeErr
}
