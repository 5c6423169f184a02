package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockchain-tracker/internal/metrics"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/bitcoin"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/repository/clickhouse"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/service/archiver"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/service/reconciler"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/store"
	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/watch"
	"github.com/goodnatureofminers/blockchain-tracker/internal/transport"
)

type config struct {
	Addr              string        `long:"addr" env:"TRACKER_ADDR" description:"HTTP listen address" default:":8080"`
	DataDir           string        `long:"data-dir" env:"TRACKER_DATA_DIR" description:"chain store directory" default:"./data"`
	Coin              model.Coin    `long:"coin" env:"TRACKER_COIN" description:"coin name" default:"BTC"`
	Network           model.Network `long:"network" env:"TRACKER_NETWORK" description:"network name" default:"mainnet"`
	RPCURL            string        `long:"rpc-url" env:"TRACKER_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser           string        `long:"rpc-user" env:"TRACKER_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword       string        `long:"rpc-password" env:"TRACKER_RPC_PASSWORD" description:"Bitcoin RPC password"`
	ConfirmationDepth uint64        `long:"confirmation-depth" env:"TRACKER_CONFIRMATION_DEPTH" description:"blocks below the tip before a block is confirmed" default:"6"`
	MaxReorgDepth     uint64        `long:"max-reorg-depth" env:"TRACKER_MAX_REORG_DEPTH" description:"deepest reorganization repaired automatically" default:"100"`
	PollInterval      time.Duration `long:"poll-interval" env:"TRACKER_POLL_INTERVAL" description:"idle poll interval" default:"10s"`
	ClickhouseDSN     string        `long:"clickhouse-dsn" env:"TRACKER_CLICKHOUSE_DSN" description:"optional ClickHouse DSN for the history archive"`
	ZMQAddr           string        `long:"zmq-addr" env:"TRACKER_ZMQ_ADDR" description:"optional node zmq endpoint for block notifications"`
	WatchAddresses    []string      `long:"watch-address" env:"TRACKER_WATCH_ADDRESSES" env-delim:"," description:"addresses to watch for confirmed payments"`
	WebhookURL        string        `long:"webhook-url" env:"TRACKER_WEBHOOK_URL" description:"optional webhook for watched-address notifications"`
	WebhookRPS        int           `long:"webhook-rps" env:"TRACKER_WEBHOOK_RPS" description:"webhook deliveries per second" default:"5"`
	WebhookTimeout    time.Duration `long:"webhook-timeout" env:"TRACKER_WEBHOOK_TIMEOUT" description:"webhook request timeout" default:"10s"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("blockchain tracker failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	st, err := store.Open(cfg.DataDir, metrics.NewChainStore())
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("failed to close chain store", zap.Error(closeErr))
		}
	}()

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()

	source, err := bitcoin.NewBlockSource(bitcoin.NewRPCClient(rpcClient, metrics.NewRPCClient(cfg.Coin, cfg.Network)))
	if err != nil {
		return fmt.Errorf("init block source: %w", err)
	}

	blockSignal, err := startBlockSignal(ctx, cfg.ZMQAddr, logger)
	if err != nil {
		return fmt.Errorf("init block signal: %w", err)
	}

	var sinks []reconciler.ConfirmationSink
	if len(cfg.WatchAddresses) > 0 {
		var notifier watch.Notifier
		if cfg.WebhookURL != "" {
			notifier = watch.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookRPS, cfg.WebhookTimeout)
		}
		watcher, watchErr := watch.NewWatcher(cfg.WatchAddresses, cfg.Network, st, notifier, metrics.NewWatcher(), logger)
		if watchErr != nil {
			return fmt.Errorf("init address watcher: %w", watchErr)
		}
		sinks = append(sinks, watcher)
	}

	recon, err := reconciler.New(
		source,
		st,
		st,
		metrics.NewReconciler(cfg.Coin, cfg.Network),
		reconciler.Config{
			PollInterval:      cfg.PollInterval,
			ConfirmationDepth: cfg.ConfirmationDepth,
			MaxReorgDepth:     cfg.MaxReorgDepth,
		},
		logger,
		blockSignal,
		sinks...,
	)
	if err != nil {
		return fmt.Errorf("init reconciler: %w", err)
	}

	// A fatal reconciler error halts tracking but keeps the query facade up,
	// so operators can inspect /v1/status.
	go func() {
		if runErr := recon.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("reconciler stopped", zap.Error(runErr))
		}
	}()

	if cfg.ClickhouseDSN != "" {
		repo, repoErr := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if repoErr != nil {
			return fmt.Errorf("init archive repository: %w", repoErr)
		}
		arch, archErr := archiver.New(st, repo, metrics.NewArchiver(cfg.Coin, cfg.Network), cfg.Coin, cfg.Network, logger)
		if archErr != nil {
			return fmt.Errorf("init archiver: %w", archErr)
		}
		go func() {
			if runErr := arch.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				logger.Error("archiver stopped", zap.Error(runErr))
			}
		}()
	}

	return serveHTTP(ctx, cfg.Addr, transport.NewRouter(transport.NewTrackerHandler(st, recon, logger)), logger)
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           cors.Default().Handler(handler),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("starting http server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	cfg := &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	return rpcclient.New(cfg, nil)
}
