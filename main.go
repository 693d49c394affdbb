package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/yimingwow/hyperroute/pkg/config"
	"github.com/yimingwow/hyperroute/pkg/pool/hyperplane"
	"github.com/yimingwow/hyperroute/pkg/protocol"
	"github.com/yimingwow/hyperroute/pkg/router"
	"github.com/yimingwow/hyperroute/pkg/sol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "hyperroute",
		Short:        "Quote and swap against Hyperplane pools",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List Hyperplane pools for a token pair",
		RunE:  runPools,
	}
	poolsCmd.Flags().String("base", "", "base mint")
	poolsCmd.Flags().String("quote", "", "quote mint")
	_ = poolsCmd.MarkFlagRequired("base")
	_ = poolsCmd.MarkFlagRequired("quote")
	root.AddCommand(poolsCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote an exact-in swap",
		RunE:  runQuote,
	}
	addTradeFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote, build, sign and send an exact-in swap",
		RunE:  runSwap,
	}
	addTradeFlags(swapCmd)
	swapCmd.Flags().Bool("simulate", true, "simulate instead of sending")
	swapCmd.Flags().Uint64("jito-tip", 0, "send as a Jito bundle with this tip in lamports")
	swapCmd.Flags().Bool("wrap-sol", false, "fund the WSOL source account from native SOL")
	root.AddCommand(swapCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool address (defaults to pool_id from config)")
	cmd.Flags().String("in", "", "input mint")
	cmd.Flags().String("out", "", "output mint, used to discover pools when no pool is given")
	cmd.Flags().Uint64("amount", 0, "input amount in base units")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("amount")
}

// app is everything a command needs, built once from config.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *sol.Client
	protocol *protocol.HyperplaneProtocol
	router   *router.SimpleRouter
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	client, err := sol.NewClient(cmd.Context(), cfg.RPCEndpoint, cfg.JitoEndpoint, cfg.RequestsPerSecond, logger)
	if err != nil {
		return nil, fmt.Errorf("create solana client: %w", err)
	}

	proto := protocol.NewHyperplane(client, hyperplane.Options{
		ProgramID:           cfg.ProgramKey(),
		TransferFeeAware:    cfg.TransferFeeAware,
		IncludeCurveAccount: cfg.IncludeCurveAccount,
	}, logger)
	proto.FetchRetries = cfg.FetchRetries

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		protocol: proto,
		router:   router.NewSimpleRouter(logger, proto),
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func parseKeyFlag(cmd *cobra.Command, name string) (solana.PublicKey, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return key, nil
}

func runPools(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	base, err := parseKeyFlag(cmd, "base")
	if err != nil {
		return err
	}
	quote, err := parseKeyFlag(cmd, "quote")
	if err != nil {
		return err
	}

	if err := a.router.QueryAllPools(ctx, base, quote); err != nil {
		return err
	}
	fresh, err := a.router.RefreshPools(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("pools refreshed", zap.Int("found", len(a.router.Pools)), zap.Int("fresh", fresh))

	out := cmd.OutOrStdout()
	for _, amm := range a.router.Pools {
		adapter, ok := amm.(*hyperplane.Adapter)
		if !ok {
			continue
		}
		pool := adapter.Config().Pool
		snap, state := adapter.Snapshot()
		fmt.Fprintf(out, "%s  %s  A=%s  B=%s", adapter.Key(), state, pool.TokenAMint, pool.TokenBMint)
		if snap != nil {
			fmt.Fprintf(out, "  reserves=%d/%d  curve=%s  epoch=%d",
				snap.TokenAAmount, snap.TokenBAmount, snap.Curve.Type(), snap.Epoch)
		}
		fmt.Fprintln(out)
	}
	return nil
}
