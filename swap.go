package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"github.com/yimingwow/hyperroute/pkg"
	"github.com/yimingwow/hyperroute/pkg/pool/hyperplane"
	"github.com/yimingwow/hyperroute/pkg/router"
	"github.com/yimingwow/hyperroute/pkg/sol"
	"go.uber.org/zap"
)

type trade struct {
	inputMint  solana.PublicKey
	outputMint solana.PublicKey
	amount     uint64
}

// bestQuote loads the candidate pools, refreshes them and returns the best
// exact-in quote.
func (a *app) bestQuote(ctx context.Context, cmd *cobra.Command) (*hyperplane.Adapter, trade, pkg.Quote, error) {
	var t trade
	var err error
	if t.inputMint, err = parseKeyFlag(cmd, "in"); err != nil {
		return nil, t, pkg.Quote{}, err
	}
	if t.outputMint, err = parseKeyFlag(cmd, "out"); err != nil {
		return nil, t, pkg.Quote{}, err
	}
	t.amount, _ = cmd.Flags().GetUint64("amount")
	if t.amount == 0 {
		return nil, t, pkg.Quote{}, errors.New("--amount must be positive")
	}

	poolKey, err := parseKeyFlag(cmd, "pool")
	if err != nil {
		return nil, t, pkg.Quote{}, err
	}
	if poolKey.IsZero() {
		poolKey, _ = a.cfg.PoolKey()
	}

	switch {
	case !poolKey.IsZero():
		amm, err := a.protocol.FetchPoolByID(ctx, poolKey)
		if err != nil {
			return nil, t, pkg.Quote{}, err
		}
		a.router.AddPool(amm)
	case !t.outputMint.IsZero():
		if err := a.router.QueryAllPools(ctx, t.inputMint, t.outputMint); err != nil {
			return nil, t, pkg.Quote{}, err
		}
	default:
		return nil, t, pkg.Quote{}, errors.New("either --pool, pool_id or --out is required")
	}

	if _, err := a.router.RefreshPools(ctx); err != nil {
		return nil, t, pkg.Quote{}, err
	}
	best, quote, err := a.router.GetBestPool(pkg.QuoteParams{
		InputMint: t.inputMint,
		Amount:    t.amount,
		SwapMode:  pkg.ExactIn,
	})
	if err != nil {
		return nil, t, pkg.Quote{}, err
	}
	adapter, ok := best.(*hyperplane.Adapter)
	if !ok {
		return nil, t, pkg.Quote{}, fmt.Errorf("unexpected pool type %T", best)
	}
	if t.outputMint.IsZero() {
		for _, mint := range adapter.GetReserveMints() {
			if !mint.Equals(t.inputMint) {
				t.outputMint = mint
			}
		}
	}
	return adapter, t, quote, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	adapter, t, quote, err := a.bestQuote(ctx, cmd)
	if err != nil {
		return err
	}
	minOut, err := router.MinAmountOut(quote.OutAmount, a.cfg.SlippageBps)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pool:             %s (%s)\n", adapter.Key(), adapter.Label())
	fmt.Fprintf(out, "in:               %d %s\n", quote.InAmount, t.inputMint)
	fmt.Fprintf(out, "out:              %d %s\n", quote.OutAmount, t.outputMint)
	fmt.Fprintf(out, "min out:          %d (%d bps)\n", minOut, a.cfg.SlippageBps)
	fmt.Fprintf(out, "curve fee:        %d (%.4f%%)\n", quote.FeeAmount, quote.FeePct*100)
	fmt.Fprintf(out, "transfer fee in:  %d\n", quote.TransferFeeIn)
	fmt.Fprintf(out, "transfer fee out: %d\n", quote.TransferFeeOut)
	return nil
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	signer, err := a.cfg.Signer()
	if err != nil {
		return err
	}
	owner := signer.PublicKey()

	adapter, t, quote, err := a.bestQuote(ctx, cmd)
	if err != nil {
		return err
	}
	minOut, err := router.MinAmountOut(quote.OutAmount, a.cfg.SlippageBps)
	if err != nil {
		return err
	}

	pool := adapter.Config().Pool
	programFor := func(mint solana.PublicKey) solana.PublicKey {
		if mint.Equals(pool.TokenAMint) {
			return pool.TokenAProgram
		}
		return pool.TokenBProgram
	}

	var instructions []solana.Instruction
	source, err := a.client.ResolveTokenAccount(ctx, owner, t.inputMint, programFor(t.inputMint))
	if err != nil {
		return err
	}
	destination, err := a.client.ResolveTokenAccount(ctx, owner, t.outputMint, programFor(t.outputMint))
	if err != nil {
		return err
	}
	for _, acc := range []sol.TokenAccount{source, destination} {
		if acc.Create != nil {
			instructions = append(instructions, acc.Create)
		}
	}

	wrapSol, _ := cmd.Flags().GetBool("wrap-sol")
	switch {
	case wrapSol && t.inputMint.Equals(sol.WSOL):
		wrap, err := sol.WrapSolInstructions(owner, source.Address, t.amount)
		if err != nil {
			return err
		}
		instructions = append(instructions, wrap...)
	case source.Create != nil:
		return fmt.Errorf("no token account holds input mint %s", t.inputMint)
	default:
		balance, err := a.client.GetTokenBalance(ctx, source.Address)
		if err != nil {
			return err
		}
		if balance < t.amount {
			return fmt.Errorf("insufficient balance: have %d, need %d", balance, t.amount)
		}
	}

	swapInst, err := adapter.BuildSwapInstruction(pkg.SwapParams{
		SourceMint:              t.inputMint,
		DestinationMint:         t.outputMint,
		SourceTokenAccount:      source.Address,
		DestinationTokenAccount: destination.Address,
		TransferAuthority:       owner,
		InAmount:                t.amount,
		MinimumAmountOut:        minOut,
	})
	if err != nil {
		return err
	}
	instructions = append(instructions, swapInst)

	data, err := swapInst.Data()
	if err != nil {
		return err
	}
	a.logger.Info("built swap instruction",
		zap.Stringer("pool", adapter.Key()),
		zap.Uint64("amount_in", t.amount),
		zap.Uint64("quoted_out", quote.OutAmount),
		zap.Uint64("min_out", minOut),
		zap.Int("accounts", len(swapInst.Accounts())),
		zap.String("data", base58.Encode(data)))

	if wrapSol && t.outputMint.Equals(sol.WSOL) {
		unwrap, err := sol.UnwrapSolInstruction(owner, destination.Address)
		if err != nil {
			return err
		}
		instructions = append(instructions, unwrap)
	}

	signers := []solana.PrivateKey{signer}
	tx, err := a.client.SignTransaction(ctx, signers, instructions...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate {
		res, err := a.client.SimulateTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("simulate transaction: %w", err)
		}
		if res.Value.Err != nil {
			return fmt.Errorf("simulation failed: %v", res.Value.Err)
		}
		fmt.Fprintf(out, "simulation ok, %d compute units\n", derefUint64(res.Value.UnitsConsumed))
		return nil
	}

	if tip, _ := cmd.Flags().GetUint64("jito-tip"); tip > 0 {
		bundleID, err := a.client.SendTxWithJito(ctx, tip, signers, tx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "bundle %s\n", bundleID)
		return nil
	}
	sig, err := a.client.SendTx(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "https://solscan.io/tx/%s\n", sig)
	return nil
}

func derefUint64(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
