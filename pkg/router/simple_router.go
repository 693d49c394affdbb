package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxSlippageBps     = 10_000
	defaultConcurrency = 8
)

var ErrNoRoute = errors.New("no route found")

type SimpleRouter struct {
	Protocols []pkg.Protocol
	Pools     []pkg.Amm
	// Concurrency bounds parallel pool refreshes.
	Concurrency int
	logger      *zap.Logger
}

func NewSimpleRouter(logger *zap.Logger, protocols ...pkg.Protocol) *SimpleRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimpleRouter{
		Protocols:   protocols,
		Pools:       []pkg.Amm{},
		Concurrency: defaultConcurrency,
		logger:      logger.Named("router"),
	}
}

// QueryAllPools replaces the router's pools with every pool the protocols
// know for the pair. A failing protocol is logged and skipped.
func (r *SimpleRouter) QueryAllPools(ctx context.Context, baseMint, quoteMint solana.PublicKey) error {
	var allPools []pkg.Amm
	for _, proto := range r.Protocols {
		r.logger.Info("fetching pools", zap.String("protocol", string(proto.ProtocolName())))
		pools, err := proto.FetchPoolsByPair(ctx, baseMint, quoteMint)
		if err != nil {
			r.logger.Warn("error fetching pools from protocol",
				zap.String("protocol", string(proto.ProtocolName())), zap.Error(err))
			continue
		}
		allPools = append(allPools, pools...)
	}
	r.Pools = allPools
	return nil
}

// AddPool registers a pool fetched outside QueryAllPools.
func (r *SimpleRouter) AddPool(amm pkg.Amm) {
	r.Pools = append(r.Pools, amm)
}

func (r *SimpleRouter) protocolFor(amm pkg.Amm) (pkg.Protocol, bool) {
	for _, proto := range r.Protocols {
		if proto.ProtocolName() == amm.ProtocolName() {
			return proto, true
		}
	}
	return nil, false
}

// RefreshPools refreshes every pool concurrently and returns how many ended
// up with fresh state. Individual failures leave that pool stale and are
// only logged; a cancelled ctx aborts the whole refresh.
func (r *SimpleRouter) RefreshPools(ctx context.Context) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}

	var (
		mu    sync.Mutex
		fresh int
	)
	for _, amm := range r.Pools {
		proto, ok := r.protocolFor(amm)
		if !ok {
			r.logger.Warn("no protocol for pool", zap.Stringer("pool", amm.Key()))
			continue
		}
		g.Go(func() error {
			if err := proto.Refresh(gctx, amm); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.Warn("pool refresh failed", zap.Stringer("pool", amm.Key()), zap.Error(err))
				return nil
			}
			mu.Lock()
			fresh++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fresh, fmt.Errorf("refresh pools: %w", err)
	}
	return fresh, nil
}

// GetBestPool quotes every pool and returns the one with the largest output.
// Ties go to the pool with the smaller address so results are stable.
func (r *SimpleRouter) GetBestPool(params pkg.QuoteParams) (pkg.Amm, pkg.Quote, error) {
	type quoteResult struct {
		pool  pkg.Amm
		quote pkg.Quote
		err   error
	}

	results := make([]quoteResult, len(r.Pools))
	var wg sync.WaitGroup
	for i, pool := range r.Pools {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := pool.Quote(params)
			results[i] = quoteResult{pool: pool, quote: q, err: err}
		}()
	}
	wg.Wait()

	var (
		best      pkg.Amm
		bestQuote pkg.Quote
	)
	for _, result := range results {
		if result.err != nil {
			r.logger.Debug("error quoting pool", zap.Stringer("pool", result.pool.Key()), zap.Error(result.err))
			continue
		}
		if best == nil || result.quote.OutAmount > bestQuote.OutAmount ||
			(result.quote.OutAmount == bestQuote.OutAmount && bytes.Compare(result.pool.Key().Bytes(), best.Key().Bytes()) < 0) {
			best, bestQuote = result.pool, result.quote
		}
	}

	if best == nil {
		return nil, pkg.Quote{}, ErrNoRoute
	}
	return best, bestQuote, nil
}

// MinAmountOut applies slippageBps to outAmount, rounding down.
func MinAmountOut(outAmount, slippageBps uint64) (uint64, error) {
	if slippageBps > maxSlippageBps {
		return 0, fmt.Errorf("slippage %d bps above %d", slippageBps, maxSlippageBps)
	}
	minOut := math.NewIntFromUint64(outAmount).
		Mul(math.NewIntFromUint64(maxSlippageBps - slippageBps)).
		Quo(math.NewInt(maxSlippageBps))
	return minOut.Uint64(), nil
}
