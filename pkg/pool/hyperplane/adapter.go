package hyperplane

import (
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
	"go.uber.org/zap"
)

type Options struct {
	// ProgramID defaults to HyperplaneProgramID.
	ProgramID solana.PublicKey
	// TransferFeeAware tracks both mints and applies Token-2022 transfer fees.
	TransferFeeAware bool
	// TransferFeeParser defaults to ParseTransferFeeConfig.
	TransferFeeParser TransferFeeParser
	// IncludeCurveAccount adds the curve PDA after the pool in swap accounts.
	IncludeCurveAccount bool
	// WritableAuthority marks the transfer authority writable.
	WritableAuthority bool
	Logger            *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.ProgramID.IsZero() {
		o.ProgramID = HyperplaneProgramID
	}
	if o.TransferFeeParser == nil {
		o.TransferFeeParser = ParseTransferFeeConfig
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Adapter quotes and builds swaps for one Hyperplane pool. Update is the only
// writer; Quote and BuildSwapInstruction may run concurrently with it.
type Adapter struct {
	config  PoolConfig
	opts    Options
	logger  *zap.Logger
	current atomic.Pointer[view]
}

var _ pkg.Amm = (*Adapter)(nil)

// NewAdapter decodes the pool account and returns a Configured adapter.
func NewAdapter(address solana.PublicKey, data []byte, opts Options) (*Adapter, error) {
	opts = opts.withDefaults()
	pool, err := DecodeSwapPool(address, data)
	if err != nil {
		return nil, err
	}
	cfg, err := NewPoolConfig(address, opts.ProgramID, pool)
	if err != nil {
		return nil, err
	}
	a := &Adapter{
		config: cfg,
		opts:   opts,
		logger: opts.Logger.Named("hyperplane").With(zap.Stringer("pool", address)),
	}
	a.current.Store(&view{state: StateConfigured})
	return a, nil
}

func (a *Adapter) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameHyperplane
}

func (a *Adapter) ProgramID() solana.PublicKey {
	return a.config.ProgramID
}

func (a *Adapter) Key() solana.PublicKey {
	return a.config.Address
}

func (a *Adapter) Label() string {
	return Label
}

// Config returns a copy of the decoded pool configuration.
func (a *Adapter) Config() PoolConfig {
	return a.config
}

func (a *Adapter) State() State {
	v := a.current.Load()
	if v == nil {
		return StateUninitialized
	}
	return v.state
}

// Snapshot returns the last published snapshot, which may be stale.
func (a *Adapter) Snapshot() (*ReserveSnapshot, State) {
	v := a.current.Load()
	if v == nil {
		return nil, StateUninitialized
	}
	return v.snapshot, v.state
}

func (a *Adapter) GetReserveMints() []solana.PublicKey {
	return []solana.PublicKey{a.config.Pool.TokenAMint, a.config.Pool.TokenBMint}
}

func (a *Adapter) GetAccountsToTrack() []solana.PublicKey {
	accounts := []solana.PublicKey{
		a.config.Pool.TokenAVault,
		a.config.Pool.TokenBVault,
		a.config.CurveAddress,
		ClockSysvarID,
	}
	if a.opts.TransferFeeAware {
		accounts = append(accounts, a.config.Pool.TokenAMint, a.config.Pool.TokenBMint)
	}
	return accounts
}

// Update builds a new snapshot from accounts and publishes it in one step.
// On any failure the previous snapshot stays in place and the adapter
// becomes Stale.
func (a *Adapter) Update(accounts pkg.AccountMap) error {
	cur := a.current.Load()
	if cur == nil {
		return &StateError{Op: "update", State: StateUninitialized}
	}

	next, err := a.buildSnapshot(accounts, cur.snapshot)
	if err != nil {
		a.current.Store(&view{state: StateStale, snapshot: cur.snapshot})
		a.logger.Warn("pool snapshot is stale", zap.Error(err))
		return err
	}

	a.current.Store(&view{state: StateSynced, snapshot: next})
	a.logger.Debug("published pool snapshot",
		zap.Uint64("token_a_amount", next.TokenAAmount),
		zap.Uint64("token_b_amount", next.TokenBAmount),
		zap.Stringer("curve", next.Curve.Type()),
		zap.Uint64("epoch", next.Epoch))
	return nil
}

// synced returns the current snapshot or a StateError.
func (a *Adapter) synced(op string) (*ReserveSnapshot, error) {
	v := a.current.Load()
	if v == nil {
		return nil, &StateError{Op: op, State: StateUninitialized}
	}
	if v.state != StateSynced || v.snapshot == nil {
		return nil, &StateError{Op: op, State: v.state}
	}
	return v.snapshot, nil
}

func (a *Adapter) direction(inputMint solana.PublicKey) (TradeDirection, error) {
	switch {
	case inputMint.Equals(a.config.Pool.TokenAMint):
		return AtoB, nil
	case inputMint.Equals(a.config.Pool.TokenBMint):
		return BtoA, nil
	default:
		return AtoB, &InvalidMintError{Mint: inputMint}
	}
}

// Quote prices an ExactIn trade against the latest snapshot: transfer fee
// on the way in, curve, transfer fee on the way out.
func (a *Adapter) Quote(params pkg.QuoteParams) (pkg.Quote, error) {
	if params.SwapMode != pkg.ExactIn {
		return pkg.Quote{}, &UnsupportedModeError{Mode: params.SwapMode}
	}
	dir, err := a.direction(params.InputMint)
	if err != nil {
		return pkg.Quote{}, err
	}
	snap, err := a.synced("quote")
	if err != nil {
		return pkg.Quote{}, err
	}

	reserveIn, reserveOut := snap.TokenAAmount, snap.TokenBAmount
	feeIn, feeOut := snap.TokenAFee, snap.TokenBFee
	outputMint := a.config.Pool.TokenBMint
	if dir == BtoA {
		reserveIn, reserveOut = reserveOut, reserveIn
		feeIn, feeOut = feeOut, feeIn
		outputMint = a.config.Pool.TokenAMint
	}

	var transferFeeIn uint64
	if feeIn != nil {
		if transferFeeIn, err = feeIn.CalculateEpochFee(snap.Epoch, params.Amount); err != nil {
			return pkg.Quote{}, err
		}
		if transferFeeIn > params.Amount {
			return pkg.Quote{}, &FeeConfigError{Mint: params.InputMint, Reason: "transfer fee exceeds input amount"}
		}
	}

	result, err := Swap(snap.Curve, params.Amount-transferFeeIn, reserveIn, reserveOut, dir, a.config.Pool.Fees)
	if err != nil {
		return pkg.Quote{}, err
	}

	out := result.DestinationAmountSwapped
	var transferFeeOut uint64
	if feeOut != nil {
		if transferFeeOut, err = feeOut.CalculateEpochFee(snap.Epoch, out); err != nil {
			return pkg.Quote{}, err
		}
		if transferFeeOut > out {
			return pkg.Quote{}, &FeeConfigError{Mint: outputMint, Reason: "transfer fee exceeds curve output"}
		}
	}

	return pkg.Quote{
		InAmount:       params.Amount,
		OutAmount:      out - transferFeeOut,
		FeeAmount:      result.TotalFee(),
		FeeMint:        params.InputMint,
		FeePct:         a.config.Pool.Fees.TradeFeeRate(),
		TransferFeeIn:  transferFeeIn,
		TransferFeeOut: transferFeeOut,
		CurveOutAmount: out,
	}, nil
}

// Clone returns an adapter sharing the immutable config and the current
// snapshot. Later updates to either copy do not affect the other.
func (a *Adapter) Clone() *Adapter {
	c := &Adapter{config: a.config, opts: a.opts, logger: a.logger}
	c.current.Store(a.current.Load())
	return c
}
