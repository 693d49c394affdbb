package hyperplane

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
	"github.com/yimingwow/hyperroute/pkg/sol"
)

type State uint8

const (
	StateUninitialized State = iota
	StateConfigured
	StateSynced
	StateStale
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateConfigured:
		return "Configured"
	case StateSynced:
		return "Synced"
	case StateStale:
		return "Stale"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ReserveSnapshot is one consistent view of the pool. It is never mutated
// after it has been published.
type ReserveSnapshot struct {
	TokenAAmount uint64
	TokenBAmount uint64
	Curve        Calculator
	Epoch        uint64
	Slot         uint64
	// nil when the mint charges no transfer fee or fees are not tracked.
	TokenAFee TransferFeeCalculator
	TokenBFee TransferFeeCalculator
}

// view is the single atomic publish point: state and snapshot always change
// together.
type view struct {
	state    State
	snapshot *ReserveSnapshot
}

// ErrMissingAccounts is wrapped by Update when a mandatory account was not
// supplied and could not be taken from the previous snapshot.
var ErrMissingAccounts = errors.New("mandatory accounts missing from update")

// buildSnapshot merges a batch of fresh account data with the last published
// snapshot. Both vault balances must come from the same batch; the curve,
// clock and mint configs may be carried over.
func (a *Adapter) buildSnapshot(accounts pkg.AccountMap, prev *ReserveSnapshot) (*ReserveSnapshot, error) {
	cfg := a.config
	next := &ReserveSnapshot{}
	var missing []string

	vaultA, okA := accounts[cfg.Pool.TokenAVault]
	vaultB, okB := accounts[cfg.Pool.TokenBVault]
	if !okA {
		missing = append(missing, "token A vault "+cfg.Pool.TokenAVault.String())
	}
	if !okB {
		missing = append(missing, "token B vault "+cfg.Pool.TokenBVault.String())
	}
	if okA && okB {
		var err error
		if next.TokenAAmount, err = decodeTokenAmount(cfg.Pool.TokenAVault, vaultA); err != nil {
			return nil, err
		}
		if next.TokenBAmount, err = decodeTokenAmount(cfg.Pool.TokenBVault, vaultB); err != nil {
			return nil, err
		}
	}

	if data, ok := accounts[cfg.CurveAddress]; ok {
		curve, err := DecodeCurve(cfg.CurveAddress, data)
		if err != nil {
			return nil, err
		}
		if uint64(curve.Type()) != cfg.Pool.CurveType {
			return nil, &SchemaError{
				Account: cfg.CurveAddress,
				Reason:  fmt.Sprintf("curve account is %s, pool declares %s", curve.Type(), CurveType(cfg.Pool.CurveType)),
			}
		}
		next.Curve = curve
	} else if prev != nil {
		next.Curve = prev.Curve
	} else {
		missing = append(missing, "curve "+cfg.CurveAddress.String())
	}

	if data, ok := accounts[ClockSysvarID]; ok {
		clock, err := sol.ParseClock(data)
		if err != nil {
			return nil, &SchemaError{Account: ClockSysvarID, Reason: "clock sysvar", Err: err}
		}
		next.Epoch, next.Slot = clock.Epoch, clock.Slot
	} else if prev != nil {
		next.Epoch, next.Slot = prev.Epoch, prev.Slot
	} else {
		missing = append(missing, "clock sysvar")
	}

	if a.opts.TransferFeeAware {
		var prevA, prevB TransferFeeCalculator
		if prev != nil {
			prevA, prevB = prev.TokenAFee, prev.TokenBFee
		}
		var err error
		if next.TokenAFee, err = a.mintFee(accounts, cfg.Pool.TokenAMint, prevA); err != nil {
			return nil, err
		}
		if next.TokenBFee, err = a.mintFee(accounts, cfg.Pool.TokenBMint, prevB); err != nil {
			return nil, err
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingAccounts, missing)
	}
	return next, nil
}

func (a *Adapter) mintFee(accounts pkg.AccountMap, mint solana.PublicKey, prev TransferFeeCalculator) (TransferFeeCalculator, error) {
	data, ok := accounts[mint]
	if !ok {
		return prev, nil
	}
	return a.opts.TransferFeeParser(mint, data)
}

// decodeTokenAmount reads the amount field of an SPL token account.
func decodeTokenAmount(address solana.PublicKey, data []byte) (uint64, error) {
	if len(data) < TokenAccountAmountOffset+8 {
		return 0, &SchemaError{
			Account: address,
			Reason:  fmt.Sprintf("token account too short: %d bytes", len(data)),
		}
	}
	return binary.LittleEndian.Uint64(data[TokenAccountAmountOffset : TokenAccountAmountOffset+8]), nil
}
