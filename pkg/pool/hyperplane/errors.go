package hyperplane

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
)

// SchemaError reports account bytes that do not match the expected layout.
type SchemaError struct {
	Account solana.PublicKey
	Reason  string
	Err     error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error for account %s: %s", e.Account, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// StateError is returned when an operation needs synced reserves but the
// adapter has none. Recoverable with another Update.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s requires state %s, adapter is %s", e.Op, StateSynced, e.State)
}

type CurveError struct {
	Curve  CurveType
	Reason string
}

func (e *CurveError) Error() string {
	return fmt.Sprintf("%s curve: %s", e.Curve, e.Reason)
}

type FeeConfigError struct {
	Mint   solana.PublicKey
	Reason string
	Err    error
}

func (e *FeeConfigError) Error() string {
	msg := fmt.Sprintf("transfer fee config for mint %s: %s", e.Mint, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FeeConfigError) Unwrap() error {
	return e.Err
}

type InvalidMintError struct {
	Mint solana.PublicKey
}

func (e *InvalidMintError) Error() string {
	return fmt.Sprintf("mint %s is not traded by this pool", e.Mint)
}

type UnsupportedModeError struct {
	Mode pkg.SwapMode
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("swap mode %s is not supported", e.Mode)
}
