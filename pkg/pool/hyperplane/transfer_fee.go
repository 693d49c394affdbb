package hyperplane

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Token-2022 mint layout: 82-byte base mint, zero padding up to the base
// token-account length, one account-type byte, then TLV extensions.
const (
	MintBaseSize          = 82
	mintAccountTypeOffset = TokenAccountSize
	mintTLVOffset         = mintAccountTypeOffset + 1
	accountTypeMint       = 1

	extensionUninitialized     = 0
	extensionTransferFeeConfig = 1
	transferFeeConfigLength    = 108
	tlvHeaderLength            = 4

	MaxFeeBasisPoints = FeeBasisPointsDenominator
)

// TransferFeeCalculator computes the fee withheld when amount moves at epoch.
type TransferFeeCalculator interface {
	CalculateEpochFee(epoch, amount uint64) (uint64, error)
}

// TransferFeeParser turns raw mint bytes into a calculator. A nil calculator
// with a nil error means the mint charges no transfer fee.
type TransferFeeParser func(mint solana.PublicKey, data []byte) (TransferFeeCalculator, error)

type TransferFee struct {
	Epoch       uint64
	MaximumFee  uint64
	BasisPoints uint16
}

// CalculateFee returns min(ceil(amount * bps / 10000), MaximumFee).
func (f TransferFee) CalculateFee(amount uint64) uint64 {
	if f.BasisPoints == 0 || amount == 0 {
		return 0
	}
	raw := uint128.From64(amount).
		Mul64(uint64(f.BasisPoints)).
		Add64(FeeBasisPointsDenominator - 1).
		Div64(FeeBasisPointsDenominator)
	if raw.Cmp64(f.MaximumFee) > 0 {
		return f.MaximumFee
	}
	return raw.Lo
}

// TransferFeeConfig is the Token-2022 TransferFeeConfig mint extension.
type TransferFeeConfig struct {
	Mint                       solana.PublicKey
	TransferFeeConfigAuthority solana.PublicKey
	WithdrawWithheldAuthority  solana.PublicKey
	WithheldAmount             uint64
	OlderTransferFee           TransferFee
	NewerTransferFee           TransferFee
}

// GetEpochFee picks the schedule active at epoch: the newer one from its
// epoch onwards, the older one before.
func (c *TransferFeeConfig) GetEpochFee(epoch uint64) TransferFee {
	if epoch >= c.NewerTransferFee.Epoch {
		return c.NewerTransferFee
	}
	return c.OlderTransferFee
}

func (c *TransferFeeConfig) CalculateEpochFee(epoch, amount uint64) (uint64, error) {
	fee := c.GetEpochFee(epoch).CalculateFee(amount)
	if fee > amount {
		return 0, &FeeConfigError{Mint: c.Mint, Reason: fmt.Sprintf("fee %d exceeds amount %d", fee, amount)}
	}
	return fee, nil
}

// ParseTransferFeeConfig reads the transfer-fee extension from mint data.
// Mints without extensions, or without this one, yield (nil, nil).
func ParseTransferFeeConfig(mint solana.PublicKey, data []byte) (TransferFeeCalculator, error) {
	if len(data) < MintBaseSize {
		return nil, &FeeConfigError{Mint: mint, Reason: fmt.Sprintf("mint data too short: %d bytes", len(data))}
	}
	if len(data) == MintBaseSize {
		return nil, nil
	}
	if len(data) < mintTLVOffset {
		return nil, &FeeConfigError{Mint: mint, Reason: fmt.Sprintf("extended mint data too short: %d bytes", len(data))}
	}
	if data[mintAccountTypeOffset] != accountTypeMint {
		return nil, &FeeConfigError{Mint: mint, Reason: fmt.Sprintf("account type %d is not a mint", data[mintAccountTypeOffset])}
	}

	tlv := data[mintTLVOffset:]
	for len(tlv) >= tlvHeaderLength {
		extType := binary.LittleEndian.Uint16(tlv[0:2])
		length := int(binary.LittleEndian.Uint16(tlv[2:4]))
		if extType == extensionUninitialized {
			break
		}
		if len(tlv) < tlvHeaderLength+length {
			return nil, &FeeConfigError{Mint: mint, Reason: fmt.Sprintf("extension %d overruns account data", extType)}
		}
		value := tlv[tlvHeaderLength : tlvHeaderLength+length]
		if extType == extensionTransferFeeConfig {
			cfg, err := decodeTransferFeeConfig(mint, value)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		}
		tlv = tlv[tlvHeaderLength+length:]
	}
	return nil, nil
}

func decodeTransferFeeConfig(mint solana.PublicKey, value []byte) (*TransferFeeConfig, error) {
	if len(value) != transferFeeConfigLength {
		return nil, &FeeConfigError{
			Mint:   mint,
			Reason: fmt.Sprintf("transfer fee extension is %d bytes, expected %d", len(value), transferFeeConfigLength),
		}
	}
	readFee := func(b []byte) TransferFee {
		return TransferFee{
			Epoch:       binary.LittleEndian.Uint64(b[0:8]),
			MaximumFee:  binary.LittleEndian.Uint64(b[8:16]),
			BasisPoints: binary.LittleEndian.Uint16(b[16:18]),
		}
	}
	cfg := &TransferFeeConfig{
		Mint:                       mint,
		TransferFeeConfigAuthority: solana.PublicKeyFromBytes(value[0:32]),
		WithdrawWithheldAuthority:  solana.PublicKeyFromBytes(value[32:64]),
		WithheldAmount:             binary.LittleEndian.Uint64(value[64:72]),
		OlderTransferFee:           readFee(value[72:90]),
		NewerTransferFee:           readFee(value[90:108]),
	}
	for _, fee := range []TransferFee{cfg.OlderTransferFee, cfg.NewerTransferFee} {
		if fee.BasisPoints > MaxFeeBasisPoints {
			return nil, &FeeConfigError{
				Mint:   mint,
				Reason: fmt.Sprintf("basis points %d above %d", fee.BasisPoints, MaxFeeBasisPoints),
			}
		}
	}
	return cfg, nil
}
