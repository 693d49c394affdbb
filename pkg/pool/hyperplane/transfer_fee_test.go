package hyperplane

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingwow/hyperroute/pkg/pool/hyperplane/hyperplanetest"
)

func TestTransferFeeCalculateFee(t *testing.T) {
	tests := []struct {
		name   string
		fee    TransferFee
		amount uint64
		want   uint64
	}{
		{"capped at maximum", TransferFee{BasisPoints: 100, MaximumFee: 5_000}, 1_000_000, 5_000},
		{"below cap", TransferFee{BasisPoints: 100, MaximumFee: 1_000_000}, 1_000_000, 10_000},
		{"rounds up", TransferFee{BasisPoints: 1, MaximumFee: 1_000}, 1, 1},
		{"zero rate", TransferFee{BasisPoints: 0, MaximumFee: 1_000}, 1_000_000, 0},
		{"zero amount", TransferFee{BasisPoints: 500, MaximumFee: 1_000}, 0, 0},
		{"full rate", TransferFee{BasisPoints: MaxFeeBasisPoints, MaximumFee: ^uint64(0)}, 12_345, 12_345},
		{"zero cap", TransferFee{BasisPoints: 100, MaximumFee: 0}, 1_000_000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fee.CalculateFee(tt.amount))
		})
	}
}

func TestTransferFeeEpochTransition(t *testing.T) {
	const transition = 500
	cfg := &TransferFeeConfig{
		OlderTransferFee: TransferFee{Epoch: 100, BasisPoints: 50, MaximumFee: 1_000_000},
		NewerTransferFee: TransferFee{Epoch: transition, BasisPoints: 200, MaximumFee: 1_000_000},
	}

	assert.Equal(t, cfg.OlderTransferFee, cfg.GetEpochFee(transition-1))
	assert.Equal(t, cfg.NewerTransferFee, cfg.GetEpochFee(transition))
	assert.Equal(t, cfg.NewerTransferFee, cfg.GetEpochFee(transition+1))

	fee, err := cfg.CalculateEpochFee(transition-1, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000), fee)

	fee, err = cfg.CalculateEpochFee(transition, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000), fee)
}

func TestParseTransferFeeConfig(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	older := hyperplanetest.TransferFee{Epoch: 10, MaximumFee: 5_000, BasisPoints: 100}
	newer := hyperplanetest.TransferFee{Epoch: 20, MaximumFee: 9_000, BasisPoints: 250}

	calc, err := ParseTransferFeeConfig(mint, hyperplanetest.MintWithTransferFee(6, older, newer))
	require.NoError(t, err)
	cfg, ok := calc.(*TransferFeeConfig)
	require.True(t, ok)
	assert.Equal(t, mint, cfg.Mint)
	assert.Equal(t, TransferFee{Epoch: 10, MaximumFee: 5_000, BasisPoints: 100}, cfg.OlderTransferFee)
	assert.Equal(t, TransferFee{Epoch: 20, MaximumFee: 9_000, BasisPoints: 250}, cfg.NewerTransferFee)
	assert.False(t, cfg.TransferFeeConfigAuthority.IsZero())
}

func TestParseTransferFeeConfigWithoutExtension(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	calc, err := ParseTransferFeeConfig(mint, hyperplanetest.Mint(9))
	require.NoError(t, err)
	assert.Nil(t, calc)

	// Token-2022 mint carrying only an unrelated extension
	data := make([]byte, mintTLVOffset+tlvHeaderLength+8)
	copy(data, hyperplanetest.Mint(9))
	data[mintAccountTypeOffset] = accountTypeMint
	binary.LittleEndian.PutUint16(data[mintTLVOffset:], 3)
	binary.LittleEndian.PutUint16(data[mintTLVOffset+2:], 8)
	calc, err = ParseTransferFeeConfig(mint, data)
	require.NoError(t, err)
	assert.Nil(t, calc)
}

func TestParseTransferFeeConfigMalformed(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	fee := hyperplanetest.TransferFee{Epoch: 1, MaximumFee: 1, BasisPoints: 1}
	valid := hyperplanetest.MintWithTransferFee(6, fee, fee)

	wrongAccountType := append([]byte(nil), valid...)
	wrongAccountType[mintAccountTypeOffset] = 2

	tooManyBps := hyperplanetest.MintWithTransferFee(6, fee,
		hyperplanetest.TransferFee{Epoch: 2, MaximumFee: 1, BasisPoints: MaxFeeBasisPoints + 1})

	tests := []struct {
		name string
		data []byte
	}{
		{"shorter than a mint", valid[:40]},
		{"extended mint without account type", valid[:MintBaseSize+10]},
		{"not a mint account", wrongAccountType},
		{"extension overruns data", valid[:len(valid)-10]},
		{"basis points above 10000", tooManyBps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransferFeeConfig(mint, tt.data)
			var feeErr *FeeConfigError
			require.True(t, errors.As(err, &feeErr), "got %v", err)
			assert.Equal(t, mint, feeErr.Mint)
		})
	}
}
