package hyperplane

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingwow/hyperroute/pkg"
	"github.com/yimingwow/hyperroute/pkg/pool/hyperplane/hyperplanetest"
	"github.com/yimingwow/hyperroute/pkg/sol"
)

type swapUser struct {
	authority   solana.PublicKey
	source      solana.PublicKey
	destination solana.PublicKey
}

func newSwapUser() swapUser {
	return swapUser{
		authority:   solana.NewWallet().PublicKey(),
		source:      solana.NewWallet().PublicKey(),
		destination: solana.NewWallet().PublicKey(),
	}
}

func (u swapUser) params(source, destination solana.PublicKey) pkg.SwapParams {
	return pkg.SwapParams{
		SourceMint:              source,
		DestinationMint:         destination,
		SourceTokenAccount:      u.source,
		DestinationTokenAccount: u.destination,
		TransferAuthority:       u.authority,
		InAmount:                1_000_000,
		MinimumAmountOut:        990_000,
	}
}

func keys(metas []*solana.AccountMeta) []solana.PublicKey {
	out := make([]solana.PublicKey, len(metas))
	for i, m := range metas {
		out[i] = m.PublicKey
	}
	return out
}

func TestBuildSwapInstructionAccountOrder(t *testing.T) {
	fixture := hyperplanetest.NewPool()
	fixture.TokenBProgram = sol.Token2022ProgramID
	p := newTestPool(t, fixture, Options{})
	user := newSwapUser()

	tests := []struct {
		name                string
		source, destination solana.PublicKey
		want                []solana.PublicKey
	}{
		{
			name:        "A to B",
			source:      fixture.TokenAMint,
			destination: fixture.TokenBMint,
			want: []solana.PublicKey{
				user.authority, p.address, fixture.PoolAuthority,
				fixture.TokenAMint, fixture.TokenBMint,
				fixture.TokenAVault, fixture.TokenBVault, fixture.TokenAFeesVault,
				user.source, user.destination, HyperplaneProgramID,
				TokenProgramID, sol.Token2022ProgramID,
			},
		},
		{
			name:        "B to A",
			source:      fixture.TokenBMint,
			destination: fixture.TokenAMint,
			want: []solana.PublicKey{
				user.authority, p.address, fixture.PoolAuthority,
				fixture.TokenBMint, fixture.TokenAMint,
				fixture.TokenBVault, fixture.TokenAVault, fixture.TokenBFeesVault,
				user.source, user.destination, HyperplaneProgramID,
				sol.Token2022ProgramID, TokenProgramID,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := p.adapter.BuildSwapInstruction(user.params(tt.source, tt.destination))
			require.NoError(t, err)
			assert.Equal(t, HyperplaneProgramID, inst.ProgramID())

			metas := inst.Accounts()
			require.Len(t, metas, SwapAccountCount)
			assert.Equal(t, tt.want, keys(metas))

			writable := []bool{false, true, false, false, false, true, true, true, true, true, true, false, false}
			for i, m := range metas {
				assert.Equal(t, i == 0, m.IsSigner, "signer flag at %d", i)
				assert.Equal(t, writable[i], m.IsWritable, "writable flag at %d", i)
			}
		})
	}
}

func TestBuildSwapInstructionData(t *testing.T) {
	p := newTestPool(t, hyperplanetest.NewPool(), Options{})
	inst, err := p.adapter.BuildSwapInstruction(newSwapUser().params(p.fixture.TokenAMint, p.fixture.TokenBMint))
	require.NoError(t, err)

	data, err := inst.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, SwapDiscriminator[:], data[:8])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(990_000), binary.LittleEndian.Uint64(data[16:24]))
}

func TestBuildSwapInstructionOptions(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	p := newTestPool(t, hyperplanetest.NewPool(), Options{
		ProgramID:           programID,
		IncludeCurveAccount: true,
		WritableAuthority:   true,
	})
	user := newSwapUser()
	params := user.params(p.fixture.TokenAMint, p.fixture.TokenBMint)
	hostFee := solana.NewWallet().PublicKey()
	params.HostFeeAccount = hostFee

	inst, err := p.adapter.BuildSwapInstruction(params)
	require.NoError(t, err)
	assert.Equal(t, programID, inst.ProgramID())

	metas := inst.Accounts()
	require.Len(t, metas, SwapAccountCount+1)
	assert.True(t, metas[0].IsWritable)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, p.adapter.Config().CurveAddress, metas[2].PublicKey)
	assert.False(t, metas[2].IsWritable)
	assert.Equal(t, p.fixture.PoolAuthority, metas[3].PublicKey)
	assert.Equal(t, hostFee, metas[11].PublicKey)
}

func TestBuildSwapInstructionHostFeeSentinelFollowsProgramID(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	p := newTestPool(t, hyperplanetest.NewPool(), Options{ProgramID: programID})

	inst, err := p.adapter.BuildSwapInstruction(newSwapUser().params(p.fixture.TokenAMint, p.fixture.TokenBMint))
	require.NoError(t, err)
	assert.Equal(t, programID, inst.Accounts()[10].PublicKey)
}

func TestBuildSwapInstructionRejectsMints(t *testing.T) {
	p := newTestPool(t, hyperplanetest.NewPool(), Options{})
	user := newSwapUser()
	stranger := solana.NewWallet().PublicKey()

	for _, params := range []pkg.SwapParams{
		user.params(stranger, p.fixture.TokenBMint),
		user.params(p.fixture.TokenAMint, stranger),
		user.params(p.fixture.TokenAMint, p.fixture.TokenAMint),
	} {
		_, err := p.adapter.BuildSwapInstruction(params)
		var mintErr *InvalidMintError
		assert.True(t, errors.As(err, &mintErr), "got %v", err)
	}
}
