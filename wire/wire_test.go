// Copyright 2025 PolyCrypt GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/channel/types"
	wtest "github.com/statechannels/nitro-protocol/wallet/test"
	"github.com/statechannels/nitro-protocol/wire"
)

func TestAmount(t *testing.T) {
	x := []byte{0, 0, 0, 11, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5}
	a := &wire.Amount{}
	require.NoError(t, a.UnmarshalBinary(x))
	require.Equal(t, int64(5), a.Int64())
	res, err := a.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, x, res)
}

func TestAmountLimbs(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	for _, i := range []*big.Int{big.NewInt(0), big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), 64), new(big.Int).Lsh(big.NewInt(3), 190), max} {
		parts, err := wire.MakeUInt256Parts(i)
		require.NoError(t, err)
		require.Equal(t, 0, i.Cmp(wire.ToBigInt(parts)))

		data, err := wire.MakeAmount(i).MarshalBinary()
		require.NoError(t, err)
		var a wire.Amount
		require.NoError(t, a.UnmarshalBinary(data))
		require.Equal(t, 0, i.Cmp(a.Int))
	}

	_, err := wire.MakeUInt256Parts(new(big.Int).Add(max, big.NewInt(1)))
	require.Error(t, err)
	_, err = wire.MakeUInt256Parts(big.NewInt(-1))
	require.Error(t, err)
}

func TestDigest(t *testing.T) {
	rng := pkgtest.Prng(t)
	var d wire.Digest
	rng.Read(d[:])

	data, err := d.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 13, 0, 0, 0, 32}, data[:8])
	require.Len(t, data, 8+32)

	var dec wire.Digest
	require.NoError(t, dec.UnmarshalBinary(data))
	require.Equal(t, d, dec)
	require.Equal(t, common.Hash(d), dec.Hash())

	amount, err := wire.MakeAmount(big.NewInt(1)).MarshalBinary()
	require.NoError(t, err)
	require.Error(t, dec.UnmarshalBinary(amount))
}

func TestSignature(t *testing.T) {
	rng := pkgtest.Prng(t)
	acc := wtest.NewRandomAccount(rng)
	sig, err := acc.SignData([]byte("pls sign me"))
	require.NoError(t, err)

	data, err := wire.Signature{Signature: sig}.MarshalBinary()
	require.NoError(t, err)
	var dec wire.Signature
	require.NoError(t, dec.UnmarshalBinary(data))
	require.Equal(t, sig, dec.Signature)
}

func TestFixedPart(t *testing.T) {
	rng := pkgtest.Prng(t)
	fp := types.FixedPart{
		ChainID:           big.NewInt(rng.Int63()),
		Participants:      []common.Address{wtest.NewRandomAddress(rng), wtest.NewRandomAddress(rng)},
		ChannelNonce:      big.NewInt(rng.Int63()),
		AppDefinition:     wtest.NewRandomAddress(rng),
		ChallengeDuration: 60,
	}

	data, err := wire.FixedPart{FixedPart: fp}.MarshalBinary()
	require.NoError(t, err)
	var dec wire.FixedPart
	require.NoError(t, dec.UnmarshalBinary(data))
	require.Equal(t, fp.ChannelID(), dec.ChannelID())
	require.Equal(t, fp.AppDefinition, dec.AppDefinition)
	require.Equal(t, fp.ChallengeDuration, dec.ChallengeDuration)

	again, err := dec.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestVariableParts(t *testing.T) {
	vps := []types.VariablePart{
		{Outcome: []byte{1, 2, 3}, AppData: []byte{4}},
		{Outcome: []byte{5}, AppData: nil},
	}
	v, err := wire.VariableParts(vps)
	require.NoError(t, err)
	dec, err := wire.VariablePartsFromScVal(v)
	require.NoError(t, err)
	require.Len(t, dec, len(vps))
	for i := range vps {
		require.True(t, vps[i].Equal(dec[i]))
	}

	data, err := wire.VariablePart{VariablePart: vps[0]}.MarshalBinary()
	require.NoError(t, err)
	var vp wire.VariablePart
	require.NoError(t, vp.UnmarshalBinary(data))
	require.True(t, vps[0].Equal(vp.VariablePart))
}
