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

package wallet_test

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	pkgtest "polycry.pt/poly-go/test"

	"github.com/statechannels/nitro-protocol/wallet"
	wtest "github.com/statechannels/nitro-protocol/wallet/test"
)

// TestEphemeralWallet tests the ephemeral wallet implementation.
func TestEphemeralWallet(t *testing.T) {
	rng := pkgtest.Prng(t)
	w := wallet.NewEphemeralWallet()

	acc, err := w.AddNewAccount(rng)
	require.NoError(t, err)
	require.Error(t, w.AddAccount(acc))

	unlockedAccount, err := w.Unlock(acc.Address())
	require.NoError(t, err)
	require.Equal(t, acc.Address(), unlockedAccount.Address())
	require.Equal(t, []common.Address{acc.Address()}, w.Addresses())

	_, err = w.Unlock(wtest.NewRandomAddress(rng))
	require.Error(t, err)

	msg := []byte("hello world")
	sig, err := unlockedAccount.SignData(msg)
	require.NoError(t, err)

	signer, err := wallet.Backend.RecoverDataSigner(msg, sig)
	require.NoError(t, err)
	require.Equal(t, acc.Address(), signer)
}

func TestSignHash(t *testing.T) {
	rng := pkgtest.Prng(t)
	acc := wtest.NewRandomAccount(rng)
	var digest common.Hash
	rng.Read(digest[:])

	sig, err := acc.SignHash(digest)
	require.NoError(t, err)
	require.Contains(t, []uint8{27, 28}, sig.V)

	valid, err := wallet.Backend.VerifySignature(digest, sig, acc.Address())
	require.NoError(t, err)
	require.True(t, valid)

	other := digest
	other[0] ^= 0xff
	valid, err = wallet.Backend.VerifySignature(other, sig, acc.Address())
	require.NoError(t, err)
	require.False(t, valid)

	bad := sig
	bad.V = 3
	_, err = wallet.Backend.RecoverSigner(digest, bad)
	require.Error(t, err)
}

func TestSignatureEncoding(t *testing.T) {
	rng := pkgtest.Prng(t)
	acc := wtest.NewRandomAccount(rng)
	sig, err := acc.SignData([]byte("pls sign me"))
	require.NoError(t, err)
	require.False(t, sig.IsZero())

	b := sig.Bytes()
	require.Len(t, b, wallet.SignatureLength)
	dec, err := wallet.Backend.DecodeSig(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, sig, dec)

	_, err = wallet.SignatureFromBytes(b[:64])
	require.Error(t, err)
	require.True(t, wallet.Signature{}.IsZero())
}
