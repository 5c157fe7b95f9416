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

package wallet

import (
	"crypto/ecdsa"
	"io"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Account is used for signing channel states and withdraw authorizations.
type Account struct {
	// privateKey is the secp256k1 private key of the account.
	privateKey *ecdsa.PrivateKey
}

// NewAccount wraps an existing private key.
func NewAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{privateKey: key}
}

// NewRandomAccount creates a new account with a private key drawn from rng.
func NewRandomAccount(rng io.Reader) (*Account, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rng)
	if err != nil {
		return nil, errors.WithMessage(err, "generating key")
	}
	return &Account{privateKey: key}, nil
}

// Address returns the Ethereum address of the account.
func (a Account) Address() common.Address {
	return crypto.PubkeyToAddress(a.privateKey.PublicKey)
}

// SignHash signs the Ethereum signed message prefix of the 32 byte digest.
func (a Account) SignHash(digest common.Hash) (Signature, error) {
	if a.privateKey == nil {
		return Signature{}, errors.New("account has no private key")
	}
	sig, err := crypto.Sign(accounts.TextHash(digest[:]), a.privateKey)
	if err != nil {
		return Signature{}, err
	}
	sig[crypto.RecoveryIDOffset] += recoveryIDBase
	return SignatureFromBytes(sig)
}

// SignData signs the keccak256 hash of data.
func (a Account) SignData(data []byte) (Signature, error) {
	return a.SignHash(crypto.Keccak256Hash(data))
}
