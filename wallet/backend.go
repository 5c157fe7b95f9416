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
	"io"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	// SignatureLength is the length of an encoded signature in bytes.
	SignatureLength = crypto.SignatureLength
	recoveryIDBase  = 27
)

// Signature is an ECDSA signature in Ethereum (v, r, s) form.
type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// SignatureFromBytes parses the 65 byte r || s || v encoding.
func SignatureFromBytes(b []byte) (Signature, error) {
	if len(b) != SignatureLength {
		return Signature{}, errors.Errorf("invalid signature length %d", len(b))
	}
	var sig Signature
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:64])
	sig.V = b[64]
	return sig, nil
}

// Bytes returns the 65 byte r || s || v encoding.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureLength)
	copy(b[:32], s.R[:])
	copy(b[32:64], s.S[:])
	b[64] = s.V
	return b
}

// IsZero returns whether the signature is unset.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

type backend struct{}

// Backend recovers and verifies signatures produced by Account.
var Backend = backend{}

// DecodeSig decodes a signature of length SignatureLength from the reader.
func (b backend) DecodeSig(reader io.Reader) (Signature, error) {
	sig := make([]byte, SignatureLength)
	if _, err := io.ReadFull(reader, sig); err != nil {
		return Signature{}, err
	}
	return SignatureFromBytes(sig)
}

// RecoverSigner returns the address that signed the digest.
func (b backend) RecoverSigner(digest common.Hash, sig Signature) (common.Address, error) {
	if sig.V != recoveryIDBase && sig.V != recoveryIDBase+1 {
		return common.Address{}, errors.Errorf("invalid recovery id %d", sig.V)
	}
	raw := sig.Bytes()
	raw[crypto.RecoveryIDOffset] -= recoveryIDBase
	pub, err := crypto.SigToPub(accounts.TextHash(digest[:]), raw)
	if err != nil {
		return common.Address{}, errors.WithMessage(err, "recovering public key")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifySignature checks that addr signed the digest.
func (b backend) VerifySignature(digest common.Hash, sig Signature, addr common.Address) (bool, error) {
	signer, err := b.RecoverSigner(digest, sig)
	if err != nil {
		return false, err
	}
	return signer == addr, nil
}

// RecoverDataSigner returns the address that signed data with
// Account.SignData.
func (b backend) RecoverDataSigner(data []byte, sig Signature) (common.Address, error) {
	return b.RecoverSigner(crypto.Keccak256Hash(data), sig)
}
