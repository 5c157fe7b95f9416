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

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ABI types of the values hashed by the adjudicator. The layouts mirror
// abi.encode() of the corresponding Solidity structs.
var (
	abiUint256   = mustType("uint256", nil)
	abiAddress   = mustType("address", nil)
	abiAddresses = mustType("address[]", nil)
	abiBytes32   = mustType("bytes32", nil)
	abiBytes     = mustType("bytes", nil)
	abiString    = mustType("string", nil)

	abiAllocation = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "destination", Type: "bytes32"},
		{Name: "amount", Type: "uint256"},
	})
	abiGuarantee = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "targetChannelId", Type: "bytes32"},
		{Name: "destinations", Type: "bytes32[]"},
	})
	abiLabelled = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "outcomeType", Type: "uint8"},
		{Name: "allocationOrGuarantee", Type: "bytes"},
	})
	abiOutcome = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "assetHolderAddress", Type: "address"},
		{Name: "outcomeContent", Type: "bytes"},
	})
	abiState = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "turnNum", Type: "uint256"},
		{Name: "isFinal", Type: "bool"},
		{Name: "channelId", Type: "bytes32"},
		{Name: "appPartHash", Type: "bytes32"},
		{Name: "outcomeHash", Type: "bytes32"},
	})
	abiChannelStorage = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "turnNumRecord", Type: "uint256"},
		{Name: "finalizesAt", Type: "uint256"},
		{Name: "stateHash", Type: "bytes32"},
		{Name: "challengerAddress", Type: "address"},
		{Name: "outcomeHash", Type: "bytes32"},
	})
	abiChannelStorageLite = mustType("tuple", []abi.ArgumentMarshaling{
		{Name: "finalizesAt", Type: "uint256"},
		{Name: "stateHash", Type: "bytes32"},
		{Name: "challengerAddress", Type: "address"},
		{Name: "outcomeHash", Type: "bytes32"},
	})
)

type (
	allocationItemABI struct {
		Destination [32]byte `abi:"destination"`
		Amount      *big.Int `abi:"amount"`
	}

	guaranteeABI struct {
		TargetChannelID [32]byte   `abi:"targetChannelId"`
		Destinations    [][32]byte `abi:"destinations"`
	}

	labelledABI struct {
		OutcomeType           uint8  `abi:"outcomeType"`
		AllocationOrGuarantee []byte `abi:"allocationOrGuarantee"`
	}

	assetOutcomeABI struct {
		AssetHolderAddress common.Address `abi:"assetHolderAddress"`
		OutcomeContent     []byte         `abi:"outcomeContent"`
	}

	stateABI struct {
		TurnNum     *big.Int `abi:"turnNum"`
		IsFinal     bool     `abi:"isFinal"`
		ChannelID   [32]byte `abi:"channelId"`
		AppPartHash [32]byte `abi:"appPartHash"`
		OutcomeHash [32]byte `abi:"outcomeHash"`
	}

	channelStorageABI struct {
		TurnNumRecord     *big.Int       `abi:"turnNumRecord"`
		FinalizesAt       *big.Int       `abi:"finalizesAt"`
		StateHash         [32]byte       `abi:"stateHash"`
		ChallengerAddress common.Address `abi:"challengerAddress"`
		OutcomeHash       [32]byte       `abi:"outcomeHash"`
	}

	channelStorageLiteABI struct {
		FinalizesAt       *big.Int       `abi:"finalizesAt"`
		StateHash         [32]byte       `abi:"stateHash"`
		ChallengerAddress common.Address `abi:"challengerAddress"`
		OutcomeHash       [32]byte       `abi:"outcomeHash"`
	}
)

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

// pack abi-encodes the values. All callers pass values matching the
// argument types, so an error indicates a programming error.
func pack(types []abi.Type, values ...interface{}) []byte {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		args[i] = abi.Argument{Type: t}
	}
	data, err := args.Pack(values...)
	if err != nil {
		panic(err)
	}
	return data
}

// unpackSingle decodes data holding exactly one value of type t.
func unpackSingle(t abi.Type, data []byte) (interface{}, error) {
	vals, err := abi.Arguments{{Type: t}}.Unpack(data)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

// Keccak256 hashes the concatenation of data.
func Keccak256(data ...[]byte) common.Hash {
	return crypto.Keccak256Hash(data...)
}

func bigUint(i uint64) *big.Int {
	return new(big.Int).SetUint64(i)
}

func bigOrZero(i *big.Int) *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return i
}
