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
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// OutcomeType labels the variant of an AssetOutcome.
type OutcomeType uint8

const (
	OutcomeTypeAllocation OutcomeType = iota
	OutcomeTypeGuarantee
)

type (
	// AllocationOrGuarantee is implemented by Allocation and Guarantee.
	AllocationOrGuarantee interface {
		Type() OutcomeType
		// Encode returns the abi encoding without the type label.
		Encode() []byte
	}

	// AllocationItem assigns an amount to a destination.
	AllocationItem struct {
		Destination Destination
		Amount      *big.Int
	}

	// Allocation is an ordered list of payouts. Earlier items have priority
	// when the funds do not cover all of them.
	Allocation []AllocationItem

	// Guarantee redirects the funds of a guarantor channel to the allocation
	// of the target channel, prioritizing the destinations in the given order.
	Guarantee struct {
		TargetChannelID ID
		Destinations    []Destination
	}

	// AssetOutcome is the part of an outcome that is settled by one asset
	// holder.
	AssetOutcome struct {
		AssetHolderAddress common.Address
		Item               AllocationOrGuarantee
	}

	// Outcome is the list of asset outcomes of a state.
	Outcome []AssetOutcome
)

var (
	_ AllocationOrGuarantee = Allocation{}
	_ AllocationOrGuarantee = Guarantee{}
)

// Type returns OutcomeTypeAllocation.
func (Allocation) Type() OutcomeType { return OutcomeTypeAllocation }

// Type returns OutcomeTypeGuarantee.
func (Guarantee) Type() OutcomeType { return OutcomeTypeGuarantee }

// Encode abi-encodes the allocation as tuple(bytes32,uint256)[].
func (a Allocation) Encode() []byte {
	items := make([]allocationItemABI, len(a))
	for i, it := range a {
		items[i] = allocationItemABI{Destination: it.Destination, Amount: bigOrZero(it.Amount)}
	}
	return pack([]abi.Type{abiAllocation}, items)
}

// Hash returns the hash of the labelled allocation, as stored by asset
// holders.
func (a Allocation) Hash() common.Hash {
	return HashAssetOutcome(a)
}

// Valid checks that all amounts are set and non-negative.
func (a Allocation) Valid() error {
	for i, it := range a {
		if it.Amount == nil || it.Amount.Sign() < 0 {
			return fmt.Errorf("invalid amount at index %d", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the allocation.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	c := make(Allocation, len(a))
	for i, it := range a {
		c[i] = AllocationItem{Destination: it.Destination, Amount: new(big.Int).Set(bigOrZero(it.Amount))}
	}
	return c
}

// Equal compares destinations and amounts item by item.
func (a Allocation) Equal(other Allocation) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i].Destination != other[i].Destination ||
			bigOrZero(a[i].Amount).Cmp(bigOrZero(other[i].Amount)) != 0 {
			return false
		}
	}
	return true
}

// Total sums all amounts.
func (a Allocation) Total() *big.Int {
	sum := new(big.Int)
	for _, it := range a {
		sum.Add(sum, bigOrZero(it.Amount))
	}
	return sum
}

// DecodeAllocation decodes an allocation produced by Allocation.Encode.
func DecodeAllocation(data []byte) (Allocation, error) {
	v, err := unpackSingle(abiAllocation, data)
	if err != nil {
		return nil, errors.WithMessage(err, "decoding allocation")
	}
	items := *abi.ConvertType(v, new([]allocationItemABI)).(*[]allocationItemABI)
	a := make(Allocation, len(items))
	for i, it := range items {
		a[i] = AllocationItem{Destination: it.Destination, Amount: it.Amount}
	}
	if !bytes.Equal(a.Encode(), data) {
		return nil, errors.New("non-canonical allocation encoding")
	}
	return a, nil
}

// Encode abi-encodes the guarantee as tuple(bytes32,bytes32[]).
func (g Guarantee) Encode() []byte {
	dests := make([][32]byte, len(g.Destinations))
	for i, d := range g.Destinations {
		dests[i] = d
	}
	return pack([]abi.Type{abiGuarantee}, guaranteeABI{TargetChannelID: g.TargetChannelID, Destinations: dests})
}

// Hash returns the hash of the labelled guarantee, as stored by asset
// holders.
func (g Guarantee) Hash() common.Hash {
	return HashAssetOutcome(g)
}

// DecodeGuarantee decodes a guarantee produced by Guarantee.Encode.
func DecodeGuarantee(data []byte) (Guarantee, error) {
	v, err := unpackSingle(abiGuarantee, data)
	if err != nil {
		return Guarantee{}, errors.WithMessage(err, "decoding guarantee")
	}
	raw := *abi.ConvertType(v, new(guaranteeABI)).(*guaranteeABI)
	g := Guarantee{TargetChannelID: raw.TargetChannelID, Destinations: make([]Destination, len(raw.Destinations))}
	for i, d := range raw.Destinations {
		g.Destinations[i] = d
	}
	if !bytes.Equal(g.Encode(), data) {
		return Guarantee{}, errors.New("non-canonical guarantee encoding")
	}
	return g, nil
}

// EncodeLabelled encodes the item together with its type label.
func EncodeLabelled(item AllocationOrGuarantee) []byte {
	return pack([]abi.Type{abiLabelled}, labelledABI{
		OutcomeType:           uint8(item.Type()),
		AllocationOrGuarantee: item.Encode(),
	})
}

// DecodeLabelled decodes an item produced by EncodeLabelled.
func DecodeLabelled(data []byte) (AllocationOrGuarantee, error) {
	v, err := unpackSingle(abiLabelled, data)
	if err != nil {
		return nil, errors.WithMessage(err, "decoding labelled outcome")
	}
	raw := *abi.ConvertType(v, new(labelledABI)).(*labelledABI)
	switch OutcomeType(raw.OutcomeType) {
	case OutcomeTypeAllocation:
		return DecodeAllocation(raw.AllocationOrGuarantee)
	case OutcomeTypeGuarantee:
		return DecodeGuarantee(raw.AllocationOrGuarantee)
	default:
		return nil, fmt.Errorf("unknown outcome type %d", raw.OutcomeType)
	}
}

// HashAssetOutcome hashes the labelled encoding of the item.
func HashAssetOutcome(item AllocationOrGuarantee) common.Hash {
	return Keccak256(EncodeLabelled(item))
}

// Valid checks that every asset outcome carries exactly one well-formed
// item.
func (o Outcome) Valid() error {
	for i, ao := range o {
		switch item := ao.Item.(type) {
		case Allocation:
			if err := item.Valid(); err != nil {
				return errors.WithMessagef(err, "asset outcome %d", i)
			}
		case Guarantee:
		default:
			return fmt.Errorf("asset outcome %d: missing allocation or guarantee", i)
		}
	}
	return nil
}

// Encode abi-encodes the outcome as tuple(address,bytes)[] where the bytes
// hold the labelled allocation or guarantee.
func (o Outcome) Encode() ([]byte, error) {
	if err := o.Valid(); err != nil {
		return nil, err
	}
	items := make([]assetOutcomeABI, len(o))
	for i, ao := range o {
		items[i] = assetOutcomeABI{
			AssetHolderAddress: ao.AssetHolderAddress,
			OutcomeContent:     EncodeLabelled(ao.Item),
		}
	}
	return pack([]abi.Type{abiOutcome}, items), nil
}

// Equal compares the encodings of both outcomes.
func (o Outcome) Equal(other Outcome) bool {
	a, errA := o.Encode()
	b, errB := other.Encode()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// AssetOutcome returns the asset outcome for the given asset holder.
func (o Outcome) AssetOutcome(assetHolder common.Address) (AssetOutcome, bool) {
	for _, ao := range o {
		if ao.AssetHolderAddress == assetHolder {
			return ao, true
		}
	}
	return AssetOutcome{}, false
}

// DecodeOutcome decodes an outcome produced by Outcome.Encode.
func DecodeOutcome(data []byte) (Outcome, error) {
	v, err := unpackSingle(abiOutcome, data)
	if err != nil {
		return nil, errors.WithMessage(err, "decoding outcome")
	}
	raw := *abi.ConvertType(v, new([]assetOutcomeABI)).(*[]assetOutcomeABI)
	o := make(Outcome, len(raw))
	for i, r := range raw {
		item, err := DecodeLabelled(r.OutcomeContent)
		if err != nil {
			return nil, errors.WithMessagef(err, "asset outcome %d", i)
		}
		o[i] = AssetOutcome{AssetHolderAddress: r.AssetHolderAddress, Item: item}
	}
	return o, nil
}

// HashOutcome hashes the encoded outcome.
func HashOutcome(o Outcome) (common.Hash, error) {
	enc, err := o.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return HashOutcomeBytes(enc), nil
}

// HashOutcomeBytes hashes an already encoded outcome.
func HashOutcomeBytes(encoded []byte) common.Hash {
	return Keccak256(pack([]abi.Type{abiBytes}, bytesOrEmpty(encoded)))
}
