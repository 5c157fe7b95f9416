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

package wire

import (
	"bytes"
	"sort"
	"strings"

	"github.com/pkg/errors"
	xdr3 "github.com/stellar/go-xdr/xdr3"
	"github.com/stellar/go/xdr"

	"github.com/statechannels/nitro-protocol/wire/scval"
)

// MakeSymbolScMap creates a xdr.ScMap from a slice of symbols and a slice of values.
// The entries are sorted lexicographically by symbol. We expect that keys does not contain duplicates.
func MakeSymbolScMap(keys []xdr.ScSymbol, values []xdr.ScVal) (xdr.ScMap, error) {
	if len(keys) != len(values) {
		return xdr.ScMap{}, errors.New("keys and values must have the same length")
	}
	m := make(xdr.ScMap, len(keys))
	for i, k := range keys {
		m[i] = xdr.ScMapEntry{
			Key: scval.MustWrapScSymbol(k),
			Val: values[i],
		}
	}
	sort.Slice(m, func(i, j int) bool {
		return strings.Compare(string(m[i].Key.MustSym()), string(m[j].Key.MustSym())) < 0
	})
	return m, nil
}

// GetMapValue returns the value stored under the symbol key.
func GetMapValue(key xdr.ScSymbol, m xdr.ScMap) (xdr.ScVal, error) {
	k := scval.MustWrapScSymbol(key)
	for _, e := range m {
		if e.Key.Equals(k) {
			return e.Val, nil
		}
	}
	return xdr.ScVal{}, errors.Errorf("key %q not found", key)
}

// ExpectMap unwraps a map of exactly n entries.
func ExpectMap(v xdr.ScVal, n int) (xdr.ScMap, error) {
	m, ok := v.GetMap()
	if !ok || m == nil {
		return nil, errors.New("expected map")
	}
	if len(*m) != n {
		return nil, errors.Errorf("expected map of length %d", n)
	}
	return *m, nil
}

// GetBytes returns the bytes stored under key, requiring length n if n > 0.
func GetBytes(key xdr.ScSymbol, m xdr.ScMap, n int) ([]byte, error) {
	v, err := GetMapValue(key, m)
	if err != nil {
		return nil, err
	}
	b, ok := v.GetBytes()
	if !ok {
		return nil, errors.Errorf("%s: expected bytes", key)
	}
	if n > 0 && len(b) != n {
		return nil, errors.Errorf("%s: expected length of %d bytes, got %d", key, n, len(b))
	}
	return b, nil
}

// GetUint64 returns the uint64 stored under key.
func GetUint64(key xdr.ScSymbol, m xdr.ScMap) (uint64, error) {
	v, err := GetMapValue(key, m)
	if err != nil {
		return 0, err
	}
	u, ok := v.GetU64()
	if !ok {
		return 0, errors.Errorf("%s: expected uint64", key)
	}
	return uint64(u), nil
}

// GetBool returns the bool stored under key.
func GetBool(key xdr.ScSymbol, m xdr.ScMap) (bool, error) {
	v, err := GetMapValue(key, m)
	if err != nil {
		return false, err
	}
	b, ok := v.GetB()
	if !ok {
		return false, errors.Errorf("%s: expected bool", key)
	}
	return b, nil
}

// GetVec returns the vector stored under key.
func GetVec(key xdr.ScSymbol, m xdr.ScMap) (xdr.ScVec, error) {
	v, err := GetMapValue(key, m)
	if err != nil {
		return nil, err
	}
	vec, ok := v.GetVec()
	if !ok || vec == nil {
		return nil, errors.Errorf("%s: expected vec", key)
	}
	return *vec, nil
}

// MarshalScVal encodes v as XDR.
func MarshalScVal(v xdr.ScVal) ([]byte, error) {
	buf := bytes.Buffer{}
	e := xdr3.NewEncoder(&buf)
	err := v.EncodeTo(e)
	return buf.Bytes(), err
}

// UnmarshalScVal decodes XDR produced by MarshalScVal.
func UnmarshalScVal(data []byte) (xdr.ScVal, error) {
	var v xdr.ScVal
	d := xdr3.NewDecoder(bytes.NewReader(data))
	_, err := d.Decode(&v)
	return v, err
}
