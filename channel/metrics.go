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

package channel

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/statechannels/nitro-protocol/store"
)

// Operation results as reported in the result label.
const (
	ResultOK       = "ok"
	ResultRevert   = "revert"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics counts operations by name and result. A nil *Metrics counts
// nothing.
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics creates the operation counter and registers it on reg if reg
// is not nil.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) (*Metrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "operations_total",
		Help:      "Number of operations by name and result.",
	}, []string{"op", "result"})
	if reg != nil {
		if err := reg.Register(ops); err != nil {
			return nil, errors.WithMessage(err, "registering operation counter")
		}
	}
	return &Metrics{ops: ops}, nil
}

// Observe counts one execution of op that returned err.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, Result(err)).Inc()
}

// Collector returns the underlying counter vector.
func (m *Metrics) Collector() *prometheus.CounterVec {
	return m.ops
}

// Result classifies the error returned by an operation.
func Result(err error) string {
	var revert *RevertError
	switch {
	case err == nil:
		return ResultOK
	case errors.As(err, &revert):
		return ResultRevert
	case errors.Is(err, store.ErrConflict):
		return ResultConflict
	default:
		return ResultError
	}
}
