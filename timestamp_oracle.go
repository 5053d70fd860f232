// Copyright 2025 BINARY Members
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

package tapir

import (
	"context"
	"sync"
)

// TimestampOracle allocates strictly monotonic timestamps across all
// callers. It is reached through the replicated transport and consulted
// only when the coordinator runs in an OCC mode.
type TimestampOracle interface {
	Allocate(ctx context.Context) (Timestamp, error)
}

// TSOTransport is the external collaborator a TimestampOracle
// implementation forwards allocation requests through; this core ships
// no concrete network transport for it (spec section 1 scopes "network
// transport plumbing" out). wireTSOTransport (wire_transport.go) frames
// each Allocate call through pkg/wire's Envelope codec over
// localTimestampOracle below; oracleClient adapts a TSOTransport back
// into the TimestampOracle a TransactionCoordinator actually holds.
type TSOTransport interface {
	Allocate(ctx context.Context) (Timestamp, error)
}

// localTimestampOracle is a single-process reference TimestampOracle: a
// monotonic counter behind a mutex, the same idiom the teacher's
// oracle.go uses for its own timestamp generator (nextTs), generalized
// here to serve as the coordinator-external oracle spec section 4.4
// describes rather than a single embedded engine's internal clock.
type localTimestampOracle struct {
	mu   sync.Mutex
	next uint64
}

// newLocalTimestampOracle creates an oracle whose first Allocate call
// returns start, or 1 when start is 0.
func newLocalTimestampOracle(start uint64) *localTimestampOracle {
	if start == 0 {
		start = 1
	}
	return &localTimestampOracle{next: start}
}

func (o *localTimestampOracle) Allocate(ctx context.Context) (Timestamp, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	ts := o.next
	o.next++
	return Timestamp(ts), nil
}
