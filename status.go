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

// Status is the outcome of a single shard RPC or the reduction across a
// whole Prepare fan-out.
type Status int

const (
	// StatusOK: the shard (or, after reduction, every participant) is
	// prepared to commit.
	StatusOK Status = iota
	// StatusFail: a shard has permanently refused the transaction.
	// Never retried.
	StatusFail
	// StatusRetry: a shard could not decide yet; the coordinator may
	// retry the whole Prepare phase.
	StatusRetry
	// StatusTimeout: no reply arrived before the RPC's own deadline.
	// Folded into the same retry path as StatusRetry (spec section 9,
	// "retry classification").
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusRetry:
		return "RETRY"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Mode selects the concurrency-control strategy a TransactionCoordinator
// runs under.
type Mode int

const (
	// OCC validates against an external TimestampOracle.
	OCC Mode = iota
	// LOCK uses strict two-phase locking at the shard; the commit
	// timestamp is the max of the shards' proposed timestamps.
	LOCK
	// SpanOCC is OCC plus TrueTime commit-wait.
	SpanOCC
	// SpanLOCK is LOCK plus TrueTime commit-wait.
	SpanLOCK
)

func (m Mode) String() string {
	switch m {
	case OCC:
		return "OCC"
	case LOCK:
		return "LOCK"
	case SpanOCC:
		return "SPAN_OCC"
	case SpanLOCK:
		return "SPAN_LOCK"
	default:
		return "UNKNOWN"
	}
}

// usesTrueTime reports whether m requires a TrueTime commit-wait after
// the Prepare/reduce phase.
func (m Mode) usesTrueTime() bool {
	return m == SpanOCC || m == SpanLOCK
}

// usesTimestampOracle reports whether m fetches a timestamp from the
// external TimestampOracle in parallel with Prepare.
func (m Mode) usesTimestampOracle() bool {
	return m == OCC || m == SpanOCC
}
