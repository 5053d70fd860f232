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
	"errors"
	"time"
)

// Config carries the parameters a TransactionCoordinator is constructed
// with (spec section 6): mode, shard configuration path, shard count and
// closest-replica hint, plus the ambient per-RPC timeout/retry knobs.
//
// Configuration files live at <ConfigPath><i>.config for i in [0, NShards),
// and, when Mode is OCC, an additional <ConfigPath>.tss.config describing
// the timestamp-oracle replica group. Reading and parsing those files is
// the replicated transport's concern, not this core's; Config only
// records the path so a transport implementation can find them.
type Config struct {
	Mode           Mode
	ConfigPath     string
	NShards        int
	ClosestReplica int

	// GetTimeout, PutTimeout, PrepareTimeout bound a single RPC to one
	// shard. CommitRetries bounds the total number of Prepare rounds,
	// the first one included, run while shards answer RETRY/TIMEOUT
	// before the transaction is treated as failed.
	GetTimeout     time.Duration
	PutTimeout     time.Duration
	PrepareTimeout time.Duration
	CommitRetries  int

	// TrueTimeUncertainty bounds the local clock's uncertainty for
	// SPAN_* modes when no TrueTimeOracle override is supplied.
	TrueTimeUncertainty time.Duration
}

var DefaultConfig = Config{
	Mode:                OCC,
	NShards:             1,
	ClosestReplica:      0,
	GetTimeout:          500 * time.Millisecond,
	PutTimeout:          500 * time.Millisecond,
	PrepareTimeout:      1 * time.Second,
	CommitRetries:       3,
	TrueTimeUncertainty: 5 * time.Millisecond,
}

var errNShards = errors.New("tapir: NShards must be positive")

func (c *Config) validate() error {
	if c.NShards <= 0 {
		return errNShards
	}
	if c.GetTimeout <= 0 {
		c.GetTimeout = DefaultConfig.GetTimeout
	}
	if c.PutTimeout <= 0 {
		c.PutTimeout = DefaultConfig.PutTimeout
	}
	if c.PrepareTimeout <= 0 {
		c.PrepareTimeout = DefaultConfig.PrepareTimeout
	}
	if c.CommitRetries <= 0 {
		c.CommitRetries = DefaultConfig.CommitRetries
	}
	if c.TrueTimeUncertainty <= 0 {
		c.TrueTimeUncertainty = DefaultConfig.TrueTimeUncertainty
	}
	return nil
}
