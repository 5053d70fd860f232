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

	"github.com/B1NARY-GR0UP/tapir/pkg/promise"
	"github.com/B1NARY-GR0UP/tapir/types"
)

// localShardTransport is an in-process reference ShardTransport backed
// directly by a *VersionedStore. It plays the role of "the replica side"
// for tests and underneath wireShardTransport; it is not a consensus
// protocol and makes no attempt at replication or durability (spec
// section 1's non-goals).
//
// proposed_ts rule (spec section 9's first open question, resolved here
// and only here — the coordinator's reduction makes no assumption beyond
// "a shard returns some timestamp"): the proposed timestamp for a prepare
// is one greater than the highest of (a) any last-read watermark on a key
// in the write set, and (b) any existing version's write_ts for a key in
// the write set, further bumped above a per-shard monotonic counter so
// that concurrent prepares on this shard never collide.
type localShardTransport struct {
	mu            sync.Mutex
	store         *VersionedStore
	mode          Mode
	counter       uint64
	locks         map[string]uint64
	pendingWrites map[uint64][]types.Entry
	pendingReads  map[uint64]map[string]Timestamp
}

// newLocalShardTransport builds a reference transport over store, voting
// according to mode's concurrency-control rule (LOCK/SPAN_LOCK take
// advisory per-key locks; OCC/SPAN_OCC do not).
func newLocalShardTransport(store *VersionedStore, mode Mode) *localShardTransport {
	return &localShardTransport{
		store:         store,
		mode:          mode,
		locks:         make(map[string]uint64),
		pendingWrites: make(map[uint64][]types.Entry),
		pendingReads:  make(map[uint64]map[string]Timestamp),
	}
}

func (t *localShardTransport) Get(_ context.Context, tID uint64, key string) *promise.Promise[GetReply] {
	p := promise.New[GetReply]()
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, v, ok := t.store.Get(key)
	if !ok {
		p.Resolve(GetReply{Status: StatusOK})
		return p
	}

	reads, ok := t.pendingReads[tID]
	if !ok {
		reads = make(map[string]Timestamp)
		t.pendingReads[tID] = reads
	}
	reads[key] = ts

	p.Resolve(GetReply{Status: StatusOK, Value: v, Found: true})
	return p
}

func (t *localShardTransport) Prepare(ctx context.Context, tID uint64, _ Timestamp, writes []types.Entry) *promise.Promise[PrepareReply] {
	p := promise.New[PrepareReply]()
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Err() != nil {
		p.Resolve(PrepareReply{Status: StatusTimeout})
		return p
	}

	if t.mode == LOCK || t.mode == SpanLOCK {
		for _, w := range writes {
			if holder, locked := t.locks[w.Key]; locked && holder != tID {
				p.Resolve(PrepareReply{Status: StatusRetry})
				return p
			}
		}
		for _, w := range writes {
			t.locks[w.Key] = tID
		}
	}

	var floor uint64
	for _, w := range writes {
		if lr, ok := t.store.GetLastRead(w.Key); ok && uint64(lr) > floor {
			floor = uint64(lr)
		}
		if ts, _, ok := t.store.Get(w.Key); ok && uint64(ts) > floor {
			floor = uint64(ts)
		}
	}

	candidate := floor + 1
	if t.counter >= candidate {
		candidate = t.counter + 1
	}
	t.counter = candidate

	t.pendingWrites[tID] = writes
	p.Resolve(PrepareReply{Status: StatusOK, ProposedTs: Timestamp(candidate)})
	return p
}

func (t *localShardTransport) Commit(_ context.Context, tID uint64, ts Timestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, w := range t.pendingWrites[tID] {
		t.store.Put(w.Key, w.Value, ts)
	}
	for key, readTs := range t.pendingReads[tID] {
		t.store.CommitGet(key, readTs, ts)
	}
	t.releaseLocked(tID)
}

func (t *localShardTransport) Abort(_ context.Context, tID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked(tID)
}

// releaseLocked drops tID's buffered prepare state and any locks it
// holds. Caller must hold t.mu.
func (t *localShardTransport) releaseLocked(tID uint64) {
	delete(t.pendingWrites, tID)
	delete(t.pendingReads, tID)
	for key, holder := range t.locks {
		if holder == tID {
			delete(t.locks, key)
		}
	}
}
