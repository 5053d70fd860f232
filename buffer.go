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

	"github.com/B1NARY-GR0UP/tapir/pkg/logger"
	"github.com/B1NARY-GR0UP/tapir/pkg/promise"
	"github.com/B1NARY-GR0UP/tapir/pkg/skiplist"
	"github.com/B1NARY-GR0UP/tapir/types"
)

const (
	_bufferMaxLevel = 16
	_bufferP        = 0.5
)

// GetReply is what a shard (or the local buffer) answers a Get with.
type GetReply struct {
	Status Status
	Value  []byte
	Found  bool
}

// PrepareReply is a shard's answer to Prepare: its vote and the earliest
// timestamp at which it could safely commit this transaction.
type PrepareReply struct {
	Status     Status
	ProposedTs Timestamp
}

// ShardTransport is the external collaborator a BufferClient forwards a
// transaction's unbuffered traffic to — the "network transport plumbing,
// per-shard RPC stubs" spec section 1 scopes out of this core. Nothing in
// this module puts it on an actual socket; wireShardTransport
// (wire_transport.go) frames every call through pkg/wire's Envelope codec
// over localShardTransport (local_transport.go), the in-process engine
// both it and the lower-level tests exercise directly.
type ShardTransport interface {
	Get(ctx context.Context, tID uint64, key string) *promise.Promise[GetReply]
	Prepare(ctx context.Context, tID uint64, proposedTs Timestamp, writes []types.Entry) *promise.Promise[PrepareReply]
	Commit(ctx context.Context, tID uint64, ts Timestamp)
	Abort(ctx context.Context, tID uint64)
}

// BufferClient is the per-shard, per-transaction buffer: it batches the
// reads and writes of an in-progress transaction and is the sole conduit
// for that transaction's traffic to one shard. Reads for keys already
// written in the same transaction are served from the local buffer;
// everything else is forwarded to the shard through ShardTransport.
type BufferClient struct {
	shard     int
	transport ShardTransport
	tID       uint64
	buffer    *skiplist.SkipList
}

// NewBufferClient builds a BufferClient bound to one shard index and its
// transport. Begin must be called before Get/Put/Prepare are meaningful.
func NewBufferClient(shard int, transport ShardTransport) *BufferClient {
	return &BufferClient{shard: shard, transport: transport}
}

// Begin resets the buffer for a new transaction. A coordinator must call
// this on every participating shard's BufferClient before issuing any
// Get/Put under the new tID, mirroring TransactionCoordinator.Begin's own
// "never reuse a participant set" invariant at the per-shard level.
func (b *BufferClient) Begin(tID uint64) {
	b.tID = tID
	b.buffer = skiplist.New(_bufferMaxLevel, _bufferP)
}

// Get returns the value for key, served from the local write buffer if
// this transaction has already written it, otherwise forwarded to the
// shard.
func (b *BufferClient) Get(ctx context.Context, key string) *promise.Promise[GetReply] {
	if e, ok := b.buffer.Get(key); ok {
		p := promise.New[GetReply]()
		if e.Tombstone {
			p.Resolve(GetReply{Status: StatusOK})
		} else {
			p.Resolve(GetReply{Status: StatusOK, Value: e.Value, Found: true})
		}
		return p
	}
	logger.GetLogger().Debugf("buffer miss for shard %d key %q, forwarding", b.shard, key)
	return b.transport.Get(ctx, b.tID, key)
}

// Put buffers a write; it is deferred to Prepare and never sent eagerly.
func (b *BufferClient) Put(_ context.Context, key string, value []byte) *promise.Promise[Status] {
	b.buffer.Set(types.Entry{Key: key, Value: value})
	p := promise.New[Status]()
	p.Resolve(StatusOK)
	return p
}

// Prepare hands the buffered writes to the shard and asks it to vote.
// Iteration order over the buffer is ascending key, giving a real replica
// a consistent lock-acquisition order across the writes of one prepare.
func (b *BufferClient) Prepare(ctx context.Context, proposedTs Timestamp) *promise.Promise[PrepareReply] {
	return b.transport.Prepare(ctx, b.tID, proposedTs, b.buffer.All())
}

// Commit tells the shard to make ts durable. Fire-and-forget: the
// coordinator does not wait on a reply.
func (b *BufferClient) Commit(ctx context.Context, ts Timestamp) {
	b.transport.Commit(ctx, b.tID, ts)
}

// Abort tells the shard to discard this transaction's prepared state, if
// any. Fire-and-forget, and idempotent from the shard's perspective.
func (b *BufferClient) Abort(ctx context.Context) {
	b.transport.Abort(ctx, b.tID)
}
