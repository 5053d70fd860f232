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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B1NARY-GR0UP/tapir/pkg/promise"
	"github.com/B1NARY-GR0UP/tapir/types"
)

// scriptedShardTransport replies to successive Prepare calls with a
// scripted sequence of (status, proposed_ts) pairs, one call consumed per
// round, letting tests drive the coordinator's retry loop precisely
// (scenarios S3/S4).
type scriptedShardTransport struct {
	mu          sync.Mutex
	replies     []PrepareReply
	call        int
	aborted     int
	committed   bool
	committedTs Timestamp
}

func (s *scriptedShardTransport) Get(_ context.Context, _ uint64, _ string) *promise.Promise[GetReply] {
	p := promise.New[GetReply]()
	p.Resolve(GetReply{Status: StatusOK})
	return p
}

func (s *scriptedShardTransport) Prepare(_ context.Context, _ uint64, _ Timestamp, _ []types.Entry) *promise.Promise[PrepareReply] {
	p := promise.New[PrepareReply]()
	s.mu.Lock()
	reply := s.replies[s.call]
	if s.call < len(s.replies)-1 {
		s.call++
	}
	s.mu.Unlock()
	p.Resolve(reply)
	return p
}

func (s *scriptedShardTransport) Commit(_ context.Context, _ uint64, ts Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = true
	s.committedTs = ts
}

func (s *scriptedShardTransport) Abort(_ context.Context, _ uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted++
}

func newTestCoordinator(t *testing.T, mode Mode, transports []ShardTransport, tso TimestampOracle, tt TrueTimeOracle) *TransactionCoordinator {
	t.Helper()
	buffers := make([]*BufferClient, len(transports))
	for i, tr := range transports {
		buffers[i] = NewBufferClient(i, tr)
	}
	cfg := DefaultConfig
	cfg.Mode = mode
	cfg.NShards = len(transports)
	cfg.CommitRetries = 5
	coord, err := NewTransactionCoordinator(cfg, buffers, tt, tso)
	require.NoError(t, err)
	return coord
}

// S3: mode OCC; one shard proposes ts=100, another ts=120, oracle
// returns 110. Final ts=120, status OK.
func TestScenarioS3OCCTimestamp(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK, ProposedTs: 100}}}
	shard1 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK, ProposedTs: 120}}}
	tso := &fixedOracle{ts: 110}

	coord := newTestCoordinator(t, OCC, []ShardTransport{shard0, shard1}, tso, &fixedTrueTime{})
	coord.Begin()
	coord.Get(context.Background(), "a") // routes to some shard, establishes participants
	coord.participants[0] = struct{}{}
	coord.participants[1] = struct{}{}

	ok, ts, err := coord.Commit(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Timestamp(120), ts)
}

// S4: two participants; round 1: (RETRY,50),(OK,60); round 2: (FAIL,70),
// (OK,60). Final status FAIL; Abort broadcast to both.
func TestScenarioS4RetryThenAbort(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{
		{Status: StatusRetry, ProposedTs: 50},
		{Status: StatusFail, ProposedTs: 70},
	}}
	shard1 := &scriptedShardTransport{replies: []PrepareReply{
		{Status: StatusOK, ProposedTs: 60},
		{Status: StatusOK, ProposedTs: 60},
	}}

	coord := newTestCoordinator(t, LOCK, []ShardTransport{shard0, shard1}, nil, &fixedTrueTime{})
	coord.Begin()
	coord.participants[0] = struct{}{}
	coord.participants[1] = struct{}{}

	ok, _, err := coord.Commit(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCommitFailed)

	time.Sleep(10 * time.Millisecond) // let fire-and-forget Abort goroutines land
	shard0.mu.Lock()
	shard1.mu.Lock()
	defer shard0.mu.Unlock()
	defer shard1.mu.Unlock()
	assert.Equal(t, 1, shard0.aborted)
	assert.Equal(t, 1, shard1.aborted)
}

// S5: mode SPAN_OCC; reduced ts = now+500us, oracle err=200us. Coordinator
// sleeps then busy-waits; total delay before Commit broadcasts >= 500us
// from the moment ts was computed.
func TestScenarioS5CommitWait(t *testing.T) {
	now := NewTimestamp(100, 0)
	ts := now.AddMicros(500)

	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK, ProposedTs: ts}}}
	tt := &fixedTrueTime{now: now, err: 200}

	coord := newTestCoordinator(t, SpanOCC, []ShardTransport{shard0}, &fixedOracle{ts: 0}, tt)
	coord.Begin()
	coord.participants[0] = struct{}{}

	start := time.Now()
	ok, gotTs, err := coord.Commit(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ts, gotTs)
	assert.GreaterOrEqual(t, elapsed, 500*time.Microsecond)
}

func TestBeginBumpsTIDAndClearsParticipants(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK}}}
	coord := newTestCoordinator(t, OCC, []ShardTransport{shard0}, &fixedOracle{}, &fixedTrueTime{})

	coord.Begin()
	coord.participants[0] = struct{}{}
	firstTID := coord.tID

	coord.Begin()
	assert.NotEqual(t, firstTID, coord.tID)
	assert.Empty(t, coord.participants)
}

func TestAbortIsIdempotent(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK}}}
	coord := newTestCoordinator(t, OCC, []ShardTransport{shard0}, &fixedOracle{}, &fixedTrueTime{})
	coord.Begin()
	coord.participants[0] = struct{}{}

	coord.Abort(context.Background())
	coord.Abort(context.Background())

	time.Sleep(10 * time.Millisecond)
	shard0.mu.Lock()
	defer shard0.mu.Unlock()
	assert.Equal(t, 1, shard0.aborted)
}

func TestCommitFailsAfterExhaustingRetries(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{
		{Status: StatusRetry}, {Status: StatusRetry}, {Status: StatusRetry},
		{Status: StatusRetry}, {Status: StatusRetry},
	}}
	coord := newTestCoordinator(t, LOCK, []ShardTransport{shard0}, nil, &fixedTrueTime{})
	coord.Begin()
	coord.participants[0] = struct{}{}

	ok, _, err := coord.Commit(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCommitFailed)
}

func TestCommitReturnsErrNoParticipantsWhenNoneEstablished(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK}}}
	coord := newTestCoordinator(t, OCC, []ShardTransport{shard0}, &fixedOracle{}, &fixedTrueTime{})
	coord.Begin()

	ok, _, err := coord.Commit(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestCommitReturnsErrAbortedWhenNotActive(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK}}}
	coord := newTestCoordinator(t, OCC, []ShardTransport{shard0}, &fixedOracle{}, &fixedTrueTime{})

	ok, _, err := coord.Commit(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAborted)
}

func TestGetReturnsErrAbortedWhenNotActive(t *testing.T) {
	shard0 := &scriptedShardTransport{replies: []PrepareReply{{Status: StatusOK}}}
	coord := newTestCoordinator(t, OCC, []ShardTransport{shard0}, &fixedOracle{}, &fixedTrueTime{})

	_, _, err := coord.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrAborted)
}

// fixedOracle is a deterministic TimestampOracle.
type fixedOracle struct {
	ts Timestamp
}

func (f *fixedOracle) Allocate(ctx context.Context) (Timestamp, error) {
	return f.ts, nil
}
