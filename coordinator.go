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
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/B1NARY-GR0UP/tapir/pkg/logger"
)

// txnState is the coordinator's per-transaction state machine: IDLE ->
// ACTIVE (Begin) -> PREPARING (Commit entered) -> COMMITTED | ABORTED.
type txnState int

const (
	txnIdle txnState = iota
	txnActive
	txnPreparing
	txnCommitted
	txnAborted
)

// TransactionCoordinator is the client-facing API: Begin/Get/Put/Commit/
// Abort, tracking participating shards, running two-phase commit,
// computing the commit timestamp, and enforcing commit-wait when the
// mode requires it.
type TransactionCoordinator struct {
	config   Config
	mode     Mode
	buffers  []*BufferClient
	trueTime TrueTimeOracle
	tsOracle TimestampOracle

	clientID uint64
	nextTID  uint64
	tID      uint64

	participants map[int]struct{}
	state        txnState
	commitSleep  time.Duration
}

// NewTransactionCoordinator builds a coordinator over one BufferClient
// per shard (len(buffers) must equal cfg.NShards). client_id is drawn
// once, as a uniformly random non-zero 64-bit value (spec section 6);
// t_id starts at floor(client_id/10000)*10000 and increments by one on
// every Begin, giving transaction ids that are collision-free across
// coordinators with high probability.
func NewTransactionCoordinator(cfg Config, buffers []*BufferClient, trueTime TrueTimeOracle, tsOracle TimestampOracle) (*TransactionCoordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if trueTime == nil {
		trueTime = NewSystemTrueTime(cfg.TrueTimeUncertainty)
	}

	return &TransactionCoordinator{
		config:       cfg,
		mode:         cfg.Mode,
		buffers:      buffers,
		trueTime:     trueTime,
		tsOracle:     tsOracle,
		clientID:     newClientID(),
		nextTID:      0,
		participants: make(map[int]struct{}),
		state:        txnIdle,
	}, nil
}

// newClientID draws a uniformly random non-zero 64-bit value, looping on
// the zero case exactly as the TAPIR client's mt19937_64-seeded
// constructor does.
func newClientID() uint64 {
	for {
		id := binary.BigEndian.Uint64(uuid.New()[:8])
		if id != 0 {
			return id
		}
	}
}

// Begin transitions IDLE->ACTIVE: it bumps t_id, clears the participant
// set, and notifies every shard's BufferClient of the new t_id. A fresh
// participant set on every Begin is a hard invariant — a coordinator must
// never reuse one across transactions.
func (c *TransactionCoordinator) Begin() {
	if c.nextTID == 0 {
		c.nextTID = (c.clientID / 10000) * 10000
	}
	c.tID = c.nextTID
	c.nextTID++

	c.participants = make(map[int]struct{})
	c.state = txnActive
	c.commitSleep = 0

	for _, b := range c.buffers {
		b.Begin(c.tID)
	}
}

// Get computes shard = hash(k) mod N, adds it to the participant set if
// absent, and issues a read through that shard's BufferClient with a
// bounded timeout. It blocks the caller until the reply or timeout. It
// returns ErrAborted if the transaction is not currently active (Begin
// was never called, or Commit/Abort already finished it).
func (c *TransactionCoordinator) Get(ctx context.Context, key string) (Status, []byte, error) {
	if c.state != txnActive {
		return StatusFail, nil, ErrAborted
	}

	shard := shardFor(key, c.config.NShards)
	c.participants[shard] = struct{}{}

	getCtx, cancel := context.WithTimeout(ctx, c.config.GetTimeout)
	defer cancel()

	reply, err := c.buffers[shard].Get(getCtx, key).Wait(getCtx)
	if err != nil {
		return StatusTimeout, nil, nil
	}
	return reply.Status, reply.Value, nil
}

// Put applies the same participant-tracking rule as Get. It may return
// before the shard acknowledges the write (the BufferClient buffers it
// locally) but always produces a completion status so the caller
// observes transport-level failures. It returns ErrAborted under the
// same condition as Get.
func (c *TransactionCoordinator) Put(ctx context.Context, key string, value []byte) (Status, error) {
	if c.state != txnActive {
		return StatusFail, ErrAborted
	}

	shard := shardFor(key, c.config.NShards)
	c.participants[shard] = struct{}{}

	putCtx, cancel := context.WithTimeout(ctx, c.config.PutTimeout)
	defer cancel()

	status, err := c.buffers[shard].Put(putCtx, key, value).Wait(putCtx)
	if err != nil {
		return StatusTimeout, nil
	}
	return status, nil
}

// Commit runs two-phase commit across the transaction's participants and
// reports whether it landed as COMMITTED, along with the commit
// timestamp actually used. It returns ErrAborted if the transaction is
// not active, ErrNoParticipants if Commit is called before any Get/Put
// established a participant, and ErrCommitFailed if every retry was
// exhausted, or a participant voted FAIL, without reaching COMMITTED.
func (c *TransactionCoordinator) Commit(ctx context.Context) (bool, Timestamp, error) {
	if c.state != txnActive {
		return false, 0, ErrAborted
	}

	participants := c.participantShards()
	if len(participants) == 0 {
		c.state = txnAborted
		return false, 0, ErrNoParticipants
	}
	c.state = txnPreparing

	for attempt := 0; attempt < c.config.CommitRetries; attempt++ {
		status, ts := c.prepareRound(ctx, participants)

		switch status {
		case StatusFail:
			c.abortParticipants(ctx, participants)
			c.state = txnAborted
			return false, ts, ErrCommitFailed
		case StatusOK:
			if c.mode.usesTrueTime() {
				c.commitWait(ts)
			}
			c.commitParticipants(ctx, participants, ts)
			c.state = txnCommitted
			return true, ts, nil
		default: // StatusRetry, StatusTimeout
			logger.GetLogger().Warnf("tapir: txn %d prepare round %d returned %s, retrying", c.tID, attempt, status)
		}
	}

	c.abortParticipants(ctx, participants)
	c.state = txnAborted
	return false, 0, ErrCommitFailed
}

// Abort broadcasts Abort to every participant. It always succeeds from
// the coordinator's perspective, and is idempotent: calling it twice, or
// after a failed Commit, is observationally equivalent to calling it
// once.
func (c *TransactionCoordinator) Abort(ctx context.Context) {
	if c.state == txnAborted || c.state == txnCommitted {
		return
	}
	c.abortParticipants(ctx, c.participantShards())
	c.state = txnAborted
}

func (c *TransactionCoordinator) participantShards() []int {
	shards := make([]int, 0, len(c.participants))
	for s := range c.participants {
		shards = append(shards, s)
	}
	return shards
}

// prepareRoundResult is one shard's prepare vote.
type prepareRoundResult struct {
	status Status
	ts     Timestamp
}

// prepareRound dispatches Prepare to every participant in parallel,
// fetches a timestamp from the TimestampOracle concurrently when the
// mode requires it, and reduces the responses to a single status and
// timestamp (spec section 4.5, step 3): FAIL beats RETRY beats OK, and
// the timestamp is the max of every proposed_ts and the oracle timestamp.
func (c *TransactionCoordinator) prepareRound(ctx context.Context, participants []int) (Status, Timestamp) {
	prepareCtx, cancel := context.WithTimeout(ctx, c.config.PrepareTimeout)
	defer cancel()

	results := make(chan prepareRoundResult, len(participants))
	for _, shard := range participants {
		shard := shard
		go func() {
			reply, err := c.buffers[shard].Prepare(prepareCtx, 0).Wait(prepareCtx)
			if err != nil {
				results <- prepareRoundResult{status: StatusTimeout}
				return
			}
			results <- prepareRoundResult{status: reply.Status, ts: reply.ProposedTs}
		}()
	}

	var oracleTs Timestamp
	var oracleErr error
	oracleDone := make(chan struct{})
	if c.mode.usesTimestampOracle() {
		go func() {
			oracleTs, oracleErr = c.tsOracle.Allocate(prepareCtx)
			close(oracleDone)
		}()
	} else {
		close(oracleDone)
	}

	var finalTs Timestamp
	sawFail, sawRetry := false, false
	for range participants {
		r := <-results
		finalTs = maxTimestamp(finalTs, r.ts)
		switch r.status {
		case StatusFail:
			sawFail = true
		case StatusRetry, StatusTimeout:
			sawRetry = true
		}
	}

	<-oracleDone
	if c.mode.usesTimestampOracle() {
		if oracleErr != nil {
			sawRetry = true
		} else {
			finalTs = maxTimestamp(finalTs, oracleTs)
		}
	}

	switch {
	case sawFail:
		return StatusFail, finalTs
	case sawRetry:
		return StatusRetry, finalTs
	default:
		return StatusOK, finalTs
	}
}

// commitWait implements spec section 4.5 step 5: sample (now, err);
// if now is already past ts, no wait is needed; otherwise extend err by
// ts-now, coarse-sleep for err-150us, then busy-wait until the elapsed
// time since the start of the wait exceeds err. This guarantees ts is
// strictly in the past of real time at every correctly-clocked replica
// by the time the Commit broadcast goes out.
func (c *TransactionCoordinator) commitWait(ts Timestamp) {
	start := time.Now()
	now, errUs := c.trueTime.Now()

	if now > ts {
		c.commitSleep = 0
		return
	}

	delta := uint64(ts.SubMicros(now))
	totalErr := time.Duration(errUs+delta) * time.Microsecond
	c.commitSleep = totalErr

	if sleepFor := totalErr - 150*time.Microsecond; sleepFor > 0 {
		time.Sleep(sleepFor)
	}
	for time.Since(start) < totalErr {
	}
}

func (c *TransactionCoordinator) commitParticipants(ctx context.Context, participants []int, ts Timestamp) {
	for _, shard := range participants {
		go c.buffers[shard].Commit(ctx, ts)
	}
}

func (c *TransactionCoordinator) abortParticipants(ctx context.Context, participants []int) {
	for _, shard := range participants {
		go c.buffers[shard].Abort(ctx)
	}
}
