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

	"github.com/B1NARY-GR0UP/tapir/pkg/promise"
	"github.com/B1NARY-GR0UP/tapir/pkg/wire"
	"github.com/B1NARY-GR0UP/tapir/types"
)

// wireShardTransport is a ShardTransport that frames every request and
// reply as a pkg/wire Envelope before handing it to a localShardTransport,
// the same marshal/compress/unmarshal/decompress chain a socket-backed
// transport would run, minus the socket. It exercises thrift/frugal and
// klauspost/compress on every call instead of leaving them declared but
// unreached.
type wireShardTransport struct {
	inner *localShardTransport
}

// newWireShardTransport builds a wire-framed transport over store, voting
// according to mode exactly as localShardTransport does.
func newWireShardTransport(store *VersionedStore, mode Mode) *wireShardTransport {
	return &wireShardTransport{inner: newLocalShardTransport(store, mode)}
}

func (t *wireShardTransport) Get(ctx context.Context, tID uint64, key string) *promise.Promise[GetReply] {
	p := promise.New[GetReply]()

	req, err := roundTrip(&wire.Envelope{TID: tID, Kind: int8(wire.KindGet), Key: key})
	if err != nil {
		p.Resolve(GetReply{Status: StatusFail})
		return p
	}

	reply, err := t.inner.Get(ctx, req.TID, req.Key).Wait(ctx)
	if err != nil {
		p.Resolve(GetReply{Status: StatusTimeout})
		return p
	}

	resp, err := roundTrip(&wire.Envelope{Kind: int8(wire.KindGet), Status: int8(reply.Status), Value: reply.Value, Found: reply.Found})
	if err != nil {
		p.Resolve(GetReply{Status: StatusFail})
		return p
	}
	p.Resolve(GetReply{Status: Status(resp.Status), Value: resp.Value, Found: resp.Found})
	return p
}

func (t *wireShardTransport) Prepare(ctx context.Context, tID uint64, proposedTs Timestamp, writes []types.Entry) *promise.Promise[PrepareReply] {
	p := promise.New[PrepareReply]()

	keys := make([]string, len(writes))
	values := make([][]byte, len(writes))
	tombstones := make([]bool, len(writes))
	for i, w := range writes {
		keys[i] = w.Key
		values[i] = w.Value
		tombstones[i] = w.Tombstone
	}

	req, err := roundTrip(&wire.Envelope{
		TID:             tID,
		Kind:            int8(wire.KindPrepare),
		ProposedTs:      uint64(proposedTs),
		WriteKeys:       keys,
		WriteValues:     values,
		WriteTombstones: tombstones,
	})
	if err != nil {
		p.Resolve(PrepareReply{Status: StatusFail})
		return p
	}

	decodedWrites := make([]types.Entry, len(req.WriteKeys))
	for i, k := range req.WriteKeys {
		decodedWrites[i] = types.Entry{Key: k, Value: req.WriteValues[i], Tombstone: req.WriteTombstones[i]}
	}

	reply, err := t.inner.Prepare(ctx, req.TID, Timestamp(req.ProposedTs), decodedWrites).Wait(ctx)
	if err != nil {
		p.Resolve(PrepareReply{Status: StatusTimeout})
		return p
	}

	resp, err := roundTrip(&wire.Envelope{Kind: int8(wire.KindPrepare), Status: int8(reply.Status), ProposedTs: uint64(reply.ProposedTs)})
	if err != nil {
		p.Resolve(PrepareReply{Status: StatusFail})
		return p
	}
	p.Resolve(PrepareReply{Status: Status(resp.Status), ProposedTs: Timestamp(resp.ProposedTs)})
	return p
}

func (t *wireShardTransport) Commit(ctx context.Context, tID uint64, ts Timestamp) {
	req, err := roundTrip(&wire.Envelope{TID: tID, Kind: int8(wire.KindCommit), CommitTs: uint64(ts)})
	if err != nil {
		return
	}
	t.inner.Commit(ctx, req.TID, Timestamp(req.CommitTs))
}

func (t *wireShardTransport) Abort(ctx context.Context, tID uint64) {
	req, err := roundTrip(&wire.Envelope{TID: tID, Kind: int8(wire.KindAbort)})
	if err != nil {
		return
	}
	t.inner.Abort(ctx, req.TID)
}

// wireTSOTransport frames every Allocate request/reply as a pkg/wire
// Envelope before forwarding to a localTimestampOracle, the TSOTransport
// counterpart of wireShardTransport.
type wireTSOTransport struct {
	oracle *localTimestampOracle
}

func newWireTSOTransport(start uint64) *wireTSOTransport {
	return &wireTSOTransport{oracle: newLocalTimestampOracle(start)}
}

func (t *wireTSOTransport) Allocate(ctx context.Context) (Timestamp, error) {
	if _, err := roundTrip(&wire.Envelope{Kind: int8(wire.KindAllocate)}); err != nil {
		return 0, err
	}

	ts, err := t.oracle.Allocate(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := roundTrip(&wire.Envelope{Kind: int8(wire.KindAllocate), CommitTs: uint64(ts)})
	if err != nil {
		return 0, err
	}
	return Timestamp(resp.CommitTs), nil
}

// oracleClient adapts a TSOTransport into the TimestampOracle interface a
// TransactionCoordinator consults directly, the client-side half of the
// TimestampOracle/TSOTransport split.
type oracleClient struct {
	transport TSOTransport
}

func newOracleClient(transport TSOTransport) *oracleClient {
	return &oracleClient{transport: transport}
}

func (o *oracleClient) Allocate(ctx context.Context) (Timestamp, error) {
	return o.transport.Allocate(ctx)
}

// roundTrip encodes e and immediately decodes the result, standing in for
// the network hop a real socket-backed transport would put between the
// two.
func roundTrip(e *wire.Envelope) (*wire.Envelope, error) {
	data, err := wire.Encode(e)
	if err != nil {
		return nil, err
	}
	return wire.Decode(data)
}
