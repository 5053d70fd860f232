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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferClientGetForwardsOnMiss(t *testing.T) {
	store := NewVersionedStore(0)
	store.Put("x", []byte("a"), Timestamp(10))
	transport := newLocalShardTransport(store, OCC)

	bc := NewBufferClient(0, transport)
	bc.Begin(1)

	reply, err := bc.Get(context.Background(), "x").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, reply.Status)
	assert.True(t, reply.Found)
	assert.Equal(t, []byte("a"), reply.Value)
}

func TestBufferClientGetServesFromLocalBuffer(t *testing.T) {
	store := NewVersionedStore(0)
	transport := newLocalShardTransport(store, OCC)

	bc := NewBufferClient(0, transport)
	bc.Begin(1)

	_, err := bc.Put(context.Background(), "x", []byte("buffered")).Wait(context.Background())
	require.NoError(t, err)

	reply, err := bc.Get(context.Background(), "x").Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, reply.Found)
	assert.Equal(t, []byte("buffered"), reply.Value)
}

func TestBufferClientPrepareSendsBufferedWrites(t *testing.T) {
	store := NewVersionedStore(0)
	transport := newLocalShardTransport(store, OCC)

	bc := NewBufferClient(0, transport)
	bc.Begin(1)
	_, _ = bc.Put(context.Background(), "x", []byte("1")).Wait(context.Background())
	_, _ = bc.Put(context.Background(), "y", []byte("2")).Wait(context.Background())

	reply, err := bc.Prepare(context.Background(), 0).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, reply.Status)
	assert.Greater(t, uint64(reply.ProposedTs), uint64(0))
}

func TestBufferClientBeginResetsBuffer(t *testing.T) {
	store := NewVersionedStore(0)
	transport := newLocalShardTransport(store, OCC)

	bc := NewBufferClient(0, transport)
	bc.Begin(1)
	_, _ = bc.Put(context.Background(), "x", []byte("1")).Wait(context.Background())

	bc.Begin(2)
	reply, err := bc.Get(context.Background(), "x").Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, reply.Found)
}
