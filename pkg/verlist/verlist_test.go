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

package verlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutAndLatest(t *testing.T) {
	l := New(4, 0.5)
	l.Put(10, []byte("a"))
	l.Put(30, []byte("c"))
	l.Put(20, []byte("b"))

	latest, ok := l.Latest()
	assert.True(t, ok)
	assert.Equal(t, uint64(30), latest.Ts)
	assert.Equal(t, []byte("c"), latest.Value)
	assert.Equal(t, 3, l.Len())
}

func TestPutOverwritesSameTimestamp(t *testing.T) {
	l := New(4, 0.5)
	l.Put(10, []byte("a"))
	l.Put(10, []byte("a2"))

	assert.Equal(t, 1, l.Len())
	e, ok := l.Floor(10)
	assert.True(t, ok)
	assert.Equal(t, []byte("a2"), e.Value)
}

// S2 from the spec: put("x","a",10); put("x","b",20); put("x","c",30).
func TestFloorScenarioS2(t *testing.T) {
	l := New(4, 0.5)
	l.Put(10, []byte("a"))
	l.Put(20, []byte("b"))
	l.Put(30, []byte("c"))

	e, ok := l.Floor(25)
	assert.True(t, ok)
	assert.Equal(t, uint64(20), e.Ts)
	assert.Equal(t, []byte("b"), e.Value)

	e, ok = l.Floor(10)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), e.Ts)
	assert.Equal(t, []byte("a"), e.Value)

	_, ok = l.Floor(5)
	assert.False(t, ok)
}

func TestFloorAndNextScenarioS2(t *testing.T) {
	l := New(4, 0.5)
	l.Put(10, []byte("a"))
	l.Put(20, []byte("b"))
	l.Put(30, []byte("c"))

	floor, hasFloor, next, hasNext := l.FloorAndNext(25)
	assert.True(t, hasFloor)
	assert.Equal(t, uint64(20), floor.Ts)
	assert.True(t, hasNext)
	assert.Equal(t, uint64(30), next.Ts)

	floor, hasFloor, _, hasNext = l.FloorAndNext(30)
	assert.True(t, hasFloor)
	assert.Equal(t, uint64(30), floor.Ts)
	assert.False(t, hasNext)
}

func TestFloorEmpty(t *testing.T) {
	l := New(4, 0.5)
	_, ok := l.Floor(100)
	assert.False(t, ok)
	_, ok = l.Latest()
	assert.False(t, ok)
}

// Version ordering invariant: ascending write_ts iteration order matches
// sorted insertion order regardless of insertion order.
func TestVersionOrderingInvariant(t *testing.T) {
	l := New(6, 0.5)
	tsIn := []uint64{50, 10, 40, 20, 30}
	for _, ts := range tsIn {
		l.Put(ts, nil)
	}

	var got []uint64
	for n := l.head.next[0]; n != nil; n = n.next[0] {
		got = append(got, n.Ts)
	}
	assert.Equal(t, []uint64{10, 20, 30, 40, 50}, got)
}
