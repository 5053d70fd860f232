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
	"github.com/B1NARY-GR0UP/tapir/pkg/filter"
	"github.com/B1NARY-GR0UP/tapir/pkg/verlist"
)

const (
	_verlistMaxLevel = 16
	_verlistP        = 0.5
)

// VersionedStore is a single shard replica's in-memory, multi-version
// key-value store: every write is kept, keyed by its write_ts, and reads
// ask for the version valid at a given timestamp rather than mutating a
// single current value. It is not internally synchronized — a replica
// serializes all calls itself, the same way originium's memtable relies
// on its owning levelManager for mutual exclusion.
type VersionedStore struct {
	versions  map[string]*verlist.List
	lastReads map[string]map[Timestamp]Timestamp
	prefilter *filter.Filter
}

// NewVersionedStore creates an empty store. When expectedKeys is positive
// a Bloom filter sized for that many keys is consulted ahead of the map
// lookup in InStore (the other lookups go straight to the map), mirroring the teacher's SSTable prefilter
// idiom (level.go's use of pkg/filter) — skipped entirely when
// expectedKeys <= 0, since a filter sized for zero keys is not useful.
func NewVersionedStore(expectedKeys int) *VersionedStore {
	s := &VersionedStore{
		versions:  make(map[string]*verlist.List),
		lastReads: make(map[string]map[Timestamp]Timestamp),
	}
	if expectedKeys > 0 {
		s.prefilter = filter.New(expectedKeys, 0.01)
	}
	return s
}

// InStore reports whether at least one version exists for k.
func (s *VersionedStore) InStore(k string) bool {
	if s.prefilter != nil && !s.prefilter.Contains(k) {
		return false
	}
	vl, ok := s.versions[k]
	return ok && vl.Len() > 0
}

// Get returns the value with the greatest write_ts for k.
func (s *VersionedStore) Get(k string) (Timestamp, []byte, bool) {
	vl, ok := s.versions[k]
	if !ok {
		return 0, nil, false
	}
	e, ok := vl.Latest()
	if !ok {
		return 0, nil, false
	}
	return Timestamp(e.Ts), e.Value, true
}

// GetAt returns the version valid at t: the greatest write_ts <= t. It
// reports false if k has no such version, either because k is absent or
// every version of k is newer than t.
func (s *VersionedStore) GetAt(k string, t Timestamp) (Timestamp, []byte, bool) {
	vl, ok := s.versions[k]
	if !ok {
		return 0, nil, false
	}
	e, ok := vl.Floor(uint64(t))
	if !ok {
		return 0, nil, false
	}
	return Timestamp(e.Ts), e.Value, true
}

// GetRange returns the half-open validity interval [lo, hi) of the
// version valid at t: lo is that version's write_ts, hi is the write_ts
// of the next newer version if any. hasHi is false when the version
// valid at t is still the latest one (open upper bound).
func (s *VersionedStore) GetRange(k string, t Timestamp) (lo Timestamp, hi Timestamp, hasHi bool, ok bool) {
	vl, present := s.versions[k]
	if !present {
		return 0, 0, false, false
	}
	floor, hasFloor, next, hasNext := vl.FloorAndNext(uint64(t))
	if !hasFloor {
		return 0, 0, false, false
	}
	if hasNext {
		return Timestamp(floor.Ts), Timestamp(next.Ts), true, true
	}
	return Timestamp(floor.Ts), 0, false, true
}

// Put inserts a version (t, v) for k. A version already present at
// exactly t is overwritten in place; a correctly coordinated execution
// never produces such a tie.
func (s *VersionedStore) Put(k string, v []byte, t Timestamp) {
	vl, ok := s.versions[k]
	if !ok {
		vl = verlist.New(_verlistMaxLevel, _verlistP)
		s.versions[k] = vl
	}
	vl.Put(uint64(t), v)
	if s.prefilter != nil {
		s.prefilter.Add(k)
	}
}

// CommitGet records that a transaction committing at commitTs observed
// the version of k valid at readTs, raising that version's last-read
// watermark to commitTs if it was lower. If the shard has no version
// valid at readTs (it is behind the reader), the call is a no-op: this
// is the one place the core tolerates a stale replica rather than
// failing loudly, since readTs is trusted to have been a real prior read
// elsewhere in the system.
func (s *VersionedStore) CommitGet(k string, readTs, commitTs Timestamp) {
	vl, ok := s.versions[k]
	if !ok {
		return
	}
	floor, ok := vl.Floor(uint64(readTs))
	if !ok {
		return
	}
	w := Timestamp(floor.Ts)

	byTs, ok := s.lastReads[k]
	if !ok {
		byTs = make(map[Timestamp]Timestamp)
		s.lastReads[k] = byTs
	}
	if cur, ok := byTs[w]; !ok || cur < commitTs {
		byTs[w] = commitTs
	}
}

// GetLastRead returns the last-read high-water mark of the latest
// version of k.
func (s *VersionedStore) GetLastRead(k string) (Timestamp, bool) {
	vl, ok := s.versions[k]
	if !ok {
		return 0, false
	}
	e, ok := vl.Latest()
	if !ok {
		return 0, false
	}
	byTs, ok := s.lastReads[k]
	if !ok {
		return 0, false
	}
	ts, ok := byTs[Timestamp(e.Ts)]
	return ts, ok
}

// GetLastReadAt returns the last-read high-water mark of the version of
// k valid at t. Calling it without having previously read at t is a
// precondition violation and panics loudly rather than returning a zero
// value a caller could mistake for a real watermark.
func (s *VersionedStore) GetLastReadAt(k string, t Timestamp) Timestamp {
	vl, ok := s.versions[k]
	if !ok {
		panic("tapir: GetLastReadAt: no version of key valid at t")
	}
	e, ok := vl.Floor(uint64(t))
	if !ok {
		panic("tapir: GetLastReadAt: no version of key valid at t")
	}
	byTs, ok := s.lastReads[k]
	if !ok {
		panic("tapir: GetLastReadAt: version was never read")
	}
	ts, ok := byTs[Timestamp(e.Ts)]
	if !ok {
		panic("tapir: GetLastReadAt: version was never read")
	}
	return ts
}
