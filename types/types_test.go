// Copyright 2024 BINARY Members
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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	v, ok := Value(Entry{Key: "k1", Value: []byte("v1")})
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	v, ok = Value(Entry{Key: "k1", Tombstone: true})
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestKVStruct(t *testing.T) {
	kv := KV{
		K: "testkey",
		V: []byte("testvalue"),
	}

	assert.Equal(t, "testkey", kv.K)
	assert.Equal(t, []byte("testvalue"), kv.V)
}
