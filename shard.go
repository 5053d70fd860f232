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

import "github.com/spaolacci/murmur3"

// shardFor maps a key to a shard index in [0, nShards). Both the
// coordinator and the shard-side store must compute this identically
// (spec section 6), so it lives in the core rather than in any one
// transport implementation.
func shardFor(key string, nShards int) int {
	if nShards <= 1 {
		return 0
	}
	h := murmur3.Sum32([]byte(key))
	return int(h % uint32(nShards))
}
