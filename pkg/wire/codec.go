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

package wire

import (
	"bytes"

	"github.com/B1NARY-GR0UP/tapir/pkg/bufferpool"
	"github.com/B1NARY-GR0UP/tapir/pkg/utils"
)

// Encode marshals e with frugal and s2-compresses the result, the same
// two steps originium's pkg/utils offers separately but never chains
// together on its own. A transport implementation hands the returned
// bytes to the network; this core has no opinion on what carries them.
func Encode(e *Envelope) ([]byte, error) {
	raw, err := utils.TMarshal(e)
	if err != nil {
		return nil, err
	}

	buf := bufferpool.Pool.Get()
	defer bufferpool.Pool.Put(buf)

	if err := utils.Compress(bytes.NewReader(raw), buf); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Envelope, error) {
	buf := bufferpool.Pool.Get()
	defer bufferpool.Pool.Put(buf)

	if err := utils.Decompress(bytes.NewReader(data), buf); err != nil {
		return nil, err
	}

	e := &Envelope{}
	if err := utils.TUnmarshal(buf.Bytes(), e); err != nil {
		return nil, err
	}
	return e, nil
}
