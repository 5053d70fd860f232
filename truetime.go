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

import "time"

// TrueTimeOracle returns a wall-clock estimate and its uncertainty bound:
// real time is guaranteed to lie in [now-err, now+err] at the moment Now
// returns. err is expressed in microseconds. The oracle is assumed
// monotonic on a single node; it is not assumed synchronized across
// coordinators except through its uncertainty bound.
type TrueTimeOracle interface {
	Now() (now Timestamp, err uint64)
}

// SystemTrueTime wraps the local wall clock with a fixed uncertainty
// bound. It is a deliberate simplification of a real TrueTime daemon
// (GPS/atomic-clock-disciplined, with a dynamically estimated bound),
// which is out of scope for this core the same way replica consensus is.
type SystemTrueTime struct {
	uncertainty uint64
}

// NewSystemTrueTime builds a SystemTrueTime with a constant uncertainty
// bound expressed as a time.Duration.
func NewSystemTrueTime(uncertainty time.Duration) *SystemTrueTime {
	return &SystemTrueTime{uncertainty: uint64(uncertainty.Microseconds())}
}

func (tt *SystemTrueTime) Now() (Timestamp, uint64) {
	now := time.Now()
	return NewTimestamp(uint32(now.Unix()), uint32(now.Nanosecond()/1000)), tt.uncertainty
}
