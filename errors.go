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

import "errors"

var (
	// ErrAborted is returned by TransactionCoordinator.Get/Put/Commit
	// when the transaction is not currently active: Begin was never
	// called, or a prior Commit/Abort already finished it.
	ErrAborted = errors.New("tapir: transaction not active")

	// ErrCommitFailed is returned by Commit when a participant voted
	// FAIL, or every retry was exhausted, without reaching COMMITTED.
	ErrCommitFailed = errors.New("tapir: commit failed")

	// ErrNoParticipants is returned by Commit on a transaction for which
	// no Get/Put ever established a participant shard.
	ErrNoParticipants = errors.New("tapir: transaction has no participants")
)
