// Copyright 2025 CreativeGHQ
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

package orchestrator

import "errors"

var (
	// ErrStoreRequired is returned when a store is not supplied.
	ErrStoreRequired = errors.New("store required")

	// ErrPipelineRequired is returned when a pipeline is not supplied.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrClosed is returned when an operation is attempted after Close.
	ErrClosed = errors.New("orchestrator closed")

	// ErrJobTerminal is returned when cancelling a job that already
	// reached a terminal status.
	ErrJobTerminal = errors.New("job already terminal")

	// ErrJobNotResumable is returned when resuming a job that is not
	// interrupted, failed, or cancelled.
	ErrJobNotResumable = errors.New("job not resumable")

	// ErrInvalidMaxAttempts is returned when the retry policy allows
	// zero attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
