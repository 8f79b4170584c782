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

package pipeline

import (
	"errors"
	"fmt"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
)

// RetryableStageError marks a stage failure that may succeed on a later
// attempt (model timeouts, rate limits, transient IO).
type RetryableStageError struct {
	Stage core.Stage
	Err   error
}

func (e *RetryableStageError) Error() string {
	return fmt.Sprintf("stage %s failed (retryable): %v", e.Stage, e.Err)
}

func (e *RetryableStageError) Unwrap() error {
	return e.Err
}

// FatalStageError marks a stage failure that no retry can fix (malformed
// documents, auth failures, invariant violations).
type FatalStageError struct {
	Stage core.Stage
	Err   error
}

func (e *FatalStageError) Error() string {
	return fmt.Sprintf("stage %s failed (fatal): %v", e.Stage, e.Err)
}

func (e *FatalStageError) Unwrap() error {
	return e.Err
}

// PartialItemError records the failure of one item inside a stage that
// continued with its remaining items. It never fails the stage by itself;
// executors collect these and report them in the stage payload.
type PartialItemError struct {
	Stage core.Stage
	Item  string
	Err   error
}

func (e *PartialItemError) Error() string {
	return fmt.Sprintf("stage %s item %s failed: %v", e.Stage, e.Item, e.Err)
}

func (e *PartialItemError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a RetryableStageError.
func Retryable(stage core.Stage, err error) error {
	return &RetryableStageError{Stage: stage, Err: err}
}

// Fatal wraps err as a FatalStageError.
func Fatal(stage core.Stage, err error) error {
	return &FatalStageError{Stage: stage, Err: err}
}

// IsRetryable reports whether err carries a RetryableStageError.
func IsRetryable(err error) bool {
	var target *RetryableStageError
	return errors.As(err, &target)
}

// IsFatal reports whether err carries a FatalStageError.
func IsFatal(err error) bool {
	var target *FatalStageError
	return errors.As(err, &target)
}

// wrapModelError lifts a gateway error into the stage taxonomy using the
// retryable/fatal classification the gateway already applied.
func wrapModelError(stage core.Stage, err error) error {
	if err == nil {
		return nil
	}
	if ai.IsFatal(err) {
		return Fatal(stage, err)
	}
	return Retryable(stage, err)
}
