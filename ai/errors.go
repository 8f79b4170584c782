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

package ai

import (
	"context"
	"errors"
	"net"
	"strings"
)

var (
	// ErrProviderRequired is returned when a provider is not supplied.
	ErrProviderRequired = errors.New("ai provider required")

	// ErrUsageStoreRequired is returned when a usage store is not supplied.
	ErrUsageStoreRequired = errors.New("usage store required")
)

// RetryableError wraps a transient failure (timeout, rate limit, network).
// The orchestrator retries the owning stage in place.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// FatalError wraps a permanent failure (malformed request, auth, schema
// mismatch). The owning stage fails without retrying.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a RetryableError. Returns nil for nil input.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Fatal wraps err as a FatalError. Returns nil for nil input.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsRetryable reports whether err is classified as transient.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsFatal reports whether err is classified as permanent.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// fatalMarkers are provider-reported statuses that never succeed on retry.
var fatalMarkers = []string{
	"status code: 400",
	"status code: 401",
	"status code: 403",
	"status code: 404",
	"status code: 422",
	"invalid request",
	"invalid api key",
	"unauthorized",
	"model not found",
	"context length exceeded",
}

// retryableMarkers are provider-reported statuses worth retrying.
var retryableMarkers = []string{
	"status code: 408",
	"status code: 429",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 529",
	"rate limit",
	"overloaded",
	"timeout",
	"connection refused",
	"connection reset",
	"eof",
}

// Classify tags a provider error as retryable or fatal so the orchestrator's
// retry policy applies uniformly regardless of which model answered.
// Errors are classified here, never by callers. Already-classified errors
// pass through unchanged; unknown errors default to retryable because
// unattributed provider hiccups are overwhelmingly transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsRetryable(err) || IsFatal(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable(err)
	}
	if errors.Is(err, context.Canceled) {
		// Not a provider failure; let the caller observe cancellation directly.
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retryable(err)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return Fatal(err)
		}
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return Retryable(err)
		}
	}

	return Retryable(err)
}
