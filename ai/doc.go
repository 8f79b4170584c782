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

// Package ai provides the model gateway and capability abstractions for the
// catalog pipeline.
//
// The package defines one interface per model capability — ChunkClassifier
// (cheap tier), ProductEnricher (deep tier), Embedder, VisionAnalyzer — plus
// a Provider that aggregates them, and a Gateway that every pipeline stage
// calls through.
//
// The Gateway is the single place where three cross-cutting concerns live:
//
//   - usage accounting: every call is recorded against its (job, stage,
//     model) triple with token counts, cost, and latency
//   - error classification: provider failures are tagged retryable or fatal
//     here, never by callers, so the orchestrator's retry policy applies
//     uniformly regardless of which model answered
//   - tier binding: Config maps tiers to concrete models at construction, so
//     pipeline code only ever names a capability
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in ai/openai return interface types to enforce
// abstraction; mock constructors return concrete types so tests can inject
// behavior via function fields and assert on call counts.
package ai
