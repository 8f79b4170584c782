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

// Package mock provides test doubles for the ai interfaces.
//
// Every mock supports behavior injection through exported function fields
// and records call counts for assertions. The default behaviors are
// deterministic: the embedder derives vectors from an FNV hash of the
// input text, and the classifier uses a keyword heuristic, so pipeline
// tests produce stable results without a live model server.
package mock
