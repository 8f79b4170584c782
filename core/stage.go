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

package core

// Stage is one ordered step of a job's pipeline, checkpointed independently.
type Stage int

const (
	StageDiscovery Stage = iota
	StageExtraction
	StageChunking
	StageImages
	StageClassification
	StageEnrichment
	StagePersistence
)

var stageNames = map[Stage]string{
	StageDiscovery:      "discovery",
	StageExtraction:     "extraction",
	StageChunking:       "chunking",
	StageImages:         "image_processing",
	StageClassification: "classification",
	StageEnrichment:     "enrichment",
	StagePersistence:    "persistence",
}

// stageWeights drives progress_percent. Metadata validation runs inside the
// enrichment stage, so classification and enrichment split the combined
// classification weight. Weights sum to 100.
var stageWeights = map[Stage]int{
	StageDiscovery:      15,
	StageExtraction:     15,
	StageChunking:       20,
	StageImages:         20,
	StageClassification: 10,
	StageEnrichment:     10,
	StagePersistence:    10,
}

// Stages returns all pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{
		StageDiscovery,
		StageExtraction,
		StageChunking,
		StageImages,
		StageClassification,
		StageEnrichment,
		StagePersistence,
	}
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is a defined pipeline stage.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// Weight returns the stage's share of overall job progress, in percent.
func (s Stage) Weight() int {
	return stageWeights[s]
}

// ProgressAfter returns the cumulative progress percent once stage s and all
// prior stages have succeeded.
func ProgressAfter(s Stage) int {
	total := 0
	for _, stage := range Stages() {
		total += stage.Weight()
		if stage == s {
			break
		}
	}
	return total
}
