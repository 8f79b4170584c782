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

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every persisted record type. Field order is part of
// the storage format; append new fields at the end only.

// VectorMUS serializes embedding vectors.
var VectorMUS = ord.NewSliceSer[float32](raw.Float32)

// StringListMUS serializes string slices such as image tags.
var StringListMUS = ord.NewSliceSer[string](ord.String)

// AttributesMUS serializes string-to-string attribute maps.
var AttributesMUS = ord.NewMapSer[string, string](ord.String, ord.String)

// PrototypesMUS serializes canonical-value to embedding maps.
var PrototypesMUS = ord.NewMapSer[string, []float32](ord.String, VectorMUS)

// CountsMUS serializes raw-value frequency maps.
var CountsMUS = ord.NewMapSer[string, int64](ord.String, varint.Int64)

// IDMUS serializes content-derived IDs.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// Zero time round-trips as zero micros so IsZero survives storage.
func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

// JobMUS serializes Job records.
var JobMUS = jobMUS{}

type jobMUS struct{}

func (jobMUS) Marshal(v Job, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.DocumentRef, bs[n:])
	n += ord.String.Marshal(v.WorkspaceID, bs[n:])
	n += varint.Int64.Marshal(int64(v.Status), bs[n:])
	n += varint.Int64.Marshal(int64(v.CurrentStage), bs[n:])
	n += varint.Int64.Marshal(int64(v.Progress), bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (jobMUS) Unmarshal(bs []byte) (v Job, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.DocumentRef, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.WorkspaceID, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	var num int64
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Status = JobStatus(num)
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CurrentStage = Stage(num)
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Progress = int(num)
	v.Error, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (jobMUS) Size(v Job) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.DocumentRef)
	size += ord.String.Size(v.WorkspaceID)
	size += varint.Int64.Size(int64(v.Status))
	size += varint.Int64.Size(int64(v.CurrentStage))
	size += varint.Int64.Size(int64(v.Progress))
	size += ord.String.Size(v.Error)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

// CheckpointMUS serializes Checkpoint records.
var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.JobID, bs)
	n += varint.Int64.Marshal(int64(v.Stage), bs[n:])
	n += varint.Int64.Marshal(int64(v.Status), bs[n:])
	n += ord.ByteSlice.Marshal(v.Payload, bs[n:])
	n += varint.Int64.Marshal(int64(v.Attempt), bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += marshalTime(v.CompletedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	var n1 int
	if v.JobID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var num int64
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Stage = Stage(num)
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Status = StageStatus(num)
	v.Payload, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Attempt = int(num)
	v.Error, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CompletedAt, n1, err = unmarshalTime(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.JobID)
	size += varint.Int64.Size(int64(v.Stage))
	size += varint.Int64.Size(int64(v.Status))
	size += ord.ByteSlice.Size(v.Payload)
	size += varint.Int64.Size(int64(v.Attempt))
	size += ord.String.Size(v.Error)
	size += sizeTime(v.CompletedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

// ChunkMUS serializes Chunk records.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.JobID, bs[n:])
	n += varint.Int64.Marshal(int64(v.Index), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	if v.ID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	v.JobID, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	var num int64
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Index = int(num)
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.ID)
	size += ord.String.Size(v.JobID)
	size += varint.Int64.Size(int64(v.Index))
	size += ord.String.Size(v.Content)
	return size
}

// ProductMUS serializes Product records.
var ProductMUS = productMUS{}

type productMUS struct{}

func (productMUS) Marshal(v Product, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.JobID, bs[n:])
	n += ord.String.Marshal(v.WorkspaceID, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += ord.String.Marshal(v.Designer, bs[n:])
	n += ord.String.Marshal(v.Collection, bs[n:])
	n += AttributesMUS.Marshal(v.Attributes, bs[n:])
	n += varint.Int64.Marshal(int64(v.Quality), bs[n:])
	n += raw.Float32.Marshal(v.Confidence, bs[n:])
	n += IDMUS.Marshal(v.SourceChunk, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (productMUS) Unmarshal(bs []byte) (v Product, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.JobID, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.WorkspaceID, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Description, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Designer, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Collection, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Attributes, n1, err = AttributesMUS.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	var num int64
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Quality = QualityLevel(num)
	v.Confidence, n1, err = raw.Float32.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.SourceChunk, n1, err = IDMUS.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (productMUS) Size(v Product) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.JobID)
	size += ord.String.Size(v.WorkspaceID)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Description)
	size += ord.String.Size(v.Designer)
	size += ord.String.Size(v.Collection)
	size += AttributesMUS.Size(v.Attributes)
	size += varint.Int64.Size(int64(v.Quality))
	size += raw.Float32.Size(v.Confidence)
	size += IDMUS.Size(v.SourceChunk)
	size += sizeTime(v.CreatedAt)
	return size
}

// MaterialPropertyMUS serializes MaterialProperty records.
var MaterialPropertyMUS = materialPropertyMUS{}

type materialPropertyMUS struct{}

func (materialPropertyMUS) Marshal(v MaterialProperty, bs []byte) (n int) {
	n = ord.String.Marshal(v.Key, bs)
	n += ord.String.Marshal(v.DataType, bs[n:])
	n += PrototypesMUS.Marshal(v.Prototypes, bs[n:])
	n += CountsMUS.Marshal(v.RawValueCounts, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (materialPropertyMUS) Unmarshal(bs []byte) (v MaterialProperty, n int, err error) {
	var n1 int
	if v.Key, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.DataType, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Prototypes, n1, err = PrototypesMUS.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.RawValueCounts, n1, err = CountsMUS.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (materialPropertyMUS) Size(v MaterialProperty) (size int) {
	size = ord.String.Size(v.Key)
	size += ord.String.Size(v.DataType)
	size += PrototypesMUS.Size(v.Prototypes)
	size += CountsMUS.Size(v.RawValueCounts)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.UpdatedAt)
	return size
}

// ImageRecordMUS serializes ImageRecord records.
var ImageRecordMUS = imageRecordMUS{}

type imageRecordMUS struct{}

func (imageRecordMUS) Marshal(v ImageRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.Ref, bs)
	n += ord.String.Marshal(v.JobID, bs[n:])
	n += varint.Int64.Marshal(int64(v.Page), bs[n:])
	n += ord.String.Marshal(v.Caption, bs[n:])
	n += StringListMUS.Marshal(v.Tags, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (imageRecordMUS) Unmarshal(bs []byte) (v ImageRecord, n int, err error) {
	var n1 int
	if v.Ref, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.JobID, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	var num int64
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Page = int(num)
	v.Caption, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Tags, n1, err = StringListMUS.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (imageRecordMUS) Size(v ImageRecord) (size int) {
	size = ord.String.Size(v.Ref)
	size += ord.String.Size(v.JobID)
	size += varint.Int64.Size(int64(v.Page))
	size += ord.String.Size(v.Caption)
	size += StringListMUS.Size(v.Tags)
	size += sizeTime(v.CreatedAt)
	return size
}

// UsageRecordMUS serializes UsageRecord aggregates.
var UsageRecordMUS = usageRecordMUS{}

type usageRecordMUS struct{}

func (usageRecordMUS) Marshal(v UsageRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.JobID, bs)
	n += varint.Int64.Marshal(int64(v.Stage), bs[n:])
	n += ord.String.Marshal(v.Model, bs[n:])
	n += varint.Int64.Marshal(int64(v.Calls), bs[n:])
	n += varint.Int64.Marshal(int64(v.PromptTokens), bs[n:])
	n += varint.Int64.Marshal(int64(v.CompletionTokens), bs[n:])
	n += raw.Float64.Marshal(v.CostUSD, bs[n:])
	n += varint.Int64.Marshal(v.LatencyMs, bs[n:])
	return n
}

func (usageRecordMUS) Unmarshal(bs []byte) (v UsageRecord, n int, err error) {
	var n1 int
	if v.JobID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var num int64
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Stage = Stage(num)
	v.Model, n1, err = ord.String.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.Calls = int(num)
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.PromptTokens = int(num)
	num, n1, err = varint.Int64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.CompletionTokens = int(num)
	v.CostUSD, n1, err = raw.Float64.Unmarshal(bs[n:])
	if n += n1; err != nil {
		return
	}
	v.LatencyMs, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (usageRecordMUS) Size(v UsageRecord) (size int) {
	size = ord.String.Size(v.JobID)
	size += varint.Int64.Size(int64(v.Stage))
	size += ord.String.Size(v.Model)
	size += varint.Int64.Size(int64(v.Calls))
	size += varint.Int64.Size(int64(v.PromptTokens))
	size += varint.Int64.Size(int64(v.CompletionTokens))
	size += raw.Float64.Size(v.CostUSD)
	size += varint.Int64.Size(v.LatencyMs)
	return size
}
