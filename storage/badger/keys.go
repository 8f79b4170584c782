package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/creativeghq/matflow/core"
)

// Key prefixes for different data types
const (
	jobRecordPrefix        = "jobrec"
	checkpointLatestPrefix = "ckplat"
	checkpointHistPrefix   = "ckphis"
	checkpointHistSeq      = "ckphisseq"
	chunkRecordPrefix      = "chkrec"
	productRecordPrefix    = "prdrec"
	productJobPrefix       = "prdjob"
	imageRecordPrefix      = "imgrec"
	propertyRecordPrefix   = "proprec"
	usageRecordPrefix      = "usgrec"
)

// makeJobKey generates a key for a job by ID.
func makeJobKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobRecordPrefix, id))
}

// makeCheckpointLatestKey generates a key for the latest checkpoint of a
// job stage. Format: prefix:jobID:stage
func makeCheckpointLatestKey(jobID string, stage core.Stage) []byte {
	return []byte(fmt.Sprintf("%s:%s:%02d", checkpointLatestPrefix, jobID, int(stage)))
}

// makeCheckpointHistKey generates a composite key for the checkpoint
// history of a job. Format: prefix:jobID:seq
// The sequence number is BigEndian so lexicographic sort gives commit order.
func makeCheckpointHistKey(jobID string, seq uint64) []byte {
	prefix := []byte(checkpointHistPrefix + ":" + jobID + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeChunkKey generates a composite key for a chunk of a job.
// Format: prefix:jobID:index
// The index is BigEndian so iteration yields chunks in document order.
func makeChunkKey(jobID string, index int) []byte {
	prefix := []byte(chunkRecordPrefix + ":" + jobID + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makeProductKey generates a key for a product by ID.
func makeProductKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", productRecordPrefix, id))
}

// makeProductJobKey generates a composite key for the job index of products.
// Format: prefix:jobID:productID
func makeProductJobKey(jobID, productID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", productJobPrefix, jobID, productID))
}

// makeImageKey generates a composite key for an image record of a job.
// Format: prefix:jobID:page:ref
// The page is BigEndian so iteration yields images in page order.
func makeImageKey(jobID string, page int, ref string) []byte {
	prefix := []byte(imageRecordPrefix + ":" + jobID + ":")
	buf := make([]byte, len(prefix)+8+len(ref))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(page))
	offset += 8
	copy(buf[offset:], ref)
	return buf
}

// makePropertyKey generates a key for a material property by key.
func makePropertyKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%s", propertyRecordPrefix, key))
}

// makeUsageKey generates a composite key for a usage aggregate.
// Format: prefix:jobID:stage:model
func makeUsageKey(jobID string, stage core.Stage, model string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%02d:%s", usageRecordPrefix, jobID, int(stage), model))
}

// prefixKey builds an iteration prefix for a record type scoped to one job.
func prefixKey(recordPrefix, jobID string) []byte {
	return []byte(recordPrefix + ":" + jobID + ":")
}
