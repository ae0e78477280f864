package tracelog

import (
	"hash/crc32"
	"strconv"

	"github.com/russellklenk/moxie/pkg/scheduler"
)

// calculateChecksum covers Kind, JobID, and Seq — not Timestamp, which
// varies between the moment an event is recorded and any later replay.
func calculateChecksum(kind EventKind, jobID scheduler.JobID, seq uint64) uint32 {
	data := string(kind) + strconv.FormatUint(uint64(jobID), 10) + strconv.FormatUint(seq, 10)
	return crc32.ChecksumIEEE([]byte(data))
}

// verifyChecksum reports whether event's stored checksum matches one
// recomputed from its other fields.
func verifyChecksum(event Event) bool {
	return event.Checksum == calculateChecksum(event.Kind, event.JobID, event.Seq)
}
