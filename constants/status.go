package constants

// JobStatus is the canonical status for queued verification jobs stored in
// the blob store. Transitions are cooperative, not transactional: a race
// between two workers claiming the same job is possible and accepted.
type JobStatus string

// Stable values (stored verbatim in job records).
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)
