package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"    // request issued to the extraction service
	JobStatusExtractOK JobStatus = "EXTRACT_OK" // fields received and merged
	JobStatusCached    JobStatus = "CACHED"     // fields served from the local cache
	JobStatusFailed    JobStatus = "FAILED"     // terminal failure, form left for manual entry
)

// OrderStatus is the lifecycle state of a submitted payment order.
type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
)
