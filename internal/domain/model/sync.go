package model

// SyncJob is a one-shot whole-list write to the remote ranking store.
//
// Seq is a process-wide monotonic counter; a job whose Seq is lower than the
// last successful write for the same bucket is stale and must be skipped.
type SyncJob struct {
	Seq        uint64
	Bucket     string
	AccountID  string
	Credential string
	List       List
	Reason     string
}
