package domain

import "time"

// PartitionStatus is the lifecycle state of a file partition within a run.
type PartitionStatus string

const (
	PartitionPending PartitionStatus = "pending"
	PartitionClaimed PartitionStatus = "claimed"
	PartitionDone    PartitionStatus = "done"
	PartitionFailed  PartitionStatus = "failed"
	PartitionSkipped PartitionStatus = "skipped"
)

// Terminal reports whether no further transition is allowed within the run.
func (s PartitionStatus) Terminal() bool {
	return s == PartitionDone || s == PartitionFailed || s == PartitionSkipped
}

// FilePartition is the coordination unit: all comments for one file within
// one run. Transitions happen only through the coordination engine.
type FilePartition struct {
	File       string          `json:"file"`
	CommentIDs []int64         `json:"comment_ids"`
	Severity   Severity        `json:"severity"`
	Status     PartitionStatus `json:"status"`
	ClaimedBy  string          `json:"claimed_by,omitempty"`
	ClaimedAt  time.Time       `json:"claimed_at,omitempty"`
	Result     string          `json:"result,omitempty"`
}

// AgentState tracks one resolver agent's participation in a run. Created on
// first claim, never deleted mid-run.
type AgentState struct {
	AgentID        string    `json:"agent_id"`
	ClaimedFiles   []string  `json:"claimed_files"`
	CompletedFiles []string  `json:"completed_files"`
	LastSeen       time.Time `json:"last_seen"`
}

// Identity names the upstream repository a run belongs to.
type Identity struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// String returns owner/repo.
func (id Identity) String() string {
	return id.Owner + "/" + id.Repo
}

// CoordinationState is the full state of one coordination run, bound to a
// commit snapshot via HeadSHA. Owned exclusively by the coordination engine;
// everything handed out is a copy.
type CoordinationState struct {
	RunID       string                 `json:"run_id"`
	Identity    Identity               `json:"identity"`
	PRNumber    int                    `json:"pr_number"`
	HeadSHA     string                 `json:"head_sha"`
	Partitions  []FilePartition        `json:"partitions"`
	Agents      map[string]*AgentState `json:"agents"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at,omitempty"`
	// Seq is stamped by the engine under its lock, strictly increasing per
	// mutation, so persisted snapshots stay ordered even when writes race.
	Seq int64 `json:"seq"`
}
