// Package coord owns the coordination run: file partitions, claims, and
// terminal reports. All state lives behind one mutex; everything handed out
// is a deep copy, and no I/O ever happens under the lock.
package coord

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

// Snapshotter persists run snapshots after each mutation. Persistence is
// best-effort: failures are logged and never block or roll back a mutation.
type Snapshotter interface {
	SaveSnapshot(state *domain.CoordinationState) error
}

// Engine coordinates resolver agents over one run at a time. A new push
// (changed head SHA) replaces the run instead of reusing it, because the
// file-to-comment mapping may have shifted.
type Engine struct {
	mu    sync.Mutex
	state *domain.CoordinationState
	seq   int64

	store    Snapshotter
	onChange func(*domain.CoordinationState)
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotter persists every post-mutation snapshot to store.
func WithSnapshotter(store Snapshotter) Option {
	return func(e *Engine) { e.store = store }
}

// WithChangeHook calls fn with a snapshot after every mutation. Used by the
// status API to push live updates; fn runs outside the engine lock.
func WithChangeHook(fn func(*domain.CoordinationState)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// NewEngine creates an idle engine with no active run.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartRun creates a coordination run over the normalized comments, bound to
// headSHA. Partitions are created per distinct file in first-appearance
// order; comments without a file (PR-level discussion) take no partition.
//
// Starting again with the same head SHA is idempotent and returns the
// existing run; a different head SHA replaces the run wholesale.
func (e *Engine) StartRun(id domain.Identity, prNumber int, headSHA string, comments []domain.NormalizedComment) (*domain.CoordinationState, error) {
	if headSHA == "" {
		return nil, domain.E(domain.KindValidation, "head SHA required").
			WithHint("pass the PR head commit SHA")
	}

	partitions, total := buildPartitions(comments)

	e.mu.Lock()
	if e.state != nil && e.state.HeadSHA == headSHA && e.state.Identity == id && e.state.PRNumber == prNumber {
		snap := copyState(e.state)
		e.mu.Unlock()
		return snap, nil
	}

	e.state = &domain.CoordinationState{
		RunID:      e.newID(),
		Identity:   id,
		PRNumber:   prNumber,
		HeadSHA:    headSHA,
		Partitions: partitions,
		Agents:     make(map[string]*domain.AgentState),
		StartedAt:  e.now(),
	}
	e.stampSeq()
	snap := copyState(e.state)
	e.mu.Unlock()

	if got := countComments(snap.Partitions); got != total {
		// Partition building dropped or duplicated a comment; this is a bug,
		// not a caller error.
		log.Printf("partition comment count mismatch: %d != %d", got, total)
	}
	e.afterMutation(snap)
	return snap, nil
}

// buildPartitions groups comments by file in first-appearance order. The
// aggregate severity of a partition is the maximum over its comments.
func buildPartitions(comments []domain.NormalizedComment) ([]domain.FilePartition, int) {
	index := make(map[string]int)
	var partitions []domain.FilePartition
	total := 0

	for _, c := range comments {
		if c.File == "" {
			continue
		}
		total++
		i, ok := index[c.File]
		if !ok {
			i = len(partitions)
			index[c.File] = i
			partitions = append(partitions, domain.FilePartition{
				File:     c.File,
				Severity: c.Severity,
				Status:   domain.PartitionPending,
			})
		}
		p := &partitions[i]
		p.CommentIDs = append(p.CommentIDs, c.ID)
		p.Severity = p.Severity.Max(c.Severity)
	}
	return partitions, total
}

func countComments(partitions []domain.FilePartition) int {
	n := 0
	for _, p := range partitions {
		n += len(p.CommentIDs)
	}
	return n
}

// ClaimResult is the outcome of Claim. NoWork set means nothing pending
// remained; that is an ordinary outcome, not an error.
type ClaimResult struct {
	NoWork    bool
	Partition domain.FilePartition
}

// Claim atomically hands the first pending partition, in insertion order, to
// agentID. Concurrent callers never receive the same partition.
func (e *Engine) Claim(agentID string) (ClaimResult, error) {
	if agentID == "" {
		return ClaimResult{}, domain.E(domain.KindValidation, "agent id required")
	}

	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return ClaimResult{}, domain.E(domain.KindNotFound, "no active run").
			WithHint("start a run first")
	}

	var claimed *domain.FilePartition
	for i := range e.state.Partitions {
		if e.state.Partitions[i].Status == domain.PartitionPending {
			claimed = &e.state.Partitions[i]
			break
		}
	}
	if claimed == nil {
		e.mu.Unlock()
		return ClaimResult{NoWork: true}, nil
	}

	now := e.now()
	claimed.Status = domain.PartitionClaimed
	claimed.ClaimedBy = agentID
	claimed.ClaimedAt = now

	agent := e.state.Agents[agentID]
	if agent == nil {
		agent = &domain.AgentState{AgentID: agentID}
		e.state.Agents[agentID] = agent
	}
	agent.ClaimedFiles = append(agent.ClaimedFiles, claimed.File)
	agent.LastSeen = now

	e.stampSeq()
	result := ClaimResult{Partition: copyPartition(*claimed)}
	snap := copyState(e.state)
	e.mu.Unlock()

	e.afterMutation(snap)
	return result, nil
}

// Report moves a claimed partition to a terminal status. Only the claiming
// agent may report, and only claimed partitions transition; rejected calls
// leave the run untouched so a stale agent cannot corrupt finished work.
func (e *Engine) Report(agentID, file string, status domain.PartitionStatus, result string) (domain.FilePartition, error) {
	if agentID == "" || file == "" {
		return domain.FilePartition{}, domain.E(domain.KindValidation, "agent id and file required")
	}
	if !status.Terminal() {
		return domain.FilePartition{}, domain.E(domain.KindValidation, "status %q is not terminal", status).
			WithHint("report done, failed, or skipped")
	}

	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return domain.FilePartition{}, domain.E(domain.KindNotFound, "no active run").
			WithHint("start a run first")
	}

	var target *domain.FilePartition
	for i := range e.state.Partitions {
		if e.state.Partitions[i].File == file {
			target = &e.state.Partitions[i]
			break
		}
	}
	if target == nil {
		e.mu.Unlock()
		return domain.FilePartition{}, domain.E(domain.KindNotFound, "no partition for file %s", file)
	}
	if target.Status != domain.PartitionClaimed {
		e.mu.Unlock()
		return domain.FilePartition{}, domain.E(domain.KindInvalidTransition, "partition %s is %s, not claimed", file, target.Status).
			WithHint("re-query status and claim before reporting")
	}
	if target.ClaimedBy != agentID {
		e.mu.Unlock()
		return domain.FilePartition{}, domain.E(domain.KindNotOwner, "partition %s is claimed by %s", file, target.ClaimedBy).
			WithHint("only the claiming agent may report")
	}

	now := e.now()
	target.Status = status
	target.Result = result

	agent := e.state.Agents[agentID]
	agent.LastSeen = now
	if status == domain.PartitionDone {
		agent.CompletedFiles = append(agent.CompletedFiles, file)
	}

	if allTerminal(e.state.Partitions) {
		e.state.CompletedAt = now
	}

	e.stampSeq()
	reported := copyPartition(*target)
	snap := copyState(e.state)
	e.mu.Unlock()

	e.afterMutation(snap)
	return reported, nil
}

func allTerminal(partitions []domain.FilePartition) bool {
	for _, p := range partitions {
		if !p.Status.Terminal() {
			return false
		}
	}
	return len(partitions) > 0
}

// Status returns a consistent deep-copy snapshot of the active run. Two calls
// with no intervening mutation return identical state.
func (e *Engine) Status() (*domain.CoordinationState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return nil, domain.E(domain.KindNotFound, "no active run").
			WithHint("start a run first")
	}
	return copyState(e.state), nil
}

// Reset discards the active run. The confirm flag is a deliberate speed bump:
// without it the call fails validation and nothing changes.
func (e *Engine) Reset(confirm bool) error {
	if !confirm {
		return domain.E(domain.KindValidation, "reset requires confirmation").
			WithHint("pass confirm=true to discard the run")
	}

	e.mu.Lock()
	e.state = nil
	e.mu.Unlock()

	if e.onChange != nil {
		e.onChange(nil)
	}
	return nil
}

// stampSeq marks the state with the next mutation sequence. Snapshot writes
// happen outside the lock and can race; the sequence lets the store order
// them. Callers hold mu.
func (e *Engine) stampSeq() {
	e.seq++
	e.state.Seq = e.seq
}

// afterMutation persists and publishes a snapshot. Runs outside the lock;
// persistence failure is logged, never surfaced to the mutating caller.
func (e *Engine) afterMutation(snap *domain.CoordinationState) {
	if e.store != nil {
		if err := e.store.SaveSnapshot(snap); err != nil {
			log.Printf("snapshot save failed for run %s: %v", snap.RunID, err)
		}
	}
	if e.onChange != nil {
		e.onChange(snap)
	}
}

func copyPartition(p domain.FilePartition) domain.FilePartition {
	out := p
	out.CommentIDs = append([]int64(nil), p.CommentIDs...)
	return out
}

func copyState(s *domain.CoordinationState) *domain.CoordinationState {
	out := *s
	out.Partitions = make([]domain.FilePartition, len(s.Partitions))
	for i, p := range s.Partitions {
		out.Partitions[i] = copyPartition(p)
	}
	out.Agents = make(map[string]*domain.AgentState, len(s.Agents))
	for id, a := range s.Agents {
		c := *a
		c.ClaimedFiles = append([]string(nil), a.ClaimedFiles...)
		c.CompletedFiles = append([]string(nil), a.CompletedFiles...)
		out.Agents[id] = &c
	}
	return &out
}
