package runstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testState(runID string) *domain.CoordinationState {
	return &domain.CoordinationState{
		RunID:    runID,
		Identity: domain.Identity{Owner: "hochfrequenz", Repo: "energy-service"},
		PRNumber: 7,
		HeadSHA:  "abc123",
		Partitions: []domain.FilePartition{
			{File: "a.go", CommentIDs: []int64{1, 3}, Severity: domain.SeverityMajor, Status: domain.PartitionPending},
		},
		Agents:    map[string]*domain.AgentState{},
		StartedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndLoadLatest(t *testing.T) {
	store := newTestStore(t)

	first := testState("run-1")
	if err := store.SaveSnapshot(first); err != nil {
		t.Fatal(err)
	}

	second := testState("run-1")
	second.Partitions[0].Status = domain.PartitionDone
	if err := store.SaveSnapshot(second); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadLatest(first.Identity, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a snapshot")
	}
	if got.Partitions[0].Status != domain.PartitionDone {
		t.Errorf("status = %s, want done (latest snapshot wins)", got.Partitions[0].Status)
	}
	if got.HeadSHA != "abc123" {
		t.Errorf("headSHA = %q", got.HeadSHA)
	}
}

func TestLoadLatest_OrdersByMutationSequence(t *testing.T) {
	// Snapshot writes happen outside the engine lock, so a later mutation can
	// reach the store first. The engine sequence, not insertion order, decides
	// which snapshot is latest.
	store := newTestStore(t)

	later := testState("run-1")
	later.Seq = 2
	later.Partitions[0].Status = domain.PartitionDone
	if err := store.SaveSnapshot(later); err != nil {
		t.Fatal(err)
	}

	earlier := testState("run-1")
	earlier.Seq = 1
	if err := store.SaveSnapshot(earlier); err != nil {
		t.Fatal(err)
	}

	got, err := store.LoadLatest(later.Identity, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 2 {
		t.Errorf("Seq = %d, want 2", got.Seq)
	}
	if got.Partitions[0].Status != domain.PartitionDone {
		t.Errorf("status = %s, want done (highest sequence wins)", got.Partitions[0].Status)
	}
}

func TestLoadLatest_NoSnapshot(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadLatest(domain.Identity{Owner: "x", Repo: "y"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)
	id := domain.Identity{Owner: "hochfrequenz", Repo: "energy-service"}

	store.SaveSnapshot(testState("run-1"))
	store.SaveSnapshot(testState("run-1"))
	store.SaveSnapshot(testState("run-2"))

	runs, err := store.ListRuns(id, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0] != "run-2" {
		t.Errorf("runs[0] = %s, want run-2 (newest first)", runs[0])
	}
}
