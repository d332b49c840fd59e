package detect

import (
	"testing"
	"time"

	"github.com/hochfrequenz/review-coordinator/internal/config"
	"github.com/hochfrequenz/review-coordinator/internal/domain"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
)

var testAgents = []config.Agent{
	{ID: "coderabbit", AuthorPattern: `(?i)^coderabbit(ai)?(\[bot\])?$`, InvokePattern: `(?i)@coderabbitai\s+review`},
	{ID: "codex", AuthorPattern: `(?i)^codex(\[bot\])?$`, InvokePattern: `(?i)@codex\s+review`},
}

func at(minute int) time.Time {
	return time.Date(2026, 8, 1, 10, minute, 0, 0, time.UTC)
}

func record(t *testing.T, records []domain.AgentDetectionRecord, agentID string) domain.AgentDetectionRecord {
	t.Helper()
	for _, r := range records {
		if r.AgentID == agentID {
			return r
		}
	}
	t.Fatalf("no record for agent %s", agentID)
	return domain.AgentDetectionRecord{}
}

func TestClassify_ReviewedAfterInvocation(t *testing.T) {
	tl := &Timeline{
		Comments: []fetch.IssueComment{
			{ID: 1, Author: "maintainer", Body: "@coderabbitai review", CreatedAt: at(0)},
		},
		Reviews: []fetch.Review{
			{ID: 10, Author: "coderabbitai[bot]", State: "COMMENTED", SubmittedAt: at(5)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1 (codex absent from timeline)", len(records))
	}

	r := record(t, records, "coderabbit")
	if r.Status != domain.DetectionReviewed {
		t.Errorf("status = %s, want reviewed", r.Status)
	}
	if r.ReviewAuthor != "coderabbitai[bot]" {
		t.Errorf("reviewer = %q", r.ReviewAuthor)
	}
	if !r.ReviewedAt.Equal(at(5)) {
		t.Errorf("reviewedAt = %v, want %v", r.ReviewedAt, at(5))
	}
}

func TestClassify_PendingAfterReRequest(t *testing.T) {
	// The agent reviewed the first cycle, then was re-requested and has not
	// responded since.
	tl := &Timeline{
		Comments: []fetch.IssueComment{
			{ID: 1, Author: "maintainer", Body: "@coderabbitai review", CreatedAt: at(0)},
			{ID: 2, Author: "maintainer", Body: "@coderabbitai review", CreatedAt: at(10)},
		},
		Reviews: []fetch.Review{
			{ID: 10, Author: "coderabbitai[bot]", SubmittedAt: at(5)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "coderabbit")
	if r.Status != domain.DetectionPending {
		t.Errorf("status = %s, want pending (response predates latest invocation)", r.Status)
	}
	if !r.RequestedAt.Equal(at(10)) {
		t.Errorf("requestedAt = %v, want %v", r.RequestedAt, at(10))
	}
}

func TestClassify_AmbiguousOnEqualTimestamps(t *testing.T) {
	tl := &Timeline{
		Comments: []fetch.IssueComment{
			{ID: 1, Author: "maintainer", Body: "@codex review", CreatedAt: at(0)},
		},
		Reviews: []fetch.Review{
			{ID: 10, Author: "codex[bot]", SubmittedAt: at(0)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "codex")
	if r.Status != domain.DetectionAmbiguous {
		t.Errorf("status = %s, want ambiguous", r.Status)
	}
}

func TestClassify_AmbiguousOnDuplicateInvocations(t *testing.T) {
	// Two invocation requests stamped identically cannot be ordered into
	// cycles, and with no response since there is nothing to settle it.
	tl := &Timeline{
		Comments: []fetch.IssueComment{
			{ID: 1, Author: "maintainer", Body: "@codex review", CreatedAt: at(0)},
			{ID: 2, Author: "reviewer", Body: "@codex review", CreatedAt: at(0)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "codex")
	if r.Status != domain.DetectionAmbiguous {
		t.Errorf("status = %s, want ambiguous", r.Status)
	}
	if !r.RequestedAt.Equal(at(0)) {
		t.Errorf("requestedAt = %v, want %v", r.RequestedAt, at(0))
	}
}

func TestClassify_ResponseSettlesDuplicateInvocations(t *testing.T) {
	tl := &Timeline{
		Comments: []fetch.IssueComment{
			{ID: 1, Author: "maintainer", Body: "@codex review", CreatedAt: at(0)},
			{ID: 2, Author: "reviewer", Body: "@codex review", CreatedAt: at(0)},
		},
		Reviews: []fetch.Review{
			{ID: 10, Author: "codex[bot]", SubmittedAt: at(5)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "codex")
	if r.Status != domain.DetectionReviewed {
		t.Errorf("status = %s, want reviewed (response after the shared timestamp)", r.Status)
	}
}

func TestClassify_EqualResponseTimestampsKeepTimelineOrder(t *testing.T) {
	// Two unprompted responses at the same instant: the merge lists reviews
	// before discussion comments, and ties must not be re-sorted, so the
	// comment is the latest response.
	tl := &Timeline{
		Reviews: []fetch.Review{
			{ID: 10, Author: "codex", SubmittedAt: at(3)},
		},
		Comments: []fetch.IssueComment{
			{ID: 2, Author: "codex[bot]", Body: "Review complete.", CreatedAt: at(3)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "codex")
	if r.Status != domain.DetectionReviewed {
		t.Fatalf("status = %s, want reviewed", r.Status)
	}
	if r.ReviewAuthor != "codex[bot]" {
		t.Errorf("reviewer = %q, want codex[bot] (timeline order on equal timestamps)", r.ReviewAuthor)
	}
}

func TestClassify_UnpromptedReview(t *testing.T) {
	// No invocation on the timeline, but the agent reviewed anyway.
	tl := &Timeline{
		Reviews: []fetch.Review{
			{ID: 10, Author: "codex[bot]", SubmittedAt: at(3)},
			{ID: 11, Author: "codex[bot]", SubmittedAt: at(8)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "codex")
	if r.Status != domain.DetectionReviewed {
		t.Errorf("status = %s, want reviewed", r.Status)
	}
	if !r.ReviewedAt.Equal(at(8)) {
		t.Errorf("reviewedAt = %v, want latest response %v", r.ReviewedAt, at(8))
	}
	if !r.RequestedAt.IsZero() {
		t.Errorf("requestedAt = %v, want zero (never invoked)", r.RequestedAt)
	}
}

func TestClassify_AgentRespondsInDiscussion(t *testing.T) {
	// Some agents answer with a discussion comment instead of a review.
	tl := &Timeline{
		Comments: []fetch.IssueComment{
			{ID: 1, Author: "maintainer", Body: "@coderabbitai review", CreatedAt: at(0)},
			{ID: 2, Author: "coderabbitai[bot]", Body: "Review complete: 3 findings.", CreatedAt: at(4)},
		},
	}

	records, err := Classify(tl, testAgents)
	if err != nil {
		t.Fatal(err)
	}

	r := record(t, records, "coderabbit")
	if r.Status != domain.DetectionReviewed {
		t.Errorf("status = %s, want reviewed", r.Status)
	}
}

func TestClassify_AbsentAgentsOmitted(t *testing.T) {
	records, err := Classify(&Timeline{}, testAgents)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestClassify_BadPattern(t *testing.T) {
	bad := []config.Agent{{ID: "broken", AuthorPattern: "(", InvokePattern: ".*"}}
	_, err := Classify(&Timeline{}, bad)
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("kind = %q, want validation", domain.KindOf(err))
	}
}
