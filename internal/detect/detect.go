// Package detect reconstructs which configured review agents have already
// reviewed a pull request and which are still pending, from the PR timeline
// alone. The platform has no first-class "agent reviewed" flag, so the state
// is derived from invocation comments and the responses that follow them.
package detect

import (
	"context"
	"regexp"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/review-coordinator/internal/config"
	"github.com/hochfrequenz/review-coordinator/internal/domain"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
)

// Timeline is the merged PR history the detector walks. Both slices are in
// platform order as returned by the fetch layer.
type Timeline struct {
	Reviews  []fetch.Review
	Comments []fetch.IssueComment
}

// compiledAgent is one roster entry with its patterns compiled once up front.
type compiledAgent struct {
	id     string
	author *regexp.Regexp
	invoke *regexp.Regexp
}

func compileAgents(agents []config.Agent) ([]compiledAgent, error) {
	out := make([]compiledAgent, 0, len(agents))
	for _, a := range agents {
		author, err := regexp.Compile(a.AuthorPattern)
		if err != nil {
			return nil, domain.E(domain.KindValidation, "agent %s: bad author pattern: %v", a.ID, err)
		}
		invoke, err := regexp.Compile(a.InvokePattern)
		if err != nil {
			return nil, domain.E(domain.KindValidation, "agent %s: bad invoke pattern: %v", a.ID, err)
		}
		out = append(out, compiledAgent{id: a.ID, author: author, invoke: invoke})
	}
	return out, nil
}

// FetchTimeline retrieves reviews and discussion comments in parallel. Both
// go through the shared fetcher, so the limiter and breaker still see every
// call.
func FetchTimeline(ctx context.Context, f *fetch.Fetcher, id domain.Identity, prNumber int) (*Timeline, error) {
	var tl Timeline
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reviews, err := f.FetchReviews(ctx, id, prNumber)
		if err != nil {
			return err
		}
		tl.Reviews = reviews
		return nil
	})
	g.Go(func() error {
		comments, err := f.FetchIssueComments(ctx, id, prNumber)
		if err != nil {
			return err
		}
		tl.Comments = comments
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &tl, nil
}

// DetectReviewedAgents fetches the PR timeline and classifies every
// configured agent as reviewed, pending, or ambiguous. Agents with neither an
// invocation nor a response on the timeline are omitted entirely.
func DetectReviewedAgents(ctx context.Context, f *fetch.Fetcher, agents []config.Agent, id domain.Identity, prNumber int) ([]domain.AgentDetectionRecord, error) {
	tl, err := FetchTimeline(ctx, f, id, prNumber)
	if err != nil {
		return nil, err
	}
	return Classify(tl, agents)
}

// Classify derives the detection records from an already-fetched timeline.
// Pure apart from pattern compilation, so tests feed it synthetic timelines.
//
// Per agent the latest invocation comment opens the current review cycle;
// only responses inside that cycle count. A response stamped at exactly the
// invocation time cannot be ordered against it, so the agent comes back
// ambiguous instead of guessing either way.
func Classify(tl *Timeline, agents []config.Agent) ([]domain.AgentDetectionRecord, error) {
	compiled, err := compileAgents(agents)
	if err != nil {
		return nil, err
	}

	var out []domain.AgentDetectionRecord
	for _, a := range compiled {
		rec, present := classifyAgent(tl, a)
		if present {
			out = append(out, rec)
		}
	}
	return out, nil
}

func classifyAgent(tl *Timeline, a compiledAgent) (domain.AgentDetectionRecord, bool) {
	// The latest invocation opens the current cycle. Two distinct invocations
	// stamped identically cannot be ordered into cycles at all, so that is
	// remembered and surfaced as ambiguous unless a response settles it.
	var invokedAt time.Time
	invoked := false
	dupInvocation := false
	for _, c := range tl.Comments {
		if !a.invoke.MatchString(c.Body) {
			continue
		}
		switch {
		case !invoked || c.CreatedAt.After(invokedAt):
			invokedAt = c.CreatedAt
			invoked = true
			dupInvocation = false
		case c.CreatedAt.Equal(invokedAt):
			dupInvocation = true
		}
	}

	// Responses: submitted reviews by the agent, plus discussion comments the
	// agent posted itself (some agents reply in the thread instead of filing
	// a review). The sort is stable so equal timestamps keep the timeline
	// order they arrived in.
	type response struct {
		author string
		at     time.Time
	}
	var responses []response
	for _, r := range tl.Reviews {
		if a.author.MatchString(r.Author) {
			responses = append(responses, response{author: r.Author, at: r.SubmittedAt})
		}
	}
	for _, c := range tl.Comments {
		if a.author.MatchString(c.Author) && !a.invoke.MatchString(c.Body) {
			responses = append(responses, response{author: c.Author, at: c.CreatedAt})
		}
	}
	sort.SliceStable(responses, func(i, j int) bool { return responses[i].at.Before(responses[j].at) })

	if !invoked && len(responses) == 0 {
		return domain.AgentDetectionRecord{}, false
	}

	rec := domain.AgentDetectionRecord{AgentID: a.id, RequestedAt: invokedAt}

	if !invoked {
		// Reviewed unprompted; the latest response stands.
		last := responses[len(responses)-1]
		rec.Status = domain.DetectionReviewed
		rec.ReviewAuthor = last.author
		rec.ReviewedAt = last.at
		return rec, true
	}

	// A response clearly after the invocation wins over any ambiguity at the
	// invocation timestamp itself.
	for _, r := range responses {
		if r.at.After(invokedAt) {
			rec.Status = domain.DetectionReviewed
			rec.ReviewAuthor = r.author
			rec.ReviewedAt = r.at
			return rec, true
		}
	}
	if dupInvocation {
		rec.Status = domain.DetectionAmbiguous
		return rec, true
	}
	for _, r := range responses {
		if r.at.Equal(invokedAt) {
			rec.Status = domain.DetectionAmbiguous
			rec.ReviewAuthor = r.author
			return rec, true
		}
	}

	rec.Status = domain.DetectionPending
	return rec, true
}
