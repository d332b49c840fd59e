// Package fetch wraps upstream pull-request data retrieval with cursor
// pagination, a shared rate limiter, and a shared circuit breaker. It is the
// only producer of domain.RawComment values.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/time/rate"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

// PullRequestsService is the slice of the upstream client used for review
// threads. *github.PullRequestsService satisfies it.
type PullRequestsService interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.PullRequestListCommentsOptions) ([]*github.PullRequestComment, *github.Response, error)
	ListReviews(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.PullRequestReview, *github.Response, error)
}

// IssuesService is the slice of the upstream client used for discussion
// comments. *github.IssuesService satisfies it.
type IssuesService interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
}

// Options bounds one thread fetch.
type Options struct {
	// MaxItems caps the number of comments returned; 0 means unbounded.
	MaxItems int
}

// ThreadList is the result of FetchAllThreads.
type ThreadList struct {
	Comments   []domain.RawComment
	TotalCount int
}

// Config tunes the shared resilience wrapper.
type Config struct {
	PageSize         int           // upstream page size, default 100
	RequestsPerSec   float64       // rate limiter refill, default 5
	Burst            int           // rate limiter burst, default 10
	FailureThreshold int           // breaker trip threshold, default 5
	Cooldown         time.Duration // breaker cooldown, default 30s
}

// Fetcher retrieves upstream PR data. One Fetcher is shared process-wide so
// the limiter and breaker see every call.
type Fetcher struct {
	prs      PullRequestsService
	issues   IssuesService
	limiter  *rate.Limiter
	breaker  *Breaker
	pageSize int
}

// New creates a Fetcher over a go-github client.
func New(client *github.Client, cfg Config) *Fetcher {
	return NewWithServices(client.PullRequests, client.Issues, cfg)
}

// NewWithServices creates a Fetcher over explicit service implementations.
func NewWithServices(prs PullRequestsService, issues IssuesService, cfg Config) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Fetcher{
		prs:      prs,
		issues:   issues,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker:  NewBreaker(cfg.FailureThreshold, cfg.Cooldown),
		pageSize: cfg.PageSize,
	}
}

// call runs one upstream request under the limiter and breaker. The limiter
// wait honors ctx cancellation and runs before Allow: a wait aborted on the
// caller's deadline must not consume the breaker's half-open trial slot,
// which only Success or Failure would release.
func (f *Fetcher) call(ctx context.Context, fn func() (*github.Response, error)) error {
	if err := f.limiter.Wait(ctx); err != nil {
		// The caller's deadline would be exceeded before the budget refills.
		return domain.E(domain.KindRateLimited, "rate limit wait aborted: %v", err).
			WithHint("retry with a longer timeout or lower request rate")
	}
	if err := f.breaker.Allow(); err != nil {
		return err
	}

	resp, err := fn()
	if err != nil {
		f.breaker.Failure()
		return classify(resp, err)
	}
	f.breaker.Success()
	return nil
}

// classify maps upstream failures onto the stable error taxonomy.
func classify(resp *github.Response, err error) error {
	if resp != nil && resp.Response != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return domain.E(domain.KindNotFound, "upstream resource not found").
				WithHint("check the repository identity and PR number")
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.E(domain.KindPermissionDenied, "upstream denied access").
				WithHint("check the access token scopes")
		case http.StatusTooManyRequests:
			return domain.E(domain.KindRateLimited, "upstream rate limit exhausted").
				WithHint("back off and retry later")
		}
	}
	return fmt.Errorf("upstream request: %w", err)
}

// FetchAllThreads retrieves every review comment on a PR, following cursor
// pagination to the end of the list or opts.MaxItems. Comments are de-duplicated
// by ID so a retried page never produces duplicates, and the platform's
// ordering is preserved.
func (f *Fetcher) FetchAllThreads(ctx context.Context, id domain.Identity, prNumber int, opts Options) (*ThreadList, error) {
	listOpts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: f.pageSize},
	}

	seen := make(map[int64]bool)
	var out []domain.RawComment

	for {
		var (
			page []*github.PullRequestComment
			resp *github.Response
		)
		err := f.call(ctx, func() (*github.Response, error) {
			var err error
			page, resp, err = f.prs.ListComments(ctx, id.Owner, id.Repo, prNumber, listOpts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, c := range page {
			if seen[c.GetID()] {
				continue
			}
			seen[c.GetID()] = true
			out = append(out, rawFromComment(c))
			if opts.MaxItems > 0 && len(out) >= opts.MaxItems {
				return &ThreadList{Comments: out, TotalCount: len(out)}, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return &ThreadList{Comments: out, TotalCount: len(out)}, nil
}

func rawFromComment(c *github.PullRequestComment) domain.RawComment {
	threadID := c.GetID()
	if c.GetInReplyTo() != 0 {
		threadID = c.GetInReplyTo()
	}
	return domain.RawComment{
		ID:        c.GetID(),
		File:      c.GetPath(),
		Line:      c.GetLine(),
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		CreatedAt: c.GetCreatedAt().Time,
		ThreadID:  threadID,
		// The REST list endpoint does not expose thread resolution; callers
		// combine this flag with extract.HasResolutionMarker.
		Resolved: false,
		Outdated: c.Position == nil,
	}
}

// Review is one submitted review on the PR timeline.
type Review struct {
	ID          int64
	Author      string
	State       string
	SubmittedAt time.Time
}

// FetchReviews retrieves all submitted reviews in platform order.
func (f *Fetcher) FetchReviews(ctx context.Context, id domain.Identity, prNumber int) ([]Review, error) {
	listOpts := &github.ListOptions{PerPage: f.pageSize}
	seen := make(map[int64]bool)
	var out []Review

	for {
		var (
			page []*github.PullRequestReview
			resp *github.Response
		)
		err := f.call(ctx, func() (*github.Response, error) {
			var err error
			page, resp, err = f.prs.ListReviews(ctx, id.Owner, id.Repo, prNumber, listOpts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, r := range page {
			if seen[r.GetID()] {
				continue
			}
			seen[r.GetID()] = true
			out = append(out, Review{
				ID:          r.GetID(),
				Author:      r.GetUser().GetLogin(),
				State:       r.GetState(),
				SubmittedAt: r.GetSubmittedAt().Time,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}
	return out, nil
}

// IssueComment is one discussion comment on the PR timeline.
type IssueComment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// FetchIssueComments retrieves all discussion comments in platform order.
func (f *Fetcher) FetchIssueComments(ctx context.Context, id domain.Identity, prNumber int) ([]IssueComment, error) {
	listOpts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: f.pageSize},
	}
	seen := make(map[int64]bool)
	var out []IssueComment

	for {
		var (
			page []*github.IssueComment
			resp *github.Response
		)
		err := f.call(ctx, func() (*github.Response, error) {
			var err error
			page, resp, err = f.issues.ListComments(ctx, id.Owner, id.Repo, prNumber, listOpts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, c := range page {
			if seen[c.GetID()] {
				continue
			}
			seen[c.GetID()] = true
			out = append(out, IssueComment{
				ID:        c.GetID(),
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}
	return out, nil
}
