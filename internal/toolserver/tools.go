package toolserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hochfrequenz/review-coordinator/internal/coord"
	"github.com/hochfrequenz/review-coordinator/internal/detect"
	"github.com/hochfrequenz/review-coordinator/internal/domain"
	"github.com/hochfrequenz/review-coordinator/internal/extract"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
)

// toolError renders a failure as a tool result instead of a protocol error,
// so the calling agent sees the stable kind and the remediation hint. Errors
// from outside the taxonomy surface as upstream.
func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if _, ok := err.(*domain.Error); !ok {
		msg = string(domain.KindOf(err)) + ": " + msg
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// ClaimWorkTool hands the next pending file partition to a resolver agent
type ClaimWorkTool struct {
	engine *coord.Engine
}

func NewClaimWorkTool(engine *coord.Engine) *ClaimWorkTool {
	return &ClaimWorkTool{engine: engine}
}

func (t *ClaimWorkTool) Definition() mcp.Tool {
	return mcp.NewTool("claim_work",
		mcp.WithDescription("Atomically claim the next pending file partition in the active coordination run. Returns no_work when nothing pending remains."),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Identifier of the resolver agent claiming work"),
		),
	)
}

func (t *ClaimWorkTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.engine.Claim(agentID)
	if err != nil {
		return toolError(err), nil
	}
	if result.NoWork {
		return jsonResult(map[string]any{"no_work": true})
	}
	return jsonResult(map[string]any{"no_work": false, "partition": result.Partition})
}

// ReportProgressTool records the terminal outcome of a claimed partition
type ReportProgressTool struct {
	engine *coord.Engine
}

func NewReportProgressTool(engine *coord.Engine) *ReportProgressTool {
	return &ReportProgressTool{engine: engine}
}

func (t *ReportProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("report_progress",
		mcp.WithDescription("Report a claimed file partition as done, failed, or skipped. Only the claiming agent may report."),
		mcp.WithString("agent_id",
			mcp.Required(),
			mcp.Description("Identifier of the reporting agent; must match the claim"),
		),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("File path of the claimed partition"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Terminal status: done, failed, or skipped"),
			mcp.Enum("done", "failed", "skipped"),
		),
		mcp.WithString("result",
			mcp.Description("Free-form outcome summary, e.g. the commit that resolves the comments"),
		),
	)
}

func (t *ReportProgressTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := request.GetString("result", "")

	partition, err := t.engine.Report(agentID, file, domain.PartitionStatus(status), result)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(partition)
}

// GetWorkStatusTool returns a read-only snapshot of the active run
type GetWorkStatusTool struct {
	engine *coord.Engine
}

func NewGetWorkStatusTool(engine *coord.Engine) *GetWorkStatusTool {
	return &GetWorkStatusTool{engine: engine}
}

func (t *GetWorkStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("get_work_status",
		mcp.WithDescription("Get a consistent snapshot of the active coordination run: partitions, claims, and agent states. Never mutates."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (t *GetWorkStatusTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := t.engine.Status()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(state)
}

// ResetCoordinationTool discards the active run
type ResetCoordinationTool struct {
	engine *coord.Engine
}

func NewResetCoordinationTool(engine *coord.Engine) *ResetCoordinationTool {
	return &ResetCoordinationTool{engine: engine}
}

func (t *ResetCoordinationTool) Definition() mcp.Tool {
	return mcp.NewTool("reset_coordination",
		mcp.WithDescription("Discard the active coordination run and all its claims. Requires confirm=true."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithBoolean("confirm",
			mcp.Description("Must be true; guards against accidental resets"),
		),
	)
}

func (t *ResetCoordinationTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm := request.GetBool("confirm", false)
	if err := t.engine.Reset(confirm); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("coordination state cleared"), nil
}

// StartRunTool fetches, normalizes, and partitions the comments of a PR
type StartRunTool struct {
	engine  *coord.Engine
	fetcher *fetch.Fetcher
}

func NewStartRunTool(engine *coord.Engine, fetcher *fetch.Fetcher) *StartRunTool {
	return &StartRunTool{engine: engine, fetcher: fetcher}
}

func (t *StartRunTool) Definition() mcp.Tool {
	return mcp.NewTool("start_run",
		mcp.WithDescription("Fetch all review comments of a PR, normalize them, and start a coordination run partitioned by file. Idempotent for an unchanged head SHA."),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("pr_number", mcp.Required(), mcp.Description("Pull request number")),
		mcp.WithString("head_sha", mcp.Required(), mcp.Description("Head commit SHA the run binds to")),
		mcp.WithBoolean("include_resolved",
			mcp.Description("Include comments carrying a resolution marker (default false)"),
		),
	)
}

func (t *StartRunTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prNumber, err := request.RequireInt("pr_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	headSHA, err := request.RequireString("head_sha")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	includeResolved := request.GetBool("include_resolved", false)

	id := domain.Identity{Owner: owner, Repo: repo}
	threads, err := t.fetcher.FetchAllThreads(ctx, id, prNumber, fetch.Options{})
	if err != nil {
		return toolError(err), nil
	}

	var comments []domain.NormalizedComment
	for _, raw := range threads.Comments {
		if !includeResolved && (raw.Resolved || extract.HasResolutionMarker(raw.Body)) {
			continue
		}
		comments = append(comments, extract.Normalize(raw))
	}

	state, err := t.engine.StartRun(id, prNumber, headSHA, comments)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(state)
}

// DetectReviewedAgentsTool classifies configured agents as reviewed or pending
type DetectReviewedAgentsTool struct {
	deps Deps
}

func NewDetectReviewedAgentsTool(deps Deps) *DetectReviewedAgentsTool {
	return &DetectReviewedAgentsTool{deps: deps}
}

func (t *DetectReviewedAgentsTool) Definition() mcp.Tool {
	return mcp.NewTool("detect_reviewed_agents",
		mcp.WithDescription("Scan the PR timeline and report which configured review agents have reviewed since their latest invocation and which are still pending."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("pr_number", mcp.Required(), mcp.Description("Pull request number")),
	)
}

func (t *DetectReviewedAgentsTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prNumber, err := request.RequireInt("pr_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := domain.Identity{Owner: owner, Repo: repo}
	records, err := detect.DetectReviewedAgents(ctx, t.deps.Fetcher, t.deps.Agents, id, prNumber)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(records)
}

// ExtractSeverityTool classifies a single comment body
type ExtractSeverityTool struct{}

func NewExtractSeverityTool() *ExtractSeverityTool {
	return &ExtractSeverityTool{}
}

func (t *ExtractSeverityTool) Definition() mcp.Tool {
	return mcp.NewTool("extract_severity",
		mcp.WithDescription("Classify one comment body into the normalized severity model. Unrecognized bodies come back as N/A, never as an error."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("body", mcp.Required(), mcp.Description("Raw comment body")),
		mcp.WithString("author", mcp.Description("Comment author login, if known")),
	)
}

func (t *ExtractSeverityTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := request.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author := request.GetString("author", "")

	ex := extract.ExtractSeverity(body, author)
	out := map[string]any{
		"severity": ex.Severity,
		"category": ex.Category,
		"source":   ex.Source,
	}
	if p, ok := extract.ExtractPrompt(body); ok {
		out["ai_prompt"] = p
	}
	return jsonResult(out)
}

// FetchCommentsTool returns the normalized comments of a PR without starting
// a run
type FetchCommentsTool struct {
	fetcher *fetch.Fetcher
}

func NewFetchCommentsTool(fetcher *fetch.Fetcher) *FetchCommentsTool {
	return &FetchCommentsTool{fetcher: fetcher}
}

func (t *FetchCommentsTool) Definition() mcp.Tool {
	return mcp.NewTool("fetch_comments",
		mcp.WithDescription("Fetch and normalize all review comments of a PR. Read-only; does not touch the coordination run."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("pr_number", mcp.Required(), mcp.Description("Pull request number")),
		mcp.WithNumber("max_items", mcp.Description("Cap on the number of comments returned; 0 means unbounded")),
	)
}

func (t *FetchCommentsTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prNumber, err := request.RequireInt("pr_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxItems := request.GetInt("max_items", 0)

	id := domain.Identity{Owner: owner, Repo: repo}
	threads, err := t.fetcher.FetchAllThreads(ctx, id, prNumber, fetch.Options{MaxItems: maxItems})
	if err != nil {
		return toolError(err), nil
	}

	comments := make([]domain.NormalizedComment, 0, len(threads.Comments))
	for _, raw := range threads.Comments {
		comments = append(comments, extract.Normalize(raw))
	}
	return jsonResult(map[string]any{
		"total_count": threads.TotalCount,
		"comments":    comments,
	})
}
