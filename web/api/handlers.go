package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hochfrequenz/review-coordinator/internal/detect"
	"github.com/hochfrequenz/review-coordinator/internal/domain"
	"github.com/hochfrequenz/review-coordinator/internal/extract"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
)

// StatusResponse is the API response for overall run progress
type StatusResponse struct {
	RunID      string `json:"run_id,omitempty"`
	Repository string `json:"repository,omitempty"`
	PRNumber   int    `json:"pr_number,omitempty"`
	HeadSHA    string `json:"head_sha,omitempty"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	Claimed    int    `json:"claimed"`
	Done       int    `json:"done"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Agents     int    `json:"agents"`
	Completed  bool   `json:"completed"`
}

// AgentResponse is the API response for one resolver agent
type AgentResponse struct {
	ID             string   `json:"id"`
	ClaimedFiles   []string `json:"claimed_files"`
	CompletedFiles []string `json:"completed_files"`
	LastSeen       string   `json:"last_seen"`
}

func statusFromState(state *domain.CoordinationState) StatusResponse {
	resp := StatusResponse{
		RunID:      state.RunID,
		Repository: state.Identity.String(),
		PRNumber:   state.PRNumber,
		HeadSHA:    state.HeadSHA,
		Total:      len(state.Partitions),
		Agents:     len(state.Agents),
		Completed:  !state.CompletedAt.IsZero(),
	}
	for _, p := range state.Partitions {
		switch p.Status {
		case domain.PartitionPending:
			resp.Pending++
		case domain.PartitionClaimed:
			resp.Claimed++
		case domain.PartitionDone:
			resp.Done++
		case domain.PartitionFailed:
			resp.Failed++
		case domain.PartitionSkipped:
			resp.Skipped++
		}
	}
	return resp
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		state, err := s.engine.Status()
		if err != nil {
			// No active run is an empty status, not a failure.
			writeJSON(w, StatusResponse{})
			return
		}
		writeJSON(w, statusFromState(state))
	}
}

func (s *Server) runHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		state, err := s.engine.Status()
		if err != nil {
			writeError(w, http.StatusNotFound, "no active run")
			return
		}
		writeJSON(w, state)
	}
}

func (s *Server) listAgentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		state, err := s.engine.Status()
		if err != nil {
			writeJSON(w, []AgentResponse{})
			return
		}

		resp := make([]AgentResponse, 0, len(state.Agents))
		for _, a := range state.Agents {
			resp = append(resp, AgentResponse{
				ID:             a.AgentID,
				ClaimedFiles:   a.ClaimedFiles,
				CompletedFiles: a.CompletedFiles,
				LastSeen:       a.LastSeen.Format(time.RFC3339),
			})
		}
		writeJSON(w, resp)
	}
}

// prParams reads the owner/repo/pr query triple shared by the upstream-backed
// handlers.
func prParams(r *http.Request) (domain.Identity, int, bool) {
	owner := r.URL.Query().Get("owner")
	repo := r.URL.Query().Get("repo")
	pr, err := strconv.Atoi(r.URL.Query().Get("pr"))
	if owner == "" || repo == "" || err != nil || pr <= 0 {
		return domain.Identity{}, 0, false
	}
	return domain.Identity{Owner: owner, Repo: repo}, pr, true
}

func httpStatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindRateLimited, domain.KindCircuitOpen:
		return http.StatusServiceUnavailable
	case domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) detectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		id, pr, ok := prParams(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "owner, repo, and pr query parameters required")
			return
		}

		records, err := detect.DetectReviewedAgents(r.Context(), s.fetcher, s.agents, id, pr)
		if err != nil {
			writeError(w, httpStatusFor(err), err.Error())
			return
		}
		writeJSON(w, records)
	}
}

func (s *Server) commentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		id, pr, ok := prParams(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "owner, repo, and pr query parameters required")
			return
		}

		maxItems := 0
		if v := r.URL.Query().Get("max"); v != "" {
			maxItems, _ = strconv.Atoi(v)
		}

		threads, err := s.fetcher.FetchAllThreads(r.Context(), id, pr, fetch.Options{MaxItems: maxItems})
		if err != nil {
			writeError(w, httpStatusFor(err), err.Error())
			return
		}

		comments := make([]domain.NormalizedComment, 0, len(threads.Comments))
		for _, raw := range threads.Comments {
			comments = append(comments, extract.Normalize(raw))
		}
		writeJSON(w, map[string]interface{}{
			"total_count": threads.TotalCount,
			"comments":    comments,
		})
	}
}
