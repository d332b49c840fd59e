package domain

import "time"

// Source identifies the review agent that authored a comment.
type Source string

const (
	SourceCodeRabbit Source = "coderabbit"
	SourceCodex      Source = "codex"
	SourceCopilot    Source = "copilot"
	SourceGemini     Source = "gemini"
	SourceGreptile   Source = "greptile"
	SourceUnknown    Source = "unknown"
)

// Confidence labels how reliable an extracted fix suggestion is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RawComment is one review comment as delivered by the upstream platform.
// Produced only by the fetch layer and never mutated afterwards.
type RawComment struct {
	ID        int64
	File      string
	Line      int
	Body      string
	Author    string
	CreatedAt time.Time
	ThreadID  int64
	Resolved  bool
	Outdated  bool
}

// AIPrompt is a machine-actionable fix suggestion recovered from a comment
// body, tagged with the confidence tier of the extraction layer that found it.
type AIPrompt struct {
	Text       string     `json:"text"`
	Confidence Confidence `json:"confidence"`
}

// NormalizedComment is the uniform severity/source model derived from a
// RawComment. It is a pure function of its RawComment.
type NormalizedComment struct {
	ID       int64     `json:"id"`
	File     string    `json:"file"`
	Line     int       `json:"line"`
	Severity Severity  `json:"severity"`
	Category Category  `json:"category"`
	Source   Source    `json:"source"`
	Resolved bool      `json:"resolved"`
	Outdated bool      `json:"outdated"`
	AIPrompt *AIPrompt `json:"ai_prompt,omitempty"`
}

// DetectionStatus is the per-agent outcome of a timeline scan.
type DetectionStatus string

const (
	DetectionReviewed DetectionStatus = "reviewed"
	DetectionPending  DetectionStatus = "pending"
	// DetectionAmbiguous marks an agent whose response cannot be ordered
	// against its latest invocation (identical timestamps).
	DetectionAmbiguous DetectionStatus = "ambiguous"
)

// AgentDetectionRecord describes one invocation cycle of a configured agent.
type AgentDetectionRecord struct {
	AgentID      string          `json:"agent_id"`
	Status       DetectionStatus `json:"status"`
	ReviewAuthor string          `json:"review_author,omitempty"`
	RequestedAt  time.Time       `json:"requested_at,omitempty"`
	ReviewedAt   time.Time       `json:"reviewed_at,omitempty"`
}
