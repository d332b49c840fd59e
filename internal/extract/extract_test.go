package extract

import (
	"testing"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

func TestDetectSource_AuthorWinsOverBody(t *testing.T) {
	// Body carries CodeRabbit markers, author is asserted by the platform.
	got := DetectSource("🤖 Prompt for AI Agents", "copilot-pull-request-reviewer")
	if got != domain.SourceCopilot {
		t.Errorf("source = %s, want copilot", got)
	}
}

func TestDetectSource_Authors(t *testing.T) {
	tests := []struct {
		author string
		want   domain.Source
	}{
		{"coderabbitai[bot]", domain.SourceCodeRabbit},
		{"coderabbitai", domain.SourceCodeRabbit},
		{"chatgpt-codex-connector[bot]", domain.SourceCodex},
		{"Copilot", domain.SourceCopilot},
		{"copilot-pull-request-reviewer[bot]", domain.SourceCopilot},
		{"gemini-code-assist[bot]", domain.SourceGemini},
		{"greptile-apps[bot]", domain.SourceGreptile},
		{"some-human", domain.SourceUnknown},
	}
	for _, tt := range tests {
		if got := DetectSource("plain comment", tt.author); got != tt.want {
			t.Errorf("DetectSource(author=%q) = %s, want %s", tt.author, got, tt.want)
		}
	}
}

func TestDetectSource_BodyMarkers(t *testing.T) {
	tests := []struct {
		body string
		want domain.Source
	}{
		{"_⚠️ Potential issue_\n\nNil check missing.", domain.SourceCodeRabbit},
		{"![P1](https://img.shields.io/badge/P1-orange) off by one", domain.SourceCodex},
		{"nothing to see here", domain.SourceUnknown},
	}
	for _, tt := range tests {
		if got := DetectSource(tt.body, ""); got != tt.want {
			t.Errorf("DetectSource(%q) = %s, want %s", tt.body, got, tt.want)
		}
	}
}

func TestDetectSource_Deterministic(t *testing.T) {
	body, author := "🧹 Nitpick: rename this", "coderabbitai[bot]"
	first := DetectSource(body, author)
	for i := 0; i < 10; i++ {
		if got := DetectSource(body, author); got != first {
			t.Fatalf("call %d: %s != %s", i, got, first)
		}
	}
}

// Scenario: bare CodeRabbit critical marker with no author context.
func TestExtractSeverity_CriticalMarker(t *testing.T) {
	ex := ExtractSeverity("🔴 Critical", "")

	if ex.Severity != domain.SeverityCrit {
		t.Errorf("severity = %s, want CRIT", ex.Severity)
	}
	if ex.Category != domain.CategoryIssue {
		t.Errorf("category = %s, want issue", ex.Category)
	}
	if ex.Source != domain.SourceCodeRabbit {
		t.Errorf("source = %s, want coderabbit", ex.Source)
	}
}

// Scenario: Codex priority badge embedded in an image URL.
func TestExtractSeverity_P0Badge(t *testing.T) {
	body := "![P0 Badge](https://img.shields.io/badge/P0-red) SQL built by string concatenation."
	ex := ExtractSeverity(body, "")

	if ex.Severity != domain.SeverityCrit {
		t.Errorf("severity = %s, want CRIT", ex.Severity)
	}
	if ex.Source != domain.SourceCodex {
		t.Errorf("source = %s, want codex", ex.Source)
	}
}

// Scenario: Copilot has no structural markers; severity comes from the
// keyword heuristic while the source comes from the author.
func TestExtractSeverity_CopilotHeuristic(t *testing.T) {
	body := "This endpoint has a security vulnerability: the token is logged in plaintext."
	ex := ExtractSeverity(body, "copilot-pull-request-reviewer")

	if ex.Source != domain.SourceCopilot {
		t.Errorf("source = %s, want copilot", ex.Source)
	}
	if ex.Severity != domain.SeverityCrit {
		t.Errorf("severity = %s, want CRIT", ex.Severity)
	}
}

func TestExtractSeverity_StructuralRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.Severity
	}{
		{"coderabbit major", "_🟠 Major_\n\nUnbounded goroutine growth.", domain.SeverityMajor},
		{"coderabbit refactor", "_🛠️ Refactor suggestion_\n\nSplit this function.", domain.SeverityRefactor},
		{"coderabbit nitpick", "_🧹 Nitpick (assertive)_\n\nTypo.", domain.SeverityNitpick},
		{"codex p2", "![P2](https://img.shields.io/badge/P2-yellow) naming", domain.SeverityMinor},
		{"codex p3", "![P3](https://img.shields.io/badge/P3-green) style", domain.SeverityTrivial},
		{"greptile logic", "logic: loop never terminates when n is 0", domain.SeverityMajor},
		{"greptile style", "style: prefer early return", domain.SeverityNitpick},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := ExtractSeverity(tt.body, "")
			if ex.Severity != tt.want {
				t.Errorf("severity = %s, want %s", ex.Severity, tt.want)
			}
		})
	}
}

func TestExtractSeverity_HeuristicTiers(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.Severity
	}{
		{"critical words", "this causes data loss on restart", domain.SeverityCrit},
		{"defect words", "there is a race condition between reader and writer", domain.SeverityMajor},
		{"suggestion words", "consider extracting this into a helper", domain.SeverityMinor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := ExtractSeverity(tt.body, "")
			if ex.Severity != tt.want {
				t.Errorf("severity = %s, want %s", ex.Severity, tt.want)
			}
		})
	}
}

func TestExtractSeverity_NoPattern(t *testing.T) {
	bodies := []string{
		"",
		"lgtm",
		"interesting approach",
		"what does this loop do?",
	}
	for _, body := range bodies {
		ex := ExtractSeverity(body, "")
		if ex.Severity != domain.SeverityNA {
			t.Errorf("ExtractSeverity(%q).Severity = %s, want N/A", body, ex.Severity)
		}
		if ex.Category != domain.CategoryOther {
			t.Errorf("ExtractSeverity(%q).Category = %s, want other", body, ex.Category)
		}
	}
}

func TestExtractPrompt_BannerFence(t *testing.T) {
	body := "_⚠️ Potential issue_\n\nNil deref.\n\n<details>\n<summary>🤖 Prompt for AI Agents</summary>\n\n```\nIn server.go around line 42, guard the nil map before writing.\n```\n\n</details>"

	p, ok := ExtractPrompt(body)
	if !ok {
		t.Fatal("expected a prompt")
	}
	if p.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", p.Confidence)
	}
	if p.Text != "In server.go around line 42, guard the nil map before writing." {
		t.Errorf("text = %q", p.Text)
	}
}

func TestExtractPrompt_SuggestionFence(t *testing.T) {
	body := "Use the safe accessor:\n```suggestion\nvalue := m.Get(key)\n```"

	p, ok := ExtractPrompt(body)
	if !ok {
		t.Fatal("expected a prompt")
	}
	if p.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", p.Confidence)
	}
	if p.Text != "value := m.Get(key)" {
		t.Errorf("text = %q", p.Text)
	}
}

func TestExtractPrompt_TaggedFence(t *testing.T) {
	body := "Something like this:\n```go\nif err != nil {\n\treturn err\n}\n```"

	p, ok := ExtractPrompt(body)
	if !ok {
		t.Fatal("expected a prompt")
	}
	if p.Confidence != domain.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium", p.Confidence)
	}
}

func TestExtractPrompt_ActionableSentence(t *testing.T) {
	body := "Replace the manual loop with strings.Builder to avoid quadratic copies."

	p, ok := ExtractPrompt(body)
	if !ok {
		t.Fatal("expected a prompt")
	}
	if p.Confidence != domain.ConfidenceLow {
		t.Errorf("confidence = %s, want low", p.Confidence)
	}
}

func TestExtractPrompt_NoMatch(t *testing.T) {
	if _, ok := ExtractPrompt("looks good to me"); ok {
		t.Error("expected no prompt")
	}
}

func TestHasResolutionMarker(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"✅ Addressed in commit abc1234", true},
		{"this issue was fixed", true},
		{"resolved in deadbeef1", true},
		{"will look at this later", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasResolutionMarker(tt.body); got != tt.want {
			t.Errorf("HasResolutionMarker(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	raw := domain.RawComment{
		ID:     42,
		File:   "internal/server/server.go",
		Line:   17,
		Body:   "_🟠 Major_\n\nUnchecked error.\n\n```suggestion\nif err != nil {\n\treturn err\n}\n```",
		Author: "coderabbitai[bot]",
	}

	nc := Normalize(raw)

	if nc.ID != 42 || nc.File != raw.File || nc.Line != 17 {
		t.Errorf("identity fields not carried over: %+v", nc)
	}
	if nc.Severity != domain.SeverityMajor {
		t.Errorf("severity = %s, want MAJOR", nc.Severity)
	}
	if nc.Source != domain.SourceCodeRabbit {
		t.Errorf("source = %s, want coderabbit", nc.Source)
	}
	if nc.AIPrompt == nil {
		t.Fatal("expected an extracted prompt")
	}
	if nc.AIPrompt.Confidence != domain.ConfidenceHigh {
		t.Errorf("prompt confidence = %s, want high", nc.AIPrompt.Confidence)
	}
}
