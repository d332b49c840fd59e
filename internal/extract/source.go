// Package extract normalizes free-form review comments from heterogeneous AI
// review agents into the shared severity/source model. All functions are pure:
// same input, same output, no I/O.
package extract

import (
	"regexp"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

// authorRule maps an author-login pattern to a source. Author identity is
// asserted by the platform, so these run before any body matching.
type authorRule struct {
	pattern *regexp.Regexp
	source  domain.Source
}

var authorRules = []authorRule{
	{regexp.MustCompile(`(?i)^coderabbit(ai)?(\[bot\])?$`), domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?i)^(chatgpt-codex-connector|codex)(\[bot\])?$`), domain.SourceCodex},
	{regexp.MustCompile(`(?i)^copilot(-pull-request-reviewer)?(\[bot\])?$`), domain.SourceCopilot},
	{regexp.MustCompile(`(?i)^gemini-code-assist(\[bot\])?$`), domain.SourceGemini},
	{regexp.MustCompile(`(?i)^greptile(-apps)?(\[bot\])?$`), domain.SourceGreptile},
}

// bodyRule maps a body marker to a source. Ordered; first match wins, so more
// distinctive markers come first. Adding a source is adding rules here.
type bodyRule struct {
	pattern *regexp.Regexp
	source  domain.Source
}

var bodyRules = []bodyRule{
	// CodeRabbit decorates comments with emoji-prefixed classification lines
	// and an agent-prompt banner.
	{regexp.MustCompile(`(?i)coderabbit`), domain.SourceCodeRabbit},
	{regexp.MustCompile(`🤖 Prompt for AI Agents`), domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?(⚠️ Potential issue|🛠️ Refactor suggestion|🧹 Nitpick)`), domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^(🔴 Critical|🟠 Major|🟡 Minor|🔵 Trivial)`), domain.SourceCodeRabbit},
	// Codex embeds a P0-P3 priority badge image.
	{regexp.MustCompile(`img\.shields\.io/badge/P[0-3]`), domain.SourceCodex},
	{regexp.MustCompile(`(?i)\bcodex\b.*\breview\b|\breview\b.*\bcodex\b`), domain.SourceCodex},
	{regexp.MustCompile(`(?i)copilot`), domain.SourceCopilot},
	{regexp.MustCompile(`(?i)gemini-code-assist`), domain.SourceGemini},
	{regexp.MustCompile(`(?i)greptile`), domain.SourceGreptile},
}

// DetectSource classifies a comment by originating agent. Author login is
// checked first (most reliable), then body markers in rule order, then
// unknown. Deterministic and pure.
func DetectSource(body, author string) domain.Source {
	if author != "" {
		for _, r := range authorRules {
			if r.pattern.MatchString(author) {
				return r.source
			}
		}
	}
	for _, r := range bodyRules {
		if r.pattern.MatchString(body) {
			return r.source
		}
	}
	return domain.SourceUnknown
}
