package extract

import (
	"regexp"
	"strings"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

// Prompt extraction recovers a machine-actionable fix suggestion from a
// comment body. Four layers are tried in order of decreasing structural
// reliability; the first non-empty result wins and is tagged with that
// layer's confidence tier.

var (
	// Layer 1: explicit agent-prompt banner (CodeRabbit's collapsible
	// "Prompt for AI Agents" section). The prompt itself sits in the first
	// fence after the banner.
	promptBanner = regexp.MustCompile(`🤖 Prompt for AI Agents`)

	// Layer 2: committable suggestion or diff fences.
	suggestionFence = regexp.MustCompile("(?s)```(?:suggestion|diff)\\n(.*?)```")

	// Layer 3: any language-tagged fence.
	taggedFence = regexp.MustCompile("(?s)```([a-zA-Z][a-zA-Z0-9+#.-]*)\\n(.*?)```")

	// Layer 4: an imperative sentence that reads like an instruction.
	actionableSentence = regexp.MustCompile(`(?m)^\s*(?:Please\s+)?(Use|Add|Remove|Replace|Rename|Move|Extract|Change|Fix|Update|Wrap|Avoid|Ensure|Make|Convert|Guard|Check|Validate|Return|Handle)\b[^\n]{10,}`)

	anyFence = regexp.MustCompile("(?s)```[a-zA-Z0-9+#.-]*\\n(.*?)```")
)

// ExtractPrompt returns the best fix suggestion found in body. The second
// return is false when no layer matches; that is an ordinary outcome, not an
// error.
func ExtractPrompt(body string) (domain.AIPrompt, bool) {
	if loc := promptBanner.FindStringIndex(body); loc != nil {
		rest := body[loc[1]:]
		if m := anyFence.FindStringSubmatch(rest); m != nil {
			if text := strings.TrimSpace(m[1]); text != "" {
				return domain.AIPrompt{Text: text, Confidence: domain.ConfidenceHigh}, true
			}
		}
	}

	if m := suggestionFence.FindStringSubmatch(body); m != nil {
		if text := strings.TrimSpace(m[1]); text != "" {
			return domain.AIPrompt{Text: text, Confidence: domain.ConfidenceHigh}, true
		}
	}

	if m := taggedFence.FindStringSubmatch(body); m != nil {
		if text := strings.TrimSpace(m[2]); text != "" {
			return domain.AIPrompt{Text: text, Confidence: domain.ConfidenceMedium}, true
		}
	}

	if m := actionableSentence.FindString(body); m != "" {
		return domain.AIPrompt{Text: strings.TrimSpace(m), Confidence: domain.ConfidenceLow}, true
	}

	return domain.AIPrompt{}, false
}

// Resolution markers posted by agents or humans to close a thread without
// using the platform's resolve button. This predicate supplements the
// platform resolved flag; callers must check both.
var resolutionMarkers = regexp.MustCompile(`(?i)(✅\s*(addressed|resolved|fixed)|\baddressed in (commit|[0-9a-f]{7,40})|\bthis (issue|comment) (has been|was|is) (addressed|resolved|fixed)|\bmarked? as resolved\b|\bresolved in [0-9a-f]{7,40})`)

// HasResolutionMarker reports whether body contains an explicit resolution
// phrase.
func HasResolutionMarker(body string) bool {
	return resolutionMarkers.MatchString(body)
}

// Normalize converts a raw platform comment into the uniform model. Pure:
// the result is fully determined by the input comment.
func Normalize(raw domain.RawComment) domain.NormalizedComment {
	ex := ExtractSeverity(raw.Body, raw.Author)
	nc := domain.NormalizedComment{
		ID:       raw.ID,
		File:     raw.File,
		Line:     raw.Line,
		Severity: ex.Severity,
		Category: ex.Category,
		Source:   ex.Source,
		Resolved: raw.Resolved,
		Outdated: raw.Outdated,
	}
	if p, ok := ExtractPrompt(raw.Body); ok {
		nc.AIPrompt = &p
	}
	return nc
}
