package extract

import (
	"regexp"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

// Extraction is the normalized classification of one comment body.
type Extraction struct {
	Severity domain.Severity
	Category domain.Category
	Source   domain.Source
}

// severityRule maps a structural severity marker to (severity, source).
// Ordered; first match wins. Patterns are specific enough that first-match is
// effectively only-match for real agent output.
type severityRule struct {
	pattern  *regexp.Regexp
	severity domain.Severity
	source   domain.Source
}

var severityRules = []severityRule{
	// CodeRabbit emoji classification lines.
	{regexp.MustCompile(`(?m)^_?🔴 Critical`), domain.SeverityCrit, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?🟠 Major`), domain.SeverityMajor, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?🟡 Minor`), domain.SeverityMinor, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?🔵 Trivial`), domain.SeverityTrivial, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?⚠️ Potential issue`), domain.SeverityIssue, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?🛠️ Refactor suggestion`), domain.SeverityRefactor, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?🧹 Nitpick`), domain.SeverityNitpick, domain.SourceCodeRabbit},
	{regexp.MustCompile(`(?m)^_?📝 Docs`), domain.SeverityDocs, domain.SourceCodeRabbit},
	// Codex priority badges.
	{regexp.MustCompile(`img\.shields\.io/badge/P0`), domain.SeverityCrit, domain.SourceCodex},
	{regexp.MustCompile(`img\.shields\.io/badge/P1`), domain.SeverityMajor, domain.SourceCodex},
	{regexp.MustCompile(`img\.shields\.io/badge/P2`), domain.SeverityMinor, domain.SourceCodex},
	{regexp.MustCompile(`img\.shields\.io/badge/P3`), domain.SeverityTrivial, domain.SourceCodex},
	// Greptile severity tags.
	{regexp.MustCompile(`(?i)\blogic:\s`), domain.SeverityMajor, domain.SourceGreptile},
	{regexp.MustCompile(`(?i)\bstyle:\s`), domain.SeverityNitpick, domain.SourceGreptile},
	{regexp.MustCompile(`(?i)\bsyntax:\s`), domain.SeverityMajor, domain.SourceGreptile},
}

// Heuristic vocabulary tiers for comments without structural markers, in
// fixed priority order.
var (
	criticalWords = regexp.MustCompile(`(?i)\b(security vulnerabilit|vulnerab|critical|exploit|injection|data loss|crash(es)?|remote code execution|credential|secret leak)`)
	defectWords   = regexp.MustCompile(`(?i)\b(bug|defect|incorrect|broken|race condition|deadlock|memory leak|nil pointer|null pointer|off[- ]by[- ]one|overflow|panics?)\b`)
	suggestWords  = regexp.MustCompile(`(?i)\b(consider|suggest(ion)?|could|should|recommend|prefer|might want)\b`)
)

// ExtractSeverity classifies a comment body into the normalized severity
// model. Structural markers win over keyword heuristics; bodies with no
// recognizable pattern come back {N/A, other} rather than an error.
func ExtractSeverity(body, author string) Extraction {
	source := DetectSource(body, author)

	for _, r := range severityRules {
		if !r.pattern.MatchString(body) {
			continue
		}
		// An asserted author identity beats the rule's source attribution.
		if source == domain.SourceUnknown {
			source = r.source
		}
		return Extraction{Severity: r.severity, Category: domain.CategoryOf(r.severity), Source: source}
	}

	var severity domain.Severity
	switch {
	case criticalWords.MatchString(body):
		severity = domain.SeverityCrit
	case defectWords.MatchString(body):
		severity = domain.SeverityMajor
	case suggestWords.MatchString(body):
		severity = domain.SeverityMinor
	default:
		severity = domain.SeverityNA
	}
	return Extraction{Severity: severity, Category: domain.CategoryOf(severity), Source: source}
}
