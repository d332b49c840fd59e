package domain

// Severity is the normalized severity vocabulary shared by every consumer of
// review comments. The set and its total order are a stable contract.
type Severity string

const (
	SeverityCrit     Severity = "CRIT"
	SeverityMajor    Severity = "MAJOR"
	SeverityMinor    Severity = "MINOR"
	SeverityIssue    Severity = "ISSUE"
	SeverityRefactor Severity = "REFACTOR"
	SeverityNitpick  Severity = "NITPICK"
	SeverityTrivial  Severity = "TRIVIAL"
	SeverityDocs     Severity = "DOCS"
	SeverityNA       Severity = "N/A"
)

// severityRank encodes the fixed total order
// CRIT > MAJOR > MINOR > ISSUE > REFACTOR > NITPICK > TRIVIAL > DOCS > N/A.
var severityRank = map[Severity]int{
	SeverityCrit:     8,
	SeverityMajor:    7,
	SeverityMinor:    6,
	SeverityIssue:    5,
	SeverityRefactor: 4,
	SeverityNitpick:  3,
	SeverityTrivial:  2,
	SeverityDocs:     1,
	SeverityNA:       0,
}

// Rank returns the position of s in the total severity order. Unknown values
// rank with N/A.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Max returns the more severe of s and other.
func (s Severity) Max(other Severity) Severity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}

// Category groups severities for listing and filtering.
type Category string

const (
	CategoryIssue    Category = "issue"
	CategoryRefactor Category = "refactor"
	CategoryNitpick  Category = "nitpick"
	CategoryDocs     Category = "docs"
	CategoryOther    Category = "other"
)

// categoryOf is the fixed severity→category table. Category is never detected
// independently of severity.
var categoryOf = map[Severity]Category{
	SeverityCrit:     CategoryIssue,
	SeverityMajor:    CategoryIssue,
	SeverityMinor:    CategoryIssue,
	SeverityIssue:    CategoryIssue,
	SeverityRefactor: CategoryRefactor,
	SeverityNitpick:  CategoryNitpick,
	SeverityTrivial:  CategoryNitpick,
	SeverityDocs:     CategoryDocs,
	SeverityNA:       CategoryOther,
}

// CategoryOf returns the category derived from a severity.
func CategoryOf(s Severity) Category {
	if c, ok := categoryOf[s]; ok {
		return c
	}
	return CategoryOther
}
