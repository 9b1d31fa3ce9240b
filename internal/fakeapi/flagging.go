package fakeapi

import (
	"fmt"
	"strings"
	"time"

	"safeshift/internal/report"
	pstrings "safeshift/pkg/platform/strings"
)

const (
	patternWindow          = 7 * 24 * time.Hour
	similarReportThreshold = 2
	minHighSeverityDetail  = 100
)

// FlagRule raises a report containing Keyword to at least Severity.
type FlagRule struct {
	Keyword  string
	Severity report.Severity
}

// DefaultFlagRules are active when no keywords are configured.
var DefaultFlagRules = []FlagRule{
	{Keyword: "weapon", Severity: report.SeverityCritical},
	{Keyword: "assault", Severity: report.SeverityCritical},
	{Keyword: "threat", Severity: report.SeverityHigh},
	{Keyword: "injury", Severity: report.SeverityHigh},
	{Keyword: "bribe", Severity: report.SeverityHigh},
	{Keyword: "retaliation", Severity: report.SeverityHigh},
}

// RulesFromKeywords builds rules of one severity from a configured keyword
// list, dropping blanks and case-insensitive duplicates.
func RulesFromKeywords(keywords []string, sev report.Severity) []FlagRule {
	var rules []FlagRule
	for _, kw := range pstrings.DedupeAndTrimLower(keywords) {
		rules = append(rules, FlagRule{Keyword: kw, Severity: sev})
	}
	return rules
}

// FlagResult is the outcome of screening one report.
type FlagResult struct {
	Flagged  bool
	Reasons  []string
	Severity report.Severity
}

func (r FlagResult) Reason() string {
	return strings.Join(r.Reasons, " | ")
}

// Flagger screens new reports for keywords, clusters of similar reports
// and thin documentation on urgent reports.
type Flagger struct {
	rules []FlagRule
}

func NewFlagger(rules []FlagRule) *Flagger {
	if len(rules) == 0 {
		rules = DefaultFlagRules
	}
	return &Flagger{rules: rules}
}

// Check screens r against the reports already stored (recent).
func (f *Flagger) Check(r report.Report, recent []report.Report, now time.Time) FlagResult {
	res := FlagResult{Severity: r.Severity}

	text := strings.ToLower(r.Title + "\n" + r.Description)
	for _, rule := range f.rules {
		if strings.Contains(text, strings.ToLower(rule.Keyword)) {
			res.Reasons = append(res.Reasons, "Keyword detected: "+rule.Keyword)
			if rule.Severity.Rank() > res.Severity.Rank() {
				res.Severity = rule.Severity
			}
			break
		}
	}

	similar := 0
	for _, other := range recent {
		if other.ID == r.ID || other.DepartmentID != r.DepartmentID || other.Type != r.Type {
			continue
		}
		if now.Sub(other.CreatedAt) <= patternWindow {
			similar++
		}
	}
	if similar >= similarReportThreshold {
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("Multiple similar reports detected (%d in %d days)", similar, int(patternWindow.Hours()/24)))
	}

	if r.Severity.AtLeast(report.SeverityHigh) {
		switch {
		case len(r.Description) < minHighSeverityDetail:
			res.Reasons = append(res.Reasons, "High severity report with insufficient description")
		case r.Severity == report.SeverityCritical && len(r.Attachments) == 0:
			res.Reasons = append(res.Reasons, "Critical report missing supporting documentation")
		}
	}

	res.Flagged = len(res.Reasons) > 0
	return res
}
