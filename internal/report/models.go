// Package report holds the report domain: the enumerations a report is
// classified by, the draft edited by the submission wizard, and the wire
// types exchanged with the reports API.
package report

import (
	"strings"
	"time"

	dErrors "safeshift/pkg/domain-errors"
)

// Type classifies what a report is about. The zero value means "not selected".
type Type string

const (
	TypeSafetyConcern   Type = "safety_concern"
	TypeHarassment      Type = "harassment"
	TypePolicyViolation Type = "policy_violation"
	TypeDiscrimination  Type = "discrimination"
	TypeFraud           Type = "fraud"
	TypeOther           Type = "other"
)

// Types lists every selectable report type in display order.
var Types = []Type{
	TypeSafetyConcern,
	TypeHarassment,
	TypePolicyViolation,
	TypeDiscrimination,
	TypeFraud,
	TypeOther,
}

func (t Type) IsValid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Label is the human-readable name ("Safety Concern").
func (t Type) Label() string {
	if t == "" {
		return "Uncategorized"
	}
	return titleCase(string(t))
}

// ParseType accepts wire values and display labels, case-insensitively.
func ParseType(s string) (Type, error) {
	key := normalize(s)
	for _, v := range Types {
		if key == string(v) {
			return v, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown report type: "+s)
}

// Severity is ordered by increasing urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns 1..4 for valid severities and 0 otherwise.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if s == v {
			return i + 1
		}
	}
	return 0
}

func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as urgent as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

func (s Severity) String() string {
	return string(s)
}

func (s Severity) Label() string {
	return titleCase(string(s))
}

func ParseSeverity(s string) (Severity, error) {
	key := normalize(s)
	for _, v := range Severities {
		if key == string(v) {
			return v, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown severity: "+s)
}

// Status is the triage state of a submitted report.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusDismissed  Status = "dismissed"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusDismissed}

func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsOpen reports whether the report still needs attention.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

func (s Status) Label() string {
	return titleCase(string(s))
}

func ParseStatus(s string) (Status, error) {
	key := normalize(s)
	for _, v := range Statuses {
		if key == string(v) {
			return v, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown status: "+s)
}

// Report is the server's view of a submitted report.
type Report struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Type               Type       `json:"report_type"`
	Severity           Severity   `json:"severity"`
	Status             Status     `json:"status"`
	Description        string     `json:"description"`
	DepartmentID       string     `json:"department_id,omitempty"`
	IncidentDate       *Date      `json:"incident_date,omitempty"`
	Anonymous          bool       `json:"is_anonymous"`
	ReporterID         string     `json:"reporter_id,omitempty"`
	WitnessInformation string     `json:"witness_information,omitempty"`
	Attachments        []string   `json:"attachments,omitempty"`
	Flagged            bool       `json:"is_flagged"`
	FlagReason         string     `json:"flag_reason,omitempty"`
	AssignedTo         string     `json:"assigned_to,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// CreateRequest is the POST /reports body. It has no reporter field: the
// server derives identity from the bearer token.
type CreateRequest struct {
	Title              string     `json:"title"`
	Type               Type       `json:"report_type"`
	Severity           Severity   `json:"severity"`
	IncidentDate       *Date      `json:"incident_date,omitempty"`
	Description        string     `json:"description"`
	DepartmentID       string     `json:"department_id,omitempty"`
	Anonymous          bool       `json:"is_anonymous"`
	WitnessInformation string     `json:"witness_information,omitempty"`
	Attachments        []string   `json:"attachments"`
}

// Receipt is the POST /reports response. Some servers only send report_id.
type Receipt struct {
	ID       string `json:"id,omitempty"`
	ReportID string `json:"report_id,omitempty"`
	Message  string `json:"message,omitempty"`
	Flagged  bool   `json:"is_flagged,omitempty"`
}

// Ref returns whichever identifier the server supplied.
func (r Receipt) Ref() string {
	if r.ID != "" {
		return r.ID
	}
	return r.ReportID
}

// StatusUpdate is the PATCH /reports/{id}/status body.
type StatusUpdate struct {
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
