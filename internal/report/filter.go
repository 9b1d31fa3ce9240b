package report

import (
	"net/url"
	"strconv"
)

// ListFilter narrows GET /reports. Zero-valued fields are omitted.
type ListFilter struct {
	Status       Status
	Severity     Severity
	Type         Type
	DepartmentID string
	FlaggedOnly  bool
	Limit        int
	Offset       int
}

// Query encodes the filter as URL query parameters.
func (f ListFilter) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Severity != "" {
		q.Set("severity", string(f.Severity))
	}
	if f.Type != "" {
		q.Set("report_type", string(f.Type))
	}
	if f.DepartmentID != "" {
		q.Set("department_id", f.DepartmentID)
	}
	if f.FlaggedOnly {
		q.Set("is_flagged", "true")
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

// Matches applies the filter to a report; used by the development backend.
func (f ListFilter) Matches(r Report) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.DepartmentID != "" && r.DepartmentID != f.DepartmentID {
		return false
	}
	if f.FlaggedOnly && !r.Flagged {
		return false
	}
	return true
}

// ParseListFilter is the inverse of Query. Unknown enum values are errors.
func ParseListFilter(q url.Values) (ListFilter, error) {
	var f ListFilter
	var err error
	if v := q.Get("status"); v != "" {
		if f.Status, err = ParseStatus(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("severity"); v != "" {
		if f.Severity, err = ParseSeverity(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("report_type"); v != "" {
		if f.Type, err = ParseType(v); err != nil {
			return f, err
		}
	}
	f.DepartmentID = q.Get("department_id")
	f.FlaggedOnly = q.Get("is_flagged") == "true"
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	return f, nil
}
