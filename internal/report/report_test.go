package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "safeshift/pkg/domain-errors"
)

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"safety_concern":   TypeSafetyConcern,
		"Safety Concern":   TypeSafetyConcern,
		"POLICY-VIOLATION": TypePolicyViolation,
		" fraud ":          TypeFraud,
	}
	for in, want := range cases {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseType("Equipment Issue")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityMedium.AtLeast(SeverityMedium))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.Equal(t, 0, Severity("urgent").Rank())

	for i := 1; i < len(Severities); i++ {
		assert.Greater(t, Severities[i].Rank(), Severities[i-1].Rank())
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Safety Concern", TypeSafetyConcern.Label())
	assert.Equal(t, "Uncategorized", Type("").Label())
	assert.Equal(t, "In Progress", StatusInProgress.Label())
	assert.True(t, StatusInProgress.IsOpen())
	assert.False(t, StatusResolved.IsOpen())
}

func TestCheckFile(t *testing.T) {
	assert.NoError(t, CheckFile("photo.JPG", 1024))
	assert.NoError(t, CheckFile("memo.docx", MaxAttachmentSize))

	err := CheckFile("script.exe", 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = CheckFile("scan.pdf", MaxAttachmentSize+1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "too large")
}

func TestNewAttachmentRequiresRef(t *testing.T) {
	_, err := NewAttachment("", "scan.pdf", 10)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	a, err := NewAttachment("uploads/reports/abc.pdf", "scan.pdf", 10)
	require.NoError(t, err)
	assert.Equal(t, "uploads/reports/abc.pdf", a.Ref)
}

func TestDraftValidate(t *testing.T) {
	d := NewDraft()
	assert.Equal(t, SeverityLow, d.Severity)

	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")

	d.Title = "Wiring hazard"
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report type")

	d.Type = TypeSafetyConcern
	assert.NoError(t, d.Validate())

	d.Attachments = make([]Attachment, MaxAttachments+1)
	assert.True(t, dErrors.HasCode(d.Validate(), dErrors.CodeValidation))
}

func TestPayloadDepartmentResolution(t *testing.T) {
	owner := Owner{DepartmentID: "dept-own"}

	d := NewDraft()
	d.Title = "Blocked exit"
	d.Type = TypeSafetyConcern
	assert.Equal(t, "dept-own", d.Payload(owner).DepartmentID)

	d.DepartmentID = "dept-explicit"
	assert.Equal(t, "dept-explicit", d.Payload(owner).DepartmentID)
}

func TestPayloadFullDraft(t *testing.T) {
	when := time.Date(2026, 3, 14, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	d := Draft{
		Title:              "  Wiring hazard  ",
		Type:               TypeSafetyConcern,
		Severity:           SeverityHigh,
		IncidentDate:       &when,
		Description:        "Exposed cables near loading bay",
		DepartmentID:       "dept-ops",
		Anonymous:          true,
		WitnessInformation: "Night shift lead",
		Attachments:        []Attachment{{Ref: "uploads/a.png", Name: "a.png", Size: 12}},
	}

	p := d.Payload(Owner{DepartmentID: "dept-own"})
	assert.Equal(t, "Wiring hazard", p.Title)
	assert.Equal(t, "dept-ops", p.DepartmentID)
	assert.Equal(t, []string{"uploads/a.png"}, p.Attachments)
	require.NotNil(t, p.IncidentDate)
	assert.Equal(t, Date{Year: 2026, Month: time.March, Day: 14}, *p.IncidentDate)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, true, fields["is_anonymous"])
	assert.Equal(t, "2026-03-14", fields["incident_date"])
	for _, identity := range []string{"reporter_id", "user_id", "employee_id", "email", "full_name"} {
		assert.NotContains(t, fields, identity)
	}
}

func TestPayloadKeepsCalendarDayEastOfUTC(t *testing.T) {
	// local midnight in UTC+2 is still the previous day in UTC
	midnight := time.Date(2026, 10, 19, 0, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	d := Draft{Title: "Blocked exit", Type: TypeSafetyConcern, Severity: SeverityLow, IncidentDate: &midnight}

	raw, err := json.Marshal(d.Payload(Owner{}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"incident_date":"2026-10-19"`)
}

func TestDateJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Date
	}{
		{name: "calendar date", raw: `"2026-10-19"`, want: Date{Year: 2026, Month: time.October, Day: 19}},
		{name: "timestamp keeps written day", raw: `"2026-10-18T22:00:00Z"`, want: Date{Year: 2026, Month: time.October, Day: 18}},
		{name: "null", raw: `null`, want: Date{}},
		{name: "empty", raw: `""`, want: Date{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got Date
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &got))
			assert.Equal(t, tc.want, got)
		})
	}

	var bad Date
	err := json.Unmarshal([]byte(`"19/10/2026"`), &bad)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	raw, err := json.Marshal(Date{Year: 2026, Month: time.January, Day: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-01-05"`, string(raw))

	raw, err = json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	assert.True(t, Date{Year: 2025, Month: time.December, Day: 31}.Before(Date{Year: 2026, Month: time.January, Day: 1}))
	assert.False(t, Date{Year: 2026, Month: time.January, Day: 1}.Before(Date{Year: 2026, Month: time.January, Day: 1}))
}

func TestReportUpdatedAtOmittedWhenUnset(t *testing.T) {
	raw, err := json.Marshal(Report{ID: "r1"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "updated_at")

	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	raw, err = json.Marshal(Report{ID: "r1", UpdatedAt: &now})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"updated_at":"2026-10-19T08:00:00Z"`)
}

func TestCloneIsDeep(t *testing.T) {
	when := time.Now()
	d := Draft{IncidentDate: &when, Attachments: []Attachment{{Ref: "a"}}}
	c := d.Clone()
	c.Attachments[0].Ref = "b"
	*c.IncidentDate = when.Add(time.Hour)

	assert.Equal(t, "a", d.Attachments[0].Ref)
	assert.True(t, d.IncidentDate.Equal(when))
}

func TestListFilterQuery(t *testing.T) {
	f := ListFilter{Status: StatusPending, Severity: SeverityHigh, FlaggedOnly: true, Limit: 20}
	q := f.Query()
	assert.Equal(t, "is_flagged=true&limit=20&severity=high&status=pending", q.Encode())

	back, err := ParseListFilter(q)
	require.NoError(t, err)
	assert.Equal(t, f, back)

	assert.True(t, f.Matches(Report{Status: StatusPending, Severity: SeverityHigh, Flagged: true}))
	assert.False(t, f.Matches(Report{Status: StatusPending, Severity: SeverityHigh}))
}
